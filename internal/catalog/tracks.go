package catalog

import "fmt"

// trackTable is the static catalog: six genres, ten tracks each,
// IDs 10..69. Audio and image locators follow the Genre_N naming scheme
// of the asset bucket.
var trackTable = buildTrackTable()

type genreSpec struct {
	genre  string
	artist string
	titles [10]string
	// base playback length in seconds; successive tracks vary around it
	baseDurationSec int
}

var genreSpecs = []genreSpec{
	{
		genre:           "Ambient",
		artist:          "Still Air Collective",
		baseDurationSec: 210,
		titles: [10]string{
			"Drifting Light", "Low Tide", "Glass Morning", "Slow Orbit",
			"Field of Static", "Warm Fog", "Night Balcony", "Paper Lantern",
			"Quiet Machinery", "After the Rain",
		},
	},
	{
		genre:           "Classic",
		artist:          "Aria Chamber Ensemble",
		baseDurationSec: 240,
		titles: [10]string{
			"Prelude in Blue", "Winter Nocturne", "Courtyard Waltz", "Sonata for Dusk",
			"Minuet of Leaves", "Pastorale", "Adagio for Rain", "Canon at Dawn",
			"Berceuse", "Evening Rondo",
		},
	},
	{
		genre:           "Jazz",
		artist:          "Midnight Corner Trio",
		baseDurationSec: 225,
		titles: [10]string{
			"Blue Hour Swing", "Velvet Steps", "Corner Table", "Smoke and Brass",
			"Late Check-In", "Rainy Vibraphone", "Third Street Stroll", "Amber Keys",
			"Slow Burn", "Last Call Ballad",
		},
	},
	{
		genre:           "Lofi",
		artist:          "Tape Room",
		baseDurationSec: 180,
		titles: [10]string{
			"Window Seat", "Dusty Loop", "Homework Rain", "Kettle Hiss",
			"Side B", "Cassette Garden", "Half Asleep", "Warm Static",
			"Study Lamp", "Sunday Reel",
		},
	},
	{
		genre:           "Piano",
		artist:          "Mirae Han",
		baseDurationSec: 200,
		titles: [10]string{
			"First Snow", "Letters Unsent", "River Stones", "Small Hours",
			"Greenhouse", "Footprints", "Lullaby for Two", "Open Window",
			"Falling Slowly", "Home Again",
		},
	},
	{
		genre:           "Pop",
		artist:          "Neon Orchard",
		baseDurationSec: 215,
		titles: [10]string{
			"Daylight Run", "Soda Sky", "Polaroid Summer", "Rooftop Lights",
			"Glow", "Sweet Static", "Paper Planes", "Brighter",
			"Weekend Colors", "Golden Hour Drive",
		},
	},
}

func buildTrackTable() []Track {
	tracks := make([]Track, 0, len(genreSpecs)*10)
	id := MinTrackID
	for _, spec := range genreSpecs {
		for i, title := range spec.titles {
			tracks = append(tracks, Track{
				ID:          id,
				Genre:       spec.genre,
				Title:       title,
				Artist:      spec.artist,
				DurationSec: spec.baseDurationSec + (i%5)*12,
				AudioPath:   fmt.Sprintf("/music/%s_%d.mp3", spec.genre, i+1),
				ImagePath:   fmt.Sprintf("/music/%s_%d.png", spec.genre, i+1),
			})
			id++
		}
	}
	return tracks
}
