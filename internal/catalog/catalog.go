package catalog

import (
	"log/slog"
)

// Track ID range exposed to the generator. IDs outside this range resolve to
// the fallback track.
const (
	MinTrackID = 10
	MaxTrackID = 69
)

// DefaultGenre is the genre the fallback track is drawn from.
const DefaultGenre = "Ambient"

// Track is playable music metadata as stored in the catalog.
type Track struct {
	ID          int    `json:"id"`
	Genre       string `json:"genre"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	DurationSec int    `json:"durationSec"`
	AudioPath   string `json:"audioPath"`
	ImagePath   string `json:"imagePath"`
}

// Catalog is a read-only lookup table of playable tracks.
//
// Resolve is a total function: it never fails and never returns a zero Track.
// That guarantee is what lets the segment validator treat a bad music ID as a
// soft failure instead of rejecting the batch.
type Catalog struct {
	byID    map[int]Track
	byGenre map[string][]Track
	log     *slog.Logger
}

// New builds the catalog from the built-in track table.
func New(log *slog.Logger) *Catalog {
	c := &Catalog{
		byID:    make(map[int]Track, len(trackTable)),
		byGenre: make(map[string][]Track),
		log:     log,
	}
	for _, t := range trackTable {
		c.byID[t.ID] = t
		c.byGenre[t.Genre] = append(c.byGenre[t.Genre], t)
	}
	return c
}

// Resolve returns the track for id. If id is unknown or out of range, the
// fallback track is returned and substituted reports true.
func (c *Catalog) Resolve(id int) (track Track, substituted bool) {
	if t, ok := c.byID[id]; ok {
		return t, false
	}
	fallback := c.DefaultTrack()
	c.log.Warn("unknown track id, substituting fallback",
		slog.Int("track_id", id),
		slog.Int("fallback_id", fallback.ID))
	return fallback, true
}

// ByGenre returns all tracks of the given genre, or the default genre's
// tracks when the genre is unknown. Used only as a fallback source.
func (c *Catalog) ByGenre(genre string) []Track {
	if ts, ok := c.byGenre[genre]; ok {
		return ts
	}
	return c.byGenre[DefaultGenre]
}

// DefaultTrack is the deterministic substitute for any failed resolution:
// the first track of the default genre.
func (c *Catalog) DefaultTrack() Track {
	return c.byID[MinTrackID]
}

// Genres returns the genre names present in the catalog.
func (c *Catalog) Genres() []string {
	names := make([]string, 0, len(c.byGenre))
	for g := range c.byGenre {
		names = append(names, g)
	}
	return names
}
