package moodstream

import "testing"

func testFingerprint(index int) Fingerprint {
	return Fingerprint{
		MoodLabel:    "Calm",
		MusicGenre:   "Ambient",
		ScentType:    "Floral",
		HourOfDay:    21,
		Season:       "Autumn",
		StressBand:   40,
		SegmentIndex: index,
	}
}

func TestResponseCache_miss_then_hit(t *testing.T) {
	c := NewResponseCache()
	fp := testFingerprint(-1)

	if _, ok := c.Get(fp); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put(fp, []Segment{{MoodLabel: "Calm"}})
	segs, ok := c.Get(fp)
	if !ok || len(segs) != 1 || segs[0].MoodLabel != "Calm" {
		t.Fatalf("expected hit with stored batch, got ok=%v segs=%+v", ok, segs)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
}

func TestResponseCache_distinct_fingerprints(t *testing.T) {
	c := NewResponseCache()
	c.Put(testFingerprint(-1), []Segment{{MoodLabel: "batch"}})

	if _, ok := c.Get(testFingerprint(2)); ok {
		t.Error("scoped fingerprint must not hit the batch entry")
	}

	other := testFingerprint(-1)
	other.StressBand = 60
	if _, ok := c.Get(other); ok {
		t.Error("different stress band must not hit")
	}
}

func TestResponseCache_put_replaces(t *testing.T) {
	c := NewResponseCache()
	fp := testFingerprint(-1)
	c.Put(fp, []Segment{{MoodLabel: "old"}})
	c.Put(fp, []Segment{{MoodLabel: "new"}})

	segs, _ := c.Get(fp)
	if segs[0].MoodLabel != "new" {
		t.Errorf("expected replacement, got %q", segs[0].MoodLabel)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry after replace, got %d", c.Len())
	}
}

func TestResponseCache_copies_on_both_sides(t *testing.T) {
	c := NewResponseCache()
	fp := testFingerprint(-1)
	in := []Segment{{MoodLabel: "original"}}
	c.Put(fp, in)
	in[0].MoodLabel = "mutated after put"

	out, _ := c.Get(fp)
	if out[0].MoodLabel != "original" {
		t.Error("cache shares storage with the caller's slice")
	}
	out[0].MoodLabel = "mutated after get"

	again, _ := c.Get(fp)
	if again[0].MoodLabel != "original" {
		t.Error("cache entry was mutated through a returned copy")
	}
}

func TestResponseCache_reset(t *testing.T) {
	c := NewResponseCache()
	c.Put(testFingerprint(-1), []Segment{{}})
	c.Reset()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after reset, got %d", c.Len())
	}
}

func TestStressBand(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{-5, 0}, {0, 0}, {19.9, 0}, {20, 20}, {39, 20}, {55, 40}, {99, 80}, {100, 100}, {250, 100},
	}
	for _, tc := range cases {
		if got := StressBand(tc.in); got != tc.want {
			t.Errorf("StressBand(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
