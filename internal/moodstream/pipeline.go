package moodstream

import (
	"context"
	"log/slog"
	"time"

	"mood-orchestrator/internal/catalog"
	"mood-orchestrator/internal/completion"
	"mood-orchestrator/internal/platform/metrics"
	"mood-orchestrator/internal/prediction"
)

// Scope selects which segment fields a generation produces.
type Scope int

const (
	// ScopeStream generates a full batch of complete segments.
	ScopeStream Scope = iota
	// ScopeScent regenerates only the current segment's scent and icons.
	ScopeScent
	// ScopeMusic regenerates only the current segment's music and wind.
	ScopeMusic
)

// GenerateRequest describes one pipeline invocation.
type GenerateRequest struct {
	Scope     Scope
	BatchSize int
	// ForceFresh bypasses the cache read; the new result is still written.
	ForceFresh bool
	// SegmentIndex and Current identify the segment being patched for
	// scoped requests. SegmentIndex is ignored for ScopeStream.
	SegmentIndex int
	Current      *Segment
}

// Pipeline turns a context snapshot into a validated, track-resolved
// segment batch: assemble, predict, prompt, complete, validate, resolve.
// Generate is total: the fallback chain ends at the built-in default
// batch, so the scheduler can always publish something playable.
type Pipeline struct {
	provider  ContextProvider
	predictor *prediction.Gateway
	completer *completion.Gateway
	catalog   *catalog.Catalog
	cache     *ResponseCache
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time
}

// NewPipeline wires the pipeline. Metrics may be nil to disable recording.
func NewPipeline(
	provider ContextProvider,
	predictor *prediction.Gateway,
	completer *completion.Gateway,
	cat *catalog.Catalog,
	cache *ResponseCache,
	met *metrics.Metrics,
	log *slog.Logger,
) *Pipeline {
	return &Pipeline{
		provider:  provider,
		predictor: predictor,
		completer: completer,
		catalog:   cat,
		cache:     cache,
		metrics:   met,
		log:       log,
		now:       time.Now,
	}
}

// batchProvider is one fallback tier: returns a batch and whether it
// succeeded. Tiers are evaluated in order; first success wins.
type batchProvider func(ctx context.Context) ([]Segment, bool)

// Generate runs the pipeline for req and always returns at least one
// resolved segment. Segments are unchained; the caller assigns start times.
func (p *Pipeline) Generate(ctx context.Context, req GenerateRequest) []Segment {
	if req.BatchSize <= 0 {
		req.BatchSize = 1
	}
	if p.metrics != nil {
		p.metrics.IncGenerations()
	}

	snap, err := p.provider.Snapshot(ctx)
	if err != nil {
		p.log.Warn("context snapshot failed, using zero-filled context", slog.String("error", err.Error()))
		snap = ContextSnapshot{}.Normalized()
	}

	fp := p.fingerprint(snap, req)

	tiers := []batchProvider{}
	if !req.ForceFresh {
		tiers = append(tiers, func(context.Context) ([]Segment, bool) { return p.fromCache(fp, req.BatchSize) })
	}
	tiers = append(tiers,
		func(ctx context.Context) ([]Segment, bool) { return p.fromCompletion(ctx, snap, req, fp) },
		func(context.Context) ([]Segment, bool) { return p.fromDefaults(req.BatchSize) },
	)

	var batch []Segment
	for _, tier := range tiers {
		if segs, ok := tier(ctx); ok {
			batch = segs
			break
		}
	}

	if req.Scope != ScopeStream && req.Current != nil {
		return []Segment{patchSegment(req.Scope, *req.Current, batch[0])}
	}
	return batch
}

// fromCache serves a prior batch for the same fingerprint. An entry with
// fewer segments than requested (a cold start caches a batch of one) is
// treated as a miss so a full batch still gets generated.
func (p *Pipeline) fromCache(fp Fingerprint, n int) ([]Segment, bool) {
	segs, ok := p.cache.Get(fp)
	if !ok || len(segs) < n {
		return nil, false
	}
	if p.metrics != nil {
		p.metrics.IncCacheHits()
	}
	p.log.Debug("generation served from cache", slog.String("mood", fp.MoodLabel))
	return segs, true
}

func (p *Pipeline) fromCompletion(ctx context.Context, snap ContextSnapshot, req GenerateRequest, fp Fingerprint) ([]Segment, bool) {
	in := p.promptInput(snap, req.Scope)

	pred, _ := p.predictor.Predict(ctx, predictionRequest(snap))

	prompt := completion.BuildPrompt(in, pred, req.BatchSize)
	raw, ok := p.completer.Complete(ctx, prompt)
	if !ok {
		if p.completer.Configured() && p.metrics != nil {
			p.metrics.IncGenerationFailures()
		}
		return nil, false
	}

	segs, err := ValidateBatch(raw)
	if err != nil {
		p.log.Warn("completion batch rejected", slog.String("error", err.Error()))
		if p.metrics != nil {
			p.metrics.IncGenerationFailures()
		}
		return nil, false
	}

	p.resolveTracks(segs)
	p.cache.Put(fp, segs)
	return segs, true
}

func (p *Pipeline) fromDefaults(n int) ([]Segment, bool) {
	if p.metrics != nil {
		p.metrics.IncFallbackBatches()
	}
	p.log.Info("serving built-in default batch", slog.Int("size", n))
	segs := DefaultBatch(n)
	p.resolveTracks(segs)
	return segs, true
}

// resolveTracks binds every segment to real playable track metadata and
// derives the segment duration from the track's playback length.
func (p *Pipeline) resolveTracks(segments []Segment) {
	for i := range segments {
		track, substituted := p.catalog.Resolve(segments[i].Music.TrackID)
		if substituted && p.metrics != nil {
			p.metrics.IncTrackSubstitutions()
		}
		segments[i].Music.TrackID = track.ID
		segments[i].Music.Track = ResolvedTrack{
			Title:      track.Title,
			Artist:     track.Artist,
			DurationMs: int64(track.DurationSec) * 1000,
			AudioURL:   track.AudioPath,
			ImageURL:   track.ImagePath,
		}
		segments[i].DurationMs = segments[i].Music.Track.DurationMs
	}
}

func (p *Pipeline) fingerprint(snap ContextSnapshot, req GenerateRequest) Fingerprint {
	now := p.now()
	segIndex := -1
	if req.Scope != ScopeStream {
		segIndex = req.SegmentIndex
	}
	return Fingerprint{
		MoodLabel:    snap.CurrentMood.Label,
		MusicGenre:   snap.CurrentMood.MusicGenre,
		ScentType:    snap.CurrentMood.ScentType,
		HourOfDay:    now.Hour(),
		Season:       SeasonOf(now.Month()),
		StressBand:   StressBand(snap.Stress.Recent),
		SegmentIndex: segIndex,
	}
}

func (p *Pipeline) promptInput(snap ContextSnapshot, scope Scope) completion.PromptInput {
	now := p.now()
	in := completion.PromptInput{
		MoodLabel:        snap.CurrentMood.Label,
		MusicGenre:       snap.CurrentMood.MusicGenre,
		ScentType:        snap.CurrentMood.ScentType,
		HourOfDay:        now.Hour(),
		Season:           SeasonOf(now.Month()),
		StressAvg:        snap.Stress.Avg,
		StressRecent:     snap.Stress.Recent,
		SleepScore:       snap.Sleep.Score,
		SleepDurationMin: snap.Sleep.DurationMin,
		TempC:            snap.Weather.TempC,
		HumidityPct:      snap.Weather.HumidityPct,
		RainType:         snap.Weather.RainType,
		Sky:              snap.Weather.Sky,
		Laughter:         snap.Emotions.Laughter,
		Sigh:             snap.Emotions.Sigh,
		Crying:           snap.Emotions.Crying,
		GenreWeights:     snap.Preferences.Genre,
		ScentWeights:     snap.Preferences.Scent,
		TagWeights:       snap.Preferences.Tag,
		Genres:           p.catalog.Genres(),
	}
	switch scope {
	case ScopeScent:
		in.Focus = completion.FocusScent
	case ScopeMusic:
		in.Focus = completion.FocusMusic
	}
	return in
}

func predictionRequest(snap ContextSnapshot) prediction.Request {
	return prediction.Request{
		AvgStress:     snap.Stress.Avg,
		RecentStress:  snap.Stress.Recent,
		SleepScore:    snap.Sleep.Score,
		SleepDuration: snap.Sleep.DurationMin,
		Temp:          snap.Weather.TempC,
		Humidity:      snap.Weather.HumidityPct,
		RainType:      snap.Weather.RainType,
		Sky:           snap.Weather.Sky,
		Laughter:      snap.Emotions.Laughter,
		Sigh:          snap.Emotions.Sigh,
		Crying:        snap.Emotions.Crying,
	}
}

// patchSegment applies a scoped regeneration onto the current segment,
// leaving every field outside the scope untouched. Timing is preserved for
// scent patches; a music patch adopts the new track's duration and the
// scheduler re-chains the tail.
func patchSegment(scope Scope, current, generated Segment) Segment {
	out := current
	switch scope {
	case ScopeScent:
		out.Scent = generated.Scent
		out.Background.IconKeys = generated.Background.IconKeys
	case ScopeMusic:
		out.Music = generated.Music
		out.Background.Wind = generated.Background.Wind
		out.DurationMs = generated.Music.Track.DurationMs
	}
	return out
}
