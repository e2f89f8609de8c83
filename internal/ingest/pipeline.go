package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Veraticus/studyflow/internal/common"
	"github.com/Veraticus/studyflow/internal/model"
	"github.com/Veraticus/studyflow/internal/service"
	"github.com/Veraticus/studyflow/internal/tracker"
)

// Stats counts what the pipeline has done since it was created.
type Stats struct {
	Ticks        int
	BadLines     int
	Observations int
	Ignored      int
	Completed    int
	Inserted     int
	Updated      int
	Unchanged    int
	Rollovers    int
}

// CompletionFunc is called for each completed study after it has been persisted.
type CompletionFunc func(study model.CompletedStudy, outcome service.SaveOutcome)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDedup enables or disables suppression of accessions already recorded in a batch.
func WithDedup(enabled bool) Option {
	return func(p *Pipeline) {
		p.dedup = enabled
	}
}

// WithClock overrides the clock used for shift boundaries.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithRetryOptions configures how store writes are retried.
func WithRetryOptions(opts service.RetryOptions) Option {
	return func(p *Pipeline) {
		p.retry = opts
	}
}

// OnCompletion registers a callback for persisted studies.
func OnCompletion(fn CompletionFunc) Option {
	return func(p *Pipeline) {
		p.onComplete = fn
	}
}

// Pipeline feeds ticks into a tracker and persists the studies it completes.
// The tracker is not safe for concurrent use, so every entry point takes the
// pipeline mutex; rule reloads and shift rollovers arrive from other goroutines.
type Pipeline struct {
	mu         sync.Mutex
	tracker    *tracker.Tracker
	store      service.Storage
	rules      atomic.Pointer[model.RuleSet]
	shift      *model.Shift
	logger     *slog.Logger
	now        func() time.Time
	onComplete CompletionFunc
	retry      service.RetryOptions
	stats      Stats
	lastTick   time.Time
	dedup      bool
}

// NewPipeline creates a pipeline. Call Start before processing ticks.
func NewPipeline(store service.Storage, trk *tracker.Tracker, rules *model.RuleSet, opts ...Option) *Pipeline {
	p := &Pipeline{
		tracker: trk,
		store:   store,
		logger:  slog.Default(),
		now:     time.Now,
		dedup:   true,
	}
	p.rules.Store(rules)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start resumes the open shift, or opens one, and seeds the seen set from the
// accessions already recorded in it.
func (p *Pipeline) Start(ctx context.Context) (*model.Shift, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	shift, err := p.store.CurrentShift(ctx)
	switch {
	case errors.Is(err, common.ErrNoShift):
		shift, err = p.store.StartShift(ctx, p.now())
		if err != nil {
			return nil, fmt.Errorf("failed to start shift: %w", err)
		}
		p.logger.Info("Started shift", "shift_id", shift.ID)
	case err != nil:
		return nil, fmt.Errorf("failed to load current shift: %w", err)
	default:
		accessions, err := p.store.GetAccessions(ctx, shift.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load recorded accessions: %w", err)
		}
		for _, accession := range accessions {
			p.tracker.MarkSeen(accession)
		}
		p.logger.Info("Resumed shift", "shift_id", shift.ID, "recorded", len(accessions))
	}

	p.shift = shift
	return shift, nil
}

// Shift returns the shift studies are currently recorded under.
func (p *Pipeline) Shift() *model.Shift {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shift
}

// Rules returns the rule set in effect.
func (p *Pipeline) Rules() *model.RuleSet {
	return p.rules.Load()
}

// SetRules swaps the rule set and reclassifies the active studies with it.
func (p *Pipeline) SetRules(rules *model.RuleSet) {
	if rules == nil {
		return
	}
	p.rules.Store(rules)

	p.mu.Lock()
	changed := p.tracker.Reclassify(rules)
	p.mu.Unlock()

	p.logger.Info("Rules updated", "version", rules.Version, "reclassified", changed)
}

// Process handles one tick: observes the visible study, then completes the studies
// that are no longer on screen and persists them. A tick showing more than one distinct
// study is rejected with common.ErrInvalidFeed before any state changes.
func (p *Pipeline) Process(ctx context.Context, tick Tick) ([]model.CompletedStudy, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shift == nil {
		return nil, common.ErrNoShift
	}
	if err := tick.Validate(); err != nil {
		return nil, err
	}

	rules := p.rules.Load()
	p.stats.Ticks++
	p.lastTick = tick.ObservedAt

	for _, obs := range tick.Visible {
		members := obs.Members()
		if len(members) == 0 {
			continue
		}
		if len(members) == 1 && p.tracker.ShouldIgnore(members[0], p.dedup, p.batchLookup(ctx)) {
			p.stats.Ignored++
			p.logger.Debug("Ignoring batch constituent", "accession", members[0])
			continue
		}
		p.stats.Observations++
		p.tracker.ObserveBatch(members, obs.Procedure, obs.PatientClass, tick.ObservedAt, rules)
	}

	return p.complete(ctx, tick.CurrentKey(), tick.ObservedAt)
}

// Flush completes every active study as if nothing were visible at the given time.
func (p *Pipeline) Flush(ctx context.Context, at time.Time) ([]model.CompletedStudy, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shift == nil {
		return nil, common.ErrNoShift
	}
	return p.complete(ctx, "", at)
}

// Run processes ticks from r until the stream ends or ctx is canceled. Malformed lines
// are logged and skipped. When the stream ends, active studies are flushed at the time of
// the last tick.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) error {
	dec := NewDecoder(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		tick, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if IsInvalidLine(err) {
			p.mu.Lock()
			p.stats.BadLines++
			p.mu.Unlock()
			p.logger.Warn("Skipping malformed feed line", "error", err)
			continue
		}
		if err != nil {
			return err
		}

		if _, err := p.Process(ctx, tick); err != nil {
			return fmt.Errorf("line %d: %w", dec.Line(), err)
		}
	}

	p.mu.Lock()
	last := p.lastTick
	p.mu.Unlock()
	if last.IsZero() {
		return nil
	}
	_, err := p.Flush(ctx, last)
	return err
}

// Rollover ends the current shift and opens a new one. The seen set is cleared; studies
// still on screen stay active and are recorded under the new shift.
func (p *Pipeline) Rollover(ctx context.Context) (*model.Shift, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	at := p.now()
	if p.shift != nil {
		if err := p.store.EndShift(ctx, p.shift.ID, at); err != nil {
			return nil, fmt.Errorf("failed to end shift %s: %w", p.shift.ID, err)
		}
	}

	shift, err := p.store.StartShift(ctx, at)
	if err != nil {
		return nil, fmt.Errorf("failed to start shift: %w", err)
	}

	previous := ""
	if p.shift != nil {
		previous = p.shift.ID
	}
	p.shift = shift
	p.tracker.ResetShift()
	p.stats.Rollovers++

	p.logger.Info("Shift rollover", "previous", previous, "shift_id", shift.ID, "active", p.tracker.Len())
	return shift, nil
}

// Stats returns a copy of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// complete must be called with p.mu held.
func (p *Pipeline) complete(ctx context.Context, current string, at time.Time) ([]model.CompletedStudy, error) {
	completed := p.tracker.CheckCompletion(current, at)
	var errs []error
	for _, study := range completed {
		outcome, err := p.persist(ctx, study)
		if err != nil {
			common.LogError(err, "Failed to record study", common.Fields{"accession": study.Accession})
			errs = append(errs, err)
			continue
		}

		p.tracker.MarkSeen(study.Accession)
		for _, member := range study.Accessions {
			p.tracker.MarkSeen(member)
		}

		p.stats.Completed++
		switch outcome {
		case service.SaveInserted:
			p.stats.Inserted++
		case service.SaveUpdated:
			p.stats.Updated++
		default:
			p.stats.Unchanged++
		}

		p.logger.Info("Study completed",
			"accession", study.Accession,
			"category", study.Category,
			"value", study.Value,
			"duration", study.Duration,
			"outcome", outcome.String())

		if p.onComplete != nil {
			p.onComplete(study, outcome)
		}
	}
	return completed, errors.Join(errs...)
}

func (p *Pipeline) persist(ctx context.Context, study model.CompletedStudy) (service.SaveOutcome, error) {
	var outcome service.SaveOutcome
	err := common.WithRetry(ctx, func() error {
		var err error
		outcome, err = p.store.SaveStudy(ctx, p.shift.ID, study)
		return err
	}, p.retry)
	if err != nil {
		return outcome, fmt.Errorf("failed to save study %s: %w", study.Accession, err)
	}
	return outcome, nil
}

func (p *Pipeline) batchLookup(ctx context.Context) tracker.BatchLookup {
	shiftID := p.shift.ID
	return func(accession string) bool {
		// Batch members are marked seen when recorded and on Start, so an unseen
		// accession cannot be one.
		if !p.tracker.Seen(accession) {
			return false
		}
		member, err := p.store.IsBatchMember(ctx, shiftID, accession)
		if err != nil {
			p.logger.Warn("Batch lookup failed", "accession", accession, "error", err)
			return false
		}
		return member
	}
}
