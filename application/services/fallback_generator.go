package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"lorekeeper-backend/application/ports"
	"lorekeeper-backend/pkg/errors"
	"lorekeeper-backend/pkg/observability"
)

// BreakerState represents the narrator circuit breaker's current state
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
)

func (s BreakerState) String() string {
	if s == BreakerOpen {
		return "OPEN"
	}
	return "CLOSED"
}

// NarratorBreakerConfig configures the narrator circuit breaker
type NarratorBreakerConfig struct {
	FailureThreshold int           // consecutive failures before the circuit opens
	CooldownPeriod   time.Duration // how long the circuit stays open
}

// DefaultNarratorBreakerConfig returns the production breaker settings
func DefaultNarratorBreakerConfig() NarratorBreakerConfig {
	return NarratorBreakerConfig{
		FailureThreshold: 5,
		CooldownPeriod:   5 * time.Minute,
	}
}

// NarratorBreaker tracks narrator health across chapters of a run. Recovery
// is asymmetric: a success after failures decrements the failure count rather
// than clearing it, so a flapping narrator reopens the circuit quickly.
//
// Each compilation run owns its own breaker; narrator trouble in one run
// never bleeds into another user's run.
type NarratorBreaker struct {
	mu       sync.Mutex
	cfg      NarratorBreakerConfig
	failures int
	state    BreakerState
	openedAt time.Time
	clock    func() time.Time

	onTransition func(state BreakerState)
}

// NewNarratorBreaker creates a closed breaker
func NewNarratorBreaker(cfg NarratorBreakerConfig) *NarratorBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultNarratorBreakerConfig().FailureThreshold
	}
	if cfg.CooldownPeriod <= 0 {
		cfg.CooldownPeriod = DefaultNarratorBreakerConfig().CooldownPeriod
	}
	return &NarratorBreaker{cfg: cfg, clock: time.Now}
}

// WithClock overrides the breaker's time source. Intended for tests.
func (b *NarratorBreaker) WithClock(clock func() time.Time) *NarratorBreaker {
	b.clock = clock
	return b
}

// Allow reports whether the narrator may be called right now. An open
// circuit closes again once the cooldown elapses, keeping one failure of
// headroom so an immediately failing probe reopens it.
func (b *NarratorBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerClosed {
		return true
	}
	if b.clock().Sub(b.openedAt) >= b.cfg.CooldownPeriod {
		b.transition(BreakerClosed)
		b.failures = b.cfg.FailureThreshold - 1
		return true
	}
	return false
}

// RecordSuccess decrements the failure count toward zero
func (b *NarratorBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures > 0 {
		b.failures--
	}
}

// RecordFailure increments the failure count and opens the circuit when the
// threshold is reached
func (b *NarratorBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.state == BreakerClosed && b.failures >= b.cfg.FailureThreshold {
		b.transition(BreakerOpen)
		b.openedAt = b.clock()
	}
}

// State returns the breaker's current state
func (b *NarratorBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *NarratorBreaker) transition(state BreakerState) {
	b.state = state
	if b.onTransition != nil {
		b.onTransition(state)
	}
}

// FallbackGeneratorConfig configures narrator retry behavior
type FallbackGeneratorConfig struct {
	MaxAttempts     uint          // total attempts per chapter, first call included
	InitialInterval time.Duration // backoff starting interval
	MaxInterval     time.Duration // backoff ceiling
	Breaker         NarratorBreakerConfig
}

// DefaultFallbackGeneratorConfig returns the production retry settings
func DefaultFallbackGeneratorConfig() FallbackGeneratorConfig {
	return FallbackGeneratorConfig{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Breaker:         DefaultNarratorBreakerConfig(),
	}
}

// FallbackGenerator wraps a ChapterNarrator with retries, a circuit breaker
// and a deterministic template fallback. It never returns an error: a chapter
// always gets prose, degraded if necessary.
type FallbackGenerator struct {
	narrator ports.ChapterNarrator
	breaker  *NarratorBreaker
	cfg      FallbackGeneratorConfig
	logger   *zap.Logger
	metrics  *observability.Collector
}

// NewFallbackGenerator creates a generator with a fresh breaker. Build one
// per compilation run.
func NewFallbackGenerator(
	narrator ports.ChapterNarrator,
	cfg FallbackGeneratorConfig,
	logger *zap.Logger,
	metrics *observability.Collector,
) *FallbackGenerator {
	if cfg.MaxAttempts == 0 {
		cfg = DefaultFallbackGeneratorConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	breaker := NewNarratorBreaker(cfg.Breaker)
	if metrics != nil {
		breaker.onTransition = func(state BreakerState) {
			metrics.BreakerTransitions.WithLabelValues(state.String()).Inc()
		}
	}
	return &FallbackGenerator{
		narrator: narrator,
		breaker:  breaker,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Breaker exposes the run's breaker. Intended for tests.
func (g *FallbackGenerator) Breaker() *NarratorBreaker {
	return g.breaker
}

// Narrate produces prose for one chapter. It returns the generated chapter
// and whether the deterministic template produced it.
func (g *FallbackGenerator) Narrate(ctx context.Context, chapterCtx ports.ChapterContext) (*ports.GeneratedChapter, bool) {
	if g.narrator != nil && g.breaker.Allow() {
		chapter, err := g.tryNarrator(ctx, chapterCtx)
		if err == nil {
			g.breaker.RecordSuccess()
			if g.metrics != nil {
				g.metrics.NarratorCalls.WithLabelValues("success").Inc()
			}
			return chapter, false
		}

		g.breaker.RecordFailure()
		if g.metrics != nil {
			g.metrics.NarratorCalls.WithLabelValues("failure").Inc()
		}
		g.logger.Warn("narrator failed, falling back to template",
			zap.String("userID", chapterCtx.UserID),
			zap.Int("chapterIndex", chapterCtx.ChapterIndex),
			zap.String("breakerState", g.breaker.State().String()),
			zap.Error(err),
		)
	}

	if g.metrics != nil {
		g.metrics.FallbacksUsed.Inc()
	}
	return g.template(chapterCtx), true
}

// tryNarrator calls the narrator with bounded retries. Only transient errors
// are retried; anything else fails immediately.
func (g *FallbackGenerator) tryNarrator(ctx context.Context, chapterCtx ports.ChapterContext) (*ports.GeneratedChapter, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = g.cfg.InitialInterval
	expo.MaxInterval = g.cfg.MaxInterval
	expo.Multiplier = 2
	expo.RandomizationFactor = 0

	operation := func() (*ports.GeneratedChapter, error) {
		chapter, err := g.narrator.Generate(ctx, chapterCtx)
		if err != nil {
			if errors.IsTransient(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return chapter, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(g.cfg.MaxAttempts),
	)
}

// template writes a chapter without any external collaborator: a dated
// paragraph per atom plus a closing theme sentence. The output is fully
// deterministic so degraded runs stay idempotent.
func (g *FallbackGenerator) template(chapterCtx ports.ChapterContext) *ports.GeneratedChapter {
	var sb strings.Builder

	for _, atom := range chapterCtx.Atoms {
		sb.WriteString(fmt.Sprintf("On %s: %s\n",
			atom.Timestamp().Format("January 2, 2006"),
			atom.Content(),
		))
	}

	if len(chapterCtx.DominantThemes) > 0 {
		sb.WriteString(fmt.Sprintf("This period centered on %s.\n",
			strings.Join(chapterCtx.DominantThemes, ", ")))
	}

	return &ports.GeneratedChapter{
		Title:     g.templateTitle(chapterCtx),
		Narrative: sb.String(),
	}
}

func (g *FallbackGenerator) templateTitle(chapterCtx ports.ChapterContext) string {
	if len(chapterCtx.DominantThemes) > 0 {
		return fmt.Sprintf("%s, %s",
			titleCase(chapterCtx.DominantThemes[0]),
			chapterCtx.Span.Start().Format("January 2006"),
		)
	}
	return chapterCtx.Span.Start().Format("January 2006")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
