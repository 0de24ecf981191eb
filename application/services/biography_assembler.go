package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"lorekeeper-backend/application/ports"
	"lorekeeper-backend/domain/config"
	"lorekeeper-backend/domain/core/aggregates"
	"lorekeeper-backend/domain/core/entities"
	"lorekeeper-backend/domain/core/valueobjects"
	domainservices "lorekeeper-backend/domain/services"
	pkgerrors "lorekeeper-backend/pkg/errors"
	"lorekeeper-backend/pkg/observability"
)

// AssemblerDeps bundles everything the assembler orchestrates
type AssemblerDeps struct {
	Atoms       ports.AtomStore
	Timeline    ports.TimelineStore
	Biographies ports.BiographyStore
	Cache       ports.GraphCache
	Narrator    ports.ChapterNarrator

	GraphBuilder  *domainservices.GraphBuilder
	SpecFilter    *domainservices.SpecFilter
	VersionFilter *domainservices.VersionFilter
	Voids         *domainservices.VoidAwarenessService
	Clusterer     *domainservices.TimelineClusterer
	Themes        *domainservices.ThemeAnalyzer
	Periods       *domainservices.TimePeriodAnalyzer
	Quality       *domainservices.QualityValidator

	Config       *config.DomainConfig
	FallbackConf FallbackGeneratorConfig
	Logger       *zap.Logger
	Metrics      *observability.Collector
	Tracer       *observability.Tracer
}

// BiographyAssembler runs the full compilation pipeline: graph, filters,
// voids, clustering, narration, analysis, quality, persistence. Each Compile
// call is an independent run producing one immutable biography.
type BiographyAssembler struct {
	deps     AssemblerDeps
	validate *validator.Validate
	clock    func() time.Time
}

// NewBiographyAssembler creates an assembler
func NewBiographyAssembler(deps AssemblerDeps) *BiographyAssembler {
	if deps.Config == nil {
		deps.Config = config.DefaultDomainConfig()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.FallbackConf.MaxAttempts == 0 {
		deps.FallbackConf = DefaultFallbackGeneratorConfig()
	}
	return &BiographyAssembler{
		deps:     deps,
		validate: validator.New(),
		clock:    time.Now,
	}
}

// WithClock overrides the assembler's time source. Intended for tests.
func (a *BiographyAssembler) WithClock(clock func() time.Time) *BiographyAssembler {
	a.clock = clock
	return a
}

// Compile runs the pipeline for one spec. Identical inputs produce an
// identical biography apart from generated IDs and timestamps.
func (a *BiographyAssembler) Compile(ctx context.Context, spec valueobjects.BiographySpec) (*entities.Biography, error) {
	runStart := a.clock()

	bio, err := a.compile(ctx, spec)

	if a.deps.Metrics != nil {
		status := "success"
		if err != nil {
			status = "failure"
		}
		a.deps.Metrics.CompilationRuns.WithLabelValues(string(spec.EffectiveVersion()), status).Inc()
		a.deps.Metrics.ObserveStage("compile", runStart)
	}

	return bio, err
}

func (a *BiographyAssembler) compile(ctx context.Context, spec valueobjects.BiographySpec) (*entities.Biography, error) {
	if err := a.validateSpec(spec); err != nil {
		return nil, err
	}

	logger := a.deps.Logger.With(
		zap.String("userID", spec.UserID),
		zap.String("version", string(spec.EffectiveVersion())),
		zap.String("scope", string(spec.Scope)),
	)
	logger.Info("compilation run started")

	// Stage 1: acquire the narrative graph, cached or rebuilt
	var graph *aggregates.NarrativeGraph
	err := a.trace(ctx, "graph", func(ctx context.Context) error {
		var stageErr error
		graph, stageErr = a.acquireGraph(ctx, spec.UserID, logger)
		if stageErr == nil && a.deps.Tracer != nil {
			a.deps.Tracer.AddAttribute(ctx, "user_id", spec.UserID)
			a.deps.Tracer.AddCount(ctx, "graph_atoms", graph.AtomCount())
		}
		return stageErr
	})
	if err != nil {
		return nil, err
	}

	// Stage 2: spec filtering, then version filtering. Order matters: the
	// build flag is applied to the spec's survivors, never the reverse.
	working := a.deps.SpecFilter.Apply(graph, spec)
	working = a.deps.VersionFilter.Apply(working, spec.EffectiveVersion(), spec.Audience)
	if len(working) == 0 {
		return nil, pkgerrors.NewNoMatchingAtomsError(spec.UserID)
	}

	// Stage 3: void detection over the surviving atoms
	voids := a.deps.Voids.DetectVoids(working, spec.TimeRange)
	if a.deps.Metrics != nil {
		a.deps.Metrics.VoidsDetected.Add(float64(len(voids)))
	}

	// Stage 4: timeline hierarchy is an enrichment, not a dependency; a
	// store error just means no anchoring this run
	hierarchy, err := a.deps.Timeline.GetHierarchy(ctx, spec.UserID)
	if err != nil {
		logger.Warn("timeline hierarchy unavailable, clustering without anchors", zap.Error(err))
		hierarchy = nil
	}

	// Stage 5: clustering
	result, err := a.deps.Clusterer.Cluster(working, hierarchy, voids, spec)
	if err != nil {
		return nil, err
	}
	if a.deps.Metrics != nil {
		a.deps.Metrics.ChaptersAssembled.Add(float64(len(result.Chapters)))
		a.deps.Metrics.AtomsDropped.Add(float64(result.DroppedAtoms))
	}

	// Stage 6: narration, chapter by chapter in final order
	err = a.trace(ctx, "narration", func(ctx context.Context) error {
		if a.deps.Tracer != nil {
			a.deps.Tracer.AddCount(ctx, "chapters", len(result.Chapters))
		}
		a.narrate(ctx, spec, result.Chapters)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Stage 7: analysis and assembly
	bio, err := a.assemble(spec, graph, working, result)
	if err != nil {
		return nil, err
	}

	report := a.deps.Quality.Validate(bio, working, spec)
	bio.AttachQuality(report)

	// Persistence is best effort: a compiled biography is returned to the
	// caller even when the store is down
	if saveErr := a.deps.Biographies.Save(ctx, bio); saveErr != nil {
		logger.Warn("biography persistence failed, returning unsaved result", zap.Error(saveErr))
	}

	logger.Info("compilation run finished",
		zap.Int("chapters", len(result.Chapters)),
		zap.Int("atoms", len(working)),
		zap.Int("voids", len(voids)),
		zap.Float64("quality", report.Overall),
	)

	return bio, nil
}

func (a *BiographyAssembler) validateSpec(spec valueobjects.BiographySpec) error {
	if err := a.validate.Struct(spec); err != nil {
		return pkgerrors.NewValidationError(fmt.Sprintf("invalid biography spec: %v", err))
	}
	if spec.Scope == valueobjects.ScopeTimeRange && (spec.TimeRange == nil || spec.TimeRange.IsZero()) {
		return pkgerrors.NewValidationError("time_range scope requires a time range")
	}
	return nil
}

// acquireGraph returns the user's narrative graph, reusing the cached one
// when it is fresh and structurally sound
func (a *BiographyAssembler) acquireGraph(ctx context.Context, userID string, logger *zap.Logger) (*aggregates.NarrativeGraph, error) {
	if cached, ok := a.deps.Cache.Get(ctx, userID); ok {
		if !cached.IsStale(a.deps.Config.GraphMaxAge, a.clock()) && cached.Validate() == nil {
			if a.deps.Metrics != nil {
				a.deps.Metrics.GraphCacheHits.Inc()
			}
			logger.Debug("reusing cached narrative graph", zap.Int("atoms", cached.AtomCount()))
			return cached, nil
		}
		a.deps.Cache.Invalidate(ctx, userID)
	}
	if a.deps.Metrics != nil {
		a.deps.Metrics.GraphCacheMisses.Inc()
	}

	atoms, err := a.deps.Atoms.GetAtoms(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "loading narrative atoms")
	}
	if len(atoms) == 0 {
		return nil, pkgerrors.NewNoMatchingAtomsError(userID)
	}

	graph, err := a.deps.GraphBuilder.Build(userID, atoms)
	if err != nil {
		return nil, err
	}
	a.deps.Cache.Put(ctx, graph)

	return graph, nil
}

// narrate attaches prose to every chapter. Regular chapters go through the
// narrator behind the run's breaker; void chapters are always written
// locally so a gap acknowledgment never depends on a collaborator.
func (a *BiographyAssembler) narrate(ctx context.Context, spec valueobjects.BiographySpec, chapters []*entities.ChapterCluster) {
	generator := NewFallbackGenerator(a.deps.Narrator, a.deps.FallbackConf, a.deps.Logger, a.deps.Metrics)

	regularTotal := 0
	for _, c := range chapters {
		if !c.IsVoid() {
			regularTotal++
		}
	}

	index := 0
	for _, chapter := range chapters {
		if chapter.IsVoid() {
			title, narrative := voidNarrative(chapter.Void())
			chapter.AttachNarrative(title, narrative, false)
			continue
		}

		generated, usedFallback := generator.Narrate(ctx, ports.ChapterContext{
			UserID:         spec.UserID,
			Atoms:          chapter.Atoms(),
			DominantThemes: chapter.DominantThemes(),
			Span:           chapter.Span(),
			TypeCounts:     chapter.TypeCounts(),
			DomainCounts:   chapter.DomainCounts(),
			Tone:           spec.Tone,
			Audience:       spec.Audience,
			Introspective:  spec.Introspective,
			ChapterIndex:   index,
			ChapterTotal:   regularTotal,
		})
		chapter.AttachNarrative(generated.Title, generated.Narrative, usedFallback)
		index++
	}
}

// voidNarrative writes deterministic prose acknowledging a gap, shaped by
// the void's fill strategy and any surrounding-theme context
func voidNarrative(void *entities.VoidPeriod) (string, string) {
	span := void.Span()
	title := fmt.Sprintf("An Unrecorded Stretch, %s", span.Start().Format("January 2006"))

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Between %s and %s, %.0f days passed without a recorded moment.",
		span.Start().Format("January 2, 2006"),
		span.End().Format("January 2, 2006"),
		void.DurationDays(),
	))

	if ctx := void.Context(); ctx != nil {
		switch ctx.EstimatedActivity {
		case "continuation":
			sb.WriteString(fmt.Sprintf(" The threads of %s likely carried on quietly through this time.",
				strings.Join(ctx.ThemesBefore, ", ")))
		case "transition":
			sb.WriteString(fmt.Sprintf(" What began around %s gave way to %s by the other side.",
				strings.Join(ctx.ThemesBefore, ", "),
				strings.Join(ctx.ThemesAfter, ", ")))
		}
	}

	if void.FillStrategy() == entities.FillPromptUser {
		sb.WriteString(" This silence is long enough that only its subject can say what it held.")
	}

	return title, sb.String()
}

// assemble builds the biography entity and its provenance metadata
func (a *BiographyAssembler) assemble(
	spec valueobjects.BiographySpec,
	graph *aggregates.NarrativeGraph,
	working []*entities.NarrativeAtom,
	result *domainservices.ClusterResult,
) (*entities.Biography, error) {
	regular := 0
	voidCount := 0
	for _, c := range result.Chapters {
		if c.IsVoid() {
			voidCount++
		} else {
			regular++
		}
	}

	crossCutting := a.deps.Themes.CrossCuttingThemes(result.Chapters)
	periods := a.deps.Periods.Periods(result.Chapters)

	metadata := entities.BiographyMetadata{
		AtomCount:          len(working),
		DroppedAtomCount:   result.DroppedAtoms,
		VoidCount:          voidCount,
		AppliedFilters:     spec.AppliedFilters(),
		AtomHashes:         atomHashes(result.Chapters),
		SnapshotTime:       a.clock(),
		CrossCuttingThemes: crossCutting,
		TimePeriods:        periods,
		GraphStats:         graph.Stats(),
	}

	title := fmt.Sprintf("A Life in %d Chapters", regular)
	subtitle := ""
	if len(crossCutting) > 0 {
		subtitle = fmt.Sprintf("Threads of %s", strings.Join(crossCutting, ", "))
	}

	return entities.NewBiography(
		spec.UserID,
		title,
		subtitle,
		spec.EffectiveVersion(),
		result.Chapters,
		metadata,
		a.clock(),
	)
}

// atomHashes records an ordered FNV-1a hash per included atom so two runs
// over the same working set can be compared without storing atom content
func atomHashes(chapters []*entities.ChapterCluster) []string {
	var hashes []string
	for _, chapter := range chapters {
		for _, atom := range chapter.Atoms() {
			h := fnv.New64a()
			h.Write([]byte(atom.ID().String()))
			h.Write([]byte{0})
			h.Write([]byte(atom.Content()))
			hashes = append(hashes, fmt.Sprintf("%016x", h.Sum64()))
		}
	}
	return hashes
}

func (a *BiographyAssembler) trace(ctx context.Context, stage string, fn func(context.Context) error) error {
	start := a.clock()
	defer func() {
		if a.deps.Metrics != nil {
			a.deps.Metrics.ObserveStage(stage, start)
		}
	}()
	if a.deps.Tracer == nil {
		return fn(ctx)
	}
	return a.deps.Tracer.TraceStage(ctx, stage, fn)
}
