package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lorekeeper-backend/application/ports"
	"lorekeeper-backend/domain/config"
	"lorekeeper-backend/domain/core/entities"
	"lorekeeper-backend/domain/core/valueobjects"
	domainservices "lorekeeper-backend/domain/services"
	"lorekeeper-backend/infrastructure/persistence/memory"
	pkgerrors "lorekeeper-backend/pkg/errors"
)

// countingAtomStore wraps a store to observe how often the pipeline reloads
// atoms instead of reusing the cached graph.
type countingAtomStore struct {
	inner ports.AtomStore
	mu    sync.Mutex
	gets  int
}

func (s *countingAtomStore) GetAtoms(ctx context.Context, userID string) ([]*entities.NarrativeAtom, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return s.inner.GetAtoms(ctx, userID)
}

func (s *countingAtomStore) SaveAtom(ctx context.Context, atom *entities.NarrativeAtom) error {
	return s.inner.SaveAtom(ctx, atom)
}

func (s *countingAtomStore) getCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

// failingBiographyStore simulates persistence being down
type failingBiographyStore struct{}

func (failingBiographyStore) Save(context.Context, *entities.Biography) error {
	return pkgerrors.NewUnavailableError("biography store")
}

func (failingBiographyStore) GetByID(context.Context, valueobjects.BiographyID) (*entities.Biography, error) {
	return nil, pkgerrors.NewUnavailableError("biography store")
}

func (failingBiographyStore) GetVersions(context.Context, valueobjects.BiographyID) ([]*entities.Biography, error) {
	return nil, pkgerrors.NewUnavailableError("biography store")
}

type testEnv struct {
	assembler *BiographyAssembler
	atoms     *countingAtomStore
	bios      *memory.BiographyStore
	narrator  *stubNarrator
}

func newTestEnv(t *testing.T, bios ports.BiographyStore) *testEnv {
	t.Helper()

	cfg := config.DefaultDomainConfig()
	logger := zap.NewNop()
	themes := domainservices.NewThemeAnalyzer(cfg)
	prioritizer := domainservices.NewAtomPrioritizer(cfg)

	atoms := &countingAtomStore{inner: memory.NewAtomStore()}
	narrator := &stubNarrator{result: &ports.GeneratedChapter{Title: "A Season", Narrative: "a season passed"}}

	memBios, _ := bios.(*memory.BiographyStore)
	deps := AssemblerDeps{
		Atoms:       atoms,
		Timeline:    memory.NewTimelineStore(),
		Biographies: bios,
		Cache:       memory.NewGraphCache(),
		Narrator:    narrator,

		GraphBuilder:  domainservices.NewGraphBuilder(cfg, logger),
		SpecFilter:    domainservices.NewSpecFilter(logger),
		VersionFilter: domainservices.NewVersionFilter(cfg, logger),
		Voids:         domainservices.NewVoidAwarenessService(cfg, themes, logger),
		Clusterer:     domainservices.NewTimelineClusterer(cfg, prioritizer, themes, logger),
		Themes:        themes,
		Periods:       domainservices.NewTimePeriodAnalyzer(cfg, themes),
		Quality:       domainservices.NewQualityValidator(cfg, logger),

		Config:       cfg,
		FallbackConf: fastConfig(),
		Logger:       logger,
	}

	return &testEnv{
		assembler: NewBiographyAssembler(deps),
		atoms:     atoms,
		bios:      memBios,
		narrator:  narrator,
	}
}

var compileEpoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// seedSplitTimeline stores 25 atoms: 15 daily through January, a 45-day
// silence, then 10 daily from mid-February on.
func seedSplitTimeline(t *testing.T, store ports.AtomStore, userID string) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		saveTestAtom(t, ctx, store, userID, compileEpoch.AddDate(0, 0, i), fmt.Sprintf("january moment %d", i))
	}
	resume := compileEpoch.AddDate(0, 0, 14+45)
	for i := 0; i < 10; i++ {
		saveTestAtom(t, ctx, store, userID, resume.AddDate(0, 0, i), fmt.Sprintf("spring moment %d", i))
	}
}

func saveTestAtom(t *testing.T, ctx context.Context, store ports.AtomStore, userID string, ts time.Time, content string) {
	t.Helper()
	atom, err := entities.ReconstructAtom(
		valueobjects.NewAtomID(), userID, entities.AtomEvent, ts,
		[]string{"music"}, nil, nil,
		0.5, 0.1, 0.5, content, nil, false, entities.NoMetadata{},
	)
	require.NoError(t, err)
	require.NoError(t, store.SaveAtom(ctx, atom))
}

func summarySpec(userID string) valueobjects.BiographySpec {
	return valueobjects.BiographySpec{
		UserID: userID,
		Scope:  valueobjects.ScopeFullLife,
		Depth:  valueobjects.DepthSummary,
	}
}

func TestBiographyAssembler_CompilesChaptersAroundAVoid(t *testing.T) {
	env := newTestEnv(t, memory.NewBiographyStore())
	seedSplitTimeline(t, env.atoms, "user-1")

	bio, err := env.assembler.Compile(context.Background(), summarySpec("user-1"))

	require.NoError(t, err)
	chapters := bio.Chapters()
	require.Len(t, chapters, 3)

	assert.False(t, chapters[0].IsVoid())
	assert.True(t, chapters[1].IsVoid())
	assert.False(t, chapters[2].IsVoid())
	assert.Equal(t, entities.VoidMediumGap, chapters[1].Void().Type())

	assert.True(t, chapters[0].StartTime().Before(chapters[2].StartTime()))
	assert.Equal(t, "A Life in 2 Chapters", bio.Title())
	assert.Equal(t, valueobjects.VersionMain, bio.Version())

	meta := bio.Metadata()
	assert.Equal(t, 20, meta.AtomCount, "summary depth caps the working set")
	assert.Equal(t, 1, meta.VoidCount)
	require.NotNil(t, meta.Quality)
	assert.Greater(t, meta.Quality.Overall, 0.0)
}

func TestBiographyAssembler_NarratedProseLandsOnChapters(t *testing.T) {
	env := newTestEnv(t, memory.NewBiographyStore())
	seedSplitTimeline(t, env.atoms, "user-1")

	bio, err := env.assembler.Compile(context.Background(), summarySpec("user-1"))

	require.NoError(t, err)
	for _, chapter := range bio.RegularChapters() {
		assert.Equal(t, "A Season", chapter.Title())
		assert.Equal(t, "a season passed", chapter.Narrative())
		assert.False(t, chapter.FromFallback())
	}
	for _, chapter := range bio.VoidChapters() {
		assert.Contains(t, chapter.Narrative(), "days passed without a recorded moment")
	}
}

func TestBiographyAssembler_NarratorSeesChapterComposition(t *testing.T) {
	env := newTestEnv(t, memory.NewBiographyStore())
	seedSplitTimeline(t, env.atoms, "user-1")

	_, err := env.assembler.Compile(context.Background(), summarySpec("user-1"))
	require.NoError(t, err)

	// The last narrated chapter holds the five post-gap atoms, all events
	// in the music domain.
	got := env.narrator.lastContext()
	assert.Equal(t, map[entities.AtomType]int{entities.AtomEvent: 5}, got.TypeCounts)
	assert.Equal(t, map[string]int{"music": 5}, got.DomainCounts)
	assert.Len(t, got.Atoms, 5)
}

func TestBiographyAssembler_NoAtomsForUser(t *testing.T) {
	env := newTestEnv(t, memory.NewBiographyStore())

	_, err := env.assembler.Compile(context.Background(), summarySpec("user-unknown"))

	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeNoAtoms))
}

func TestBiographyAssembler_TimeRangeScopeRequiresRange(t *testing.T) {
	env := newTestEnv(t, memory.NewBiographyStore())

	spec := summarySpec("user-1")
	spec.Scope = valueobjects.ScopeTimeRange

	_, err := env.assembler.Compile(context.Background(), spec)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeValidation))
}

func TestBiographyAssembler_SecondRunReusesCachedGraph(t *testing.T) {
	env := newTestEnv(t, memory.NewBiographyStore())
	seedSplitTimeline(t, env.atoms, "user-1")

	_, err := env.assembler.Compile(context.Background(), summarySpec("user-1"))
	require.NoError(t, err)
	_, err = env.assembler.Compile(context.Background(), summarySpec("user-1"))
	require.NoError(t, err)

	assert.Equal(t, 1, env.atoms.getCount())
}

func TestBiographyAssembler_StaleCachedGraphIsRebuilt(t *testing.T) {
	env := newTestEnv(t, memory.NewBiographyStore())
	seedSplitTimeline(t, env.atoms, "user-1")

	now := time.Now()
	_, err := env.assembler.Compile(context.Background(), summarySpec("user-1"))
	require.NoError(t, err)

	env.assembler.WithClock(func() time.Time { return now.Add(25 * time.Hour) })
	_, err = env.assembler.Compile(context.Background(), summarySpec("user-1"))
	require.NoError(t, err)

	assert.Equal(t, 2, env.atoms.getCount())
}

func TestBiographyAssembler_PersistenceFailureIsSwallowed(t *testing.T) {
	env := newTestEnv(t, failingBiographyStore{})
	seedSplitTimeline(t, env.atoms, "user-1")

	bio, err := env.assembler.Compile(context.Background(), summarySpec("user-1"))

	require.NoError(t, err)
	require.NotNil(t, bio)
}

func TestBiographyAssembler_SavedBiographyIsRetrievable(t *testing.T) {
	env := newTestEnv(t, memory.NewBiographyStore())
	seedSplitTimeline(t, env.atoms, "user-1")

	bio, err := env.assembler.Compile(context.Background(), summarySpec("user-1"))
	require.NoError(t, err)

	loaded, err := env.bios.GetByID(context.Background(), bio.ID())
	require.NoError(t, err)
	assert.Equal(t, bio.Title(), loaded.Title())
}

func TestBiographyAssembler_RepeatRunsHashIdentically(t *testing.T) {
	env := newTestEnv(t, memory.NewBiographyStore())
	seedSplitTimeline(t, env.atoms, "user-1")

	first, err := env.assembler.Compile(context.Background(), summarySpec("user-1"))
	require.NoError(t, err)
	second, err := env.assembler.Compile(context.Background(), summarySpec("user-1"))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, first.Metadata().AtomHashes, second.Metadata().AtomHashes)
}
