package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lorekeeper-backend/domain/config"
	"lorekeeper-backend/domain/core/entities"
	"lorekeeper-backend/domain/core/valueobjects"
	"lorekeeper-backend/domain/services"
	pkgerrors "lorekeeper-backend/pkg/errors"
)

var storeEpoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func storedAtom(t *testing.T, userID string, ts time.Time) *entities.NarrativeAtom {
	t.Helper()
	atom, err := entities.ReconstructAtom(
		valueobjects.NewAtomID(), userID, entities.AtomEvent, ts,
		[]string{"music"}, nil, nil,
		0.5, 0.1, 0.5, "a stored moment", nil, false, entities.NoMetadata{},
	)
	require.NoError(t, err)
	return atom
}

func TestAtomStore_GetAtomsOldestFirst(t *testing.T) {
	store := NewAtomStore()
	ctx := context.Background()

	late := storedAtom(t, "user-1", storeEpoch.AddDate(0, 1, 0))
	early := storedAtom(t, "user-1", storeEpoch)
	require.NoError(t, store.SaveAtom(ctx, late))
	require.NoError(t, store.SaveAtom(ctx, early))

	atoms, err := store.GetAtoms(ctx, "user-1")

	require.NoError(t, err)
	require.Len(t, atoms, 2)
	assert.Equal(t, early.ID(), atoms[0].ID())
	assert.Equal(t, late.ID(), atoms[1].ID())
}

func TestAtomStore_DuplicateIDIsAConflict(t *testing.T) {
	store := NewAtomStore()
	ctx := context.Background()

	atom := storedAtom(t, "user-1", storeEpoch)
	require.NoError(t, store.SaveAtom(ctx, atom))

	err := store.SaveAtom(ctx, atom)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeConflict))
}

func TestAtomStore_IsolatesUsers(t *testing.T) {
	store := NewAtomStore()
	ctx := context.Background()

	require.NoError(t, store.SaveAtom(ctx, storedAtom(t, "user-1", storeEpoch)))
	require.NoError(t, store.SaveAtom(ctx, storedAtom(t, "user-2", storeEpoch)))

	atoms, err := store.GetAtoms(ctx, "user-1")

	require.NoError(t, err)
	assert.Len(t, atoms, 1)
}

func TestGraphCache_RoundTripAndInvalidate(t *testing.T) {
	cache := NewGraphCache()
	ctx := context.Background()

	builder := services.NewGraphBuilder(config.DefaultDomainConfig(), zap.NewNop())
	graph, err := builder.Build("user-1", []*entities.NarrativeAtom{storedAtom(t, "user-1", storeEpoch)})
	require.NoError(t, err)

	cache.Put(ctx, graph)

	got, ok := cache.Get(ctx, "user-1")
	require.True(t, ok)
	assert.Equal(t, graph, got)

	cache.Invalidate(ctx, "user-1")

	_, ok = cache.Get(ctx, "user-1")
	assert.False(t, ok)
}

func TestTimelineStore_MissingHierarchyIsNil(t *testing.T) {
	store := NewTimelineStore()

	hierarchy, err := store.GetHierarchy(context.Background(), "user-unknown")

	require.NoError(t, err)
	assert.Nil(t, hierarchy)
}

func TestTimelineStore_RoundTrip(t *testing.T) {
	store := NewTimelineStore()
	ctx := context.Background()

	hierarchy := &valueobjects.TimelineHierarchy{
		Sagas: []valueobjects.TimelineSaga{{
			ID:    "saga-1",
			Title: "Early Years",
			Arcs: []valueobjects.TimelineArc{{
				ID:    "arc-1",
				Title: "School",
				Chapters: []valueobjects.TimelineChapter{{
					ID:    "ch-1",
					Title: "First Band",
					Span:  valueobjects.MustTimeSpan(storeEpoch, storeEpoch.AddDate(1, 0, 0)),
				}},
			}},
		}},
	}
	store.PutHierarchy("user-1", hierarchy)

	got, err := store.GetHierarchy(ctx, "user-1")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.FlattenChapters(), 1)
}

func TestBiographyStore_VersionsFollowRelinking(t *testing.T) {
	store := NewBiographyStore()
	ctx := context.Background()

	chapter := func() *entities.ChapterCluster {
		c, err := entities.NewChapterCluster(
			[]*entities.NarrativeAtom{storedAtom(t, "user-1", storeEpoch)}, []string{"music"}, "")
		require.NoError(t, err)
		return c
	}

	base, err := entities.NewBiography("user-1", "A Life", "", valueobjects.VersionMain,
		[]*entities.ChapterCluster{chapter()}, entities.BiographyMetadata{}, storeEpoch)
	require.NoError(t, err)
	other, err := entities.NewBiography("user-1", "A Life", "", valueobjects.VersionSafe,
		[]*entities.ChapterCluster{chapter()}, entities.BiographyMetadata{}, storeEpoch)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, base))
	require.NoError(t, store.Save(ctx, other))

	other.LinkToBase(base.BaseID())
	require.NoError(t, store.Save(ctx, other))

	versions, err := store.GetVersions(ctx, base.BaseID())
	require.NoError(t, err)
	require.Len(t, versions, 2)

	orphaned, err := store.GetVersions(ctx, other.ID())
	require.NoError(t, err)
	assert.Empty(t, orphaned)
}
