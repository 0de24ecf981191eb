package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lorekeeper-backend/domain/core/entities"
	"lorekeeper-backend/domain/core/valueobjects"
	"lorekeeper-backend/infrastructure/persistence/memory"
	pkgerrors "lorekeeper-backend/pkg/errors"
)

func detailedSpec(userID string) valueobjects.BiographySpec {
	spec := summarySpec(userID)
	spec.Depth = valueobjects.DepthDetailed
	return spec
}

func seedSensitiveAtoms(t *testing.T, env *testEnv, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		atom, err := entities.ReconstructAtom(
			valueobjects.NewAtomID(), "user-1", entities.AtomConflict,
			compileEpoch.AddDate(0, 0, i).Add(time.Hour),
			[]string{"music"}, []string{"alice"}, nil,
			0.5, 0.9, 0.5, "a private falling out", nil, false, entities.NoMetadata{},
		)
		require.NoError(t, err)
		require.NoError(t, env.atoms.SaveAtom(ctx, atom))
	}
}

func TestVersionManager_GenerateVersionLinksToBaseRoot(t *testing.T) {
	env := newTestEnv(t, memory.NewBiographyStore())
	manager := NewVersionManager(env.assembler, env.bios, zap.NewNop())
	seedSplitTimeline(t, env.atoms, "user-1")
	seedSensitiveAtoms(t, env, 3)

	base, err := env.assembler.Compile(context.Background(), detailedSpec("user-1"))
	require.NoError(t, err)

	safe, err := manager.GenerateVersion(context.Background(), base, detailedSpec("user-1"), valueobjects.VersionSafe)
	require.NoError(t, err)

	assert.Equal(t, base.BaseID(), safe.BaseID())
	assert.Equal(t, valueobjects.VersionSafe, safe.Version())
	assert.NotEqual(t, base.ID(), safe.ID())

	versions, err := manager.Versions(context.Background(), base.BaseID())
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, base.ID(), versions[0].ID())
	assert.Equal(t, safe.ID(), versions[1].ID())
}

func TestVersionManager_SafeBuildCarriesFewerAtoms(t *testing.T) {
	env := newTestEnv(t, memory.NewBiographyStore())
	manager := NewVersionManager(env.assembler, env.bios, zap.NewNop())
	seedSplitTimeline(t, env.atoms, "user-1")
	seedSensitiveAtoms(t, env, 3)

	base, err := env.assembler.Compile(context.Background(), detailedSpec("user-1"))
	require.NoError(t, err)

	safe, err := manager.GenerateVersion(context.Background(), base, detailedSpec("user-1"), valueobjects.VersionSafe)
	require.NoError(t, err)

	cmp := manager.Compare(base, safe)

	assert.Equal(t, valueobjects.VersionMain, cmp.BaseVersion)
	assert.Equal(t, valueobjects.VersionSafe, cmp.OtherVersion)
	assert.Equal(t, -3, cmp.AtomCountDelta)
}

func TestVersionManager_GenerateVersionRejectsBadInput(t *testing.T) {
	env := newTestEnv(t, memory.NewBiographyStore())
	manager := NewVersionManager(env.assembler, env.bios, zap.NewNop())
	seedSplitTimeline(t, env.atoms, "user-1")

	base, err := env.assembler.Compile(context.Background(), summarySpec("user-1"))
	require.NoError(t, err)

	_, err = manager.GenerateVersion(context.Background(), nil, summarySpec("user-1"), valueobjects.VersionSafe)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeValidation))

	_, err = manager.GenerateVersion(context.Background(), base, summarySpec("user-1"), valueobjects.BuildVersion("director"))
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeValidation))

	_, err = manager.GenerateVersion(context.Background(), base, summarySpec("someone-else"), valueobjects.VersionSafe)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeValidation))
}

func TestVersionManager_CompareReportsChapterChanges(t *testing.T) {
	env := newTestEnv(t, memory.NewBiographyStore())
	manager := NewVersionManager(env.assembler, env.bios, zap.NewNop())

	atomA := []*entities.NarrativeAtom{compareAtom(t, "a steady year")}
	atomB := []*entities.NarrativeAtom{compareAtom(t, "a hidden year")}

	base := compareBiography(t, valueobjects.VersionPrivate, 10,
		compareChapter(t, atomA, "The Steady Year"),
		compareChapter(t, atomB, "The Hidden Year"),
	)
	other := compareBiography(t, valueobjects.VersionSafe, 6,
		compareChapter(t, atomA, "The Steady Year"),
	)

	cmp := manager.Compare(base, other)

	assert.Empty(t, cmp.AddedChapters)
	assert.Equal(t, []string{"The Hidden Year"}, cmp.RemovedChapters)
	assert.Equal(t, -4, cmp.AtomCountDelta)
}

func compareAtom(t *testing.T, content string) *entities.NarrativeAtom {
	t.Helper()
	atom, err := entities.ReconstructAtom(
		valueobjects.NewAtomID(), "user-1", entities.AtomEvent, compileEpoch,
		[]string{"music"}, nil, nil,
		0.5, 0.1, 0.5, content, nil, false, entities.NoMetadata{},
	)
	require.NoError(t, err)
	return atom
}

func compareChapter(t *testing.T, atoms []*entities.NarrativeAtom, title string) *entities.ChapterCluster {
	t.Helper()
	chapter, err := entities.NewChapterCluster(atoms, []string{"music"}, "")
	require.NoError(t, err)
	chapter.AttachNarrative(title, "narrative", false)
	return chapter
}

func compareBiography(t *testing.T, version valueobjects.BuildVersion, atomCount int, chapters ...*entities.ChapterCluster) *entities.Biography {
	t.Helper()
	bio, err := entities.NewBiography(
		"user-1", "A Life", "", version, chapters,
		entities.BiographyMetadata{AtomCount: atomCount}, compileEpoch,
	)
	require.NoError(t, err)
	return bio
}
