package services

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"lorekeeper-backend/application/ports"
	"lorekeeper-backend/domain/core/entities"
	"lorekeeper-backend/domain/core/valueobjects"
	pkgerrors "lorekeeper-backend/pkg/errors"
)

// VersionComparison summarizes how two builds of the same life diverge
type VersionComparison struct {
	BaseVersion     valueobjects.BuildVersion
	OtherVersion    valueobjects.BuildVersion
	AddedChapters   []string // chapter titles only present in the other build
	RemovedChapters []string // chapter titles only present in the base build
	AtomCountDelta  int
	VoidCountDelta  int
}

// VersionManager produces alternate builds of an existing biography and
// compares builds. An alternate build is a full pipeline re-run under a
// different build flag, linked to the original through its version root.
type VersionManager struct {
	assembler *BiographyAssembler
	store     ports.BiographyStore
	logger    *zap.Logger
}

// NewVersionManager creates a version manager
func NewVersionManager(assembler *BiographyAssembler, store ports.BiographyStore, logger *zap.Logger) *VersionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VersionManager{assembler: assembler, store: store, logger: logger}
}

// GenerateVersion re-runs the pipeline under the requested build flag and
// links the result to the base biography's version root. The spec must be
// the one the base was compiled from; only the version differs.
func (m *VersionManager) GenerateVersion(
	ctx context.Context,
	base *entities.Biography,
	spec valueobjects.BiographySpec,
	version valueobjects.BuildVersion,
) (*entities.Biography, error) {
	if base == nil {
		return nil, pkgerrors.NewValidationError("base biography required")
	}
	if !version.IsValid() {
		return nil, pkgerrors.NewValidationError("unknown build version: " + string(version))
	}
	if base.UserID() != spec.UserID {
		return nil, pkgerrors.NewValidationError("spec does not belong to the base biography's subject")
	}

	spec.Version = version
	bio, err := m.assembler.Compile(ctx, spec)
	if err != nil {
		return nil, err
	}

	bio.LinkToBase(base.BaseID())

	// The compile already saved the biography under its own root; re-save so
	// the version index reflects the link.
	if saveErr := m.store.Save(ctx, bio); saveErr != nil {
		m.logger.Warn("version link persistence failed",
			zap.String("biographyID", string(bio.ID())),
			zap.Error(saveErr),
		)
	}

	m.logger.Info("alternate version generated",
		zap.String("userID", spec.UserID),
		zap.String("baseID", string(base.BaseID())),
		zap.String("version", string(version)),
	)

	return bio, nil
}

// Versions retrieves every build sharing the base's version root
func (m *VersionManager) Versions(ctx context.Context, baseID valueobjects.BiographyID) ([]*entities.Biography, error) {
	return m.store.GetVersions(ctx, baseID)
}

// Compare reports how another build diverges from a base build. Chapters are
// matched by title; stricter builds are expected to lose chapters, never
// gain atoms.
func (m *VersionManager) Compare(base, other *entities.Biography) VersionComparison {
	baseTitles := chapterTitleSet(base)
	otherTitles := chapterTitleSet(other)

	cmp := VersionComparison{
		BaseVersion:  base.Version(),
		OtherVersion: other.Version(),
	}
	for _, title := range sortedTitles(otherTitles) {
		if !baseTitles[title] {
			cmp.AddedChapters = append(cmp.AddedChapters, title)
		}
	}
	for _, title := range sortedTitles(baseTitles) {
		if !otherTitles[title] {
			cmp.RemovedChapters = append(cmp.RemovedChapters, title)
		}
	}
	cmp.AtomCountDelta = other.Metadata().AtomCount - base.Metadata().AtomCount
	cmp.VoidCountDelta = other.Metadata().VoidCount - base.Metadata().VoidCount

	return cmp
}

func chapterTitleSet(bio *entities.Biography) map[string]bool {
	titles := make(map[string]bool)
	for _, chapter := range bio.RegularChapters() {
		titles[chapter.Title()] = true
	}
	return titles
}

func sortedTitles(set map[string]bool) []string {
	titles := make([]string, 0, len(set))
	for title := range set {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles
}
