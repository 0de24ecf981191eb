package entities

import (
	"time"

	"lorekeeper-backend/domain/core/valueobjects"
	pkgerrors "lorekeeper-backend/pkg/errors"
)

// QualityFinding is one itemized observation from a validation check
type QualityFinding struct {
	Check    string
	Severity string // info, warning
	Message  string
}

// QualityReport carries the advisory quality scores attached to a biography.
// It never blocks assembly.
type QualityReport struct {
	TemporalAccuracy  float64
	SourceFidelity    float64
	Completeness      float64
	ConflictAwareness float64
	Overall           float64
	Findings          []QualityFinding
}

// TimePeriod is a higher-level grouping of chapters produced by the
// time-period analyzer
type TimePeriod struct {
	Label          string
	Span           valueobjects.TimeSpan
	ChapterIDs     []valueobjects.ChapterID
	DominantThemes []string
}

// BiographyMetadata records provenance and derived analysis for a biography
type BiographyMetadata struct {
	AtomCount          int
	DroppedAtomCount   int // singleton low-significance atoms dropped by clustering
	VoidCount          int
	AppliedFilters     []string
	AtomHashes         []string // ordered content hashes, for provenance
	SnapshotTime       time.Time
	CrossCuttingThemes []string
	TimePeriods        []TimePeriod
	Quality            *QualityReport
	GraphStats         GraphStats
}

// GraphStats summarizes the narrative graph a run was built from
type GraphStats struct {
	AtomCount       int
	EdgeCount       int
	AvgEdgeWeight   float64
	MostConnectedID string
}

// Biography is the assembled output of one pipeline run: ordered chapters
// (regular and void) plus provenance metadata. Biographies are produced once
// per run and never edited in place; alternate versions are new instances
// linked through BaseID.
type Biography struct {
	id        valueobjects.BiographyID
	baseID    valueobjects.BiographyID
	userID    string
	title     string
	subtitle  string
	version   valueobjects.BuildVersion
	chapters  []*ChapterCluster
	metadata  BiographyMetadata
	createdAt time.Time
}

// NewBiography assembles a biography from ordered chapters
func NewBiography(
	userID string,
	title string,
	subtitle string,
	version valueobjects.BuildVersion,
	chapters []*ChapterCluster,
	metadata BiographyMetadata,
	createdAt time.Time,
) (*Biography, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if len(chapters) == 0 {
		return nil, pkgerrors.NewValidationError("biography requires at least one chapter")
	}

	id := valueobjects.NewBiographyID()
	ordered := make([]*ChapterCluster, len(chapters))
	copy(ordered, chapters)

	return &Biography{
		id:        id,
		baseID:    id, // a fresh biography is its own version root
		userID:    userID,
		title:     title,
		subtitle:  subtitle,
		version:   version.OrDefault(),
		chapters:  ordered,
		metadata:  metadata,
		createdAt: createdAt,
	}, nil
}

// ReconstructBiography rebuilds a persisted biography without re-running
// assembly validation
func ReconstructBiography(
	id valueobjects.BiographyID,
	baseID valueobjects.BiographyID,
	userID string,
	title string,
	subtitle string,
	version valueobjects.BuildVersion,
	chapters []*ChapterCluster,
	metadata BiographyMetadata,
	createdAt time.Time,
) *Biography {
	return &Biography{
		id:        id,
		baseID:    baseID,
		userID:    userID,
		title:     title,
		subtitle:  subtitle,
		version:   version.OrDefault(),
		chapters:  chapters,
		metadata:  metadata,
		createdAt: createdAt,
	}
}

// ID returns the biography's identifier
func (b *Biography) ID() valueobjects.BiographyID {
	return b.id
}

// BaseID returns the version root this biography belongs to
func (b *Biography) BaseID() valueobjects.BiographyID {
	return b.baseID
}

// LinkToBase marks this biography as an alternate version of another
func (b *Biography) LinkToBase(base valueobjects.BiographyID) {
	if !base.IsZero() {
		b.baseID = base
	}
}

// UserID returns the subject's ID
func (b *Biography) UserID() string {
	return b.userID
}

// Title returns the biography title
func (b *Biography) Title() string {
	return b.title
}

// Subtitle returns the biography subtitle
func (b *Biography) Subtitle() string {
	return b.subtitle
}

// Version returns the build flag the biography was filtered under
func (b *Biography) Version() valueobjects.BuildVersion {
	return b.version
}

// Chapters returns the ordered chapter list, voids included
func (b *Biography) Chapters() []*ChapterCluster {
	chapters := make([]*ChapterCluster, len(b.chapters))
	copy(chapters, b.chapters)
	return chapters
}

// RegularChapters returns only non-void chapters, in order
func (b *Biography) RegularChapters() []*ChapterCluster {
	var out []*ChapterCluster
	for _, c := range b.chapters {
		if !c.IsVoid() {
			out = append(out, c)
		}
	}
	return out
}

// VoidChapters returns only void chapters, in order
func (b *Biography) VoidChapters() []*ChapterCluster {
	var out []*ChapterCluster
	for _, c := range b.chapters {
		if c.IsVoid() {
			out = append(out, c)
		}
	}
	return out
}

// Metadata returns the biography's provenance metadata
func (b *Biography) Metadata() BiographyMetadata {
	return b.metadata
}

// AttachQuality records the advisory quality report
func (b *Biography) AttachQuality(report *QualityReport) {
	b.metadata.Quality = report
}

// CreatedAt returns when the biography was assembled
func (b *Biography) CreatedAt() time.Time {
	return b.createdAt
}
