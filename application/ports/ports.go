package ports

import (
	"context"

	"lorekeeper-backend/domain/core/aggregates"
	"lorekeeper-backend/domain/core/entities"
	"lorekeeper-backend/domain/core/valueobjects"
)

// AtomStore defines the interface for narrative atom persistence.
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type AtomStore interface {
	// GetAtoms retrieves every narrative atom recorded for a user
	GetAtoms(ctx context.Context, userID string) ([]*entities.NarrativeAtom, error)

	// SaveAtom persists a single atom. Atoms are immutable, so a save for an
	// existing ID is rejected rather than overwritten.
	SaveAtom(ctx context.Context, atom *entities.NarrativeAtom) error
}

// TimelineStore defines the interface for timeline hierarchy retrieval
type TimelineStore interface {
	// GetHierarchy retrieves the user's saga/arc/chapter scaffolding, if any
	GetHierarchy(ctx context.Context, userID string) (*valueobjects.TimelineHierarchy, error)
}

// BiographyStore defines the interface for assembled biography persistence
type BiographyStore interface {
	// Save persists an assembled biography
	Save(ctx context.Context, bio *entities.Biography) error

	// GetByID retrieves a previously assembled biography
	GetByID(ctx context.Context, id valueobjects.BiographyID) (*entities.Biography, error)

	// GetVersions retrieves all biographies sharing a version root, oldest first
	GetVersions(ctx context.Context, baseID valueobjects.BiographyID) ([]*entities.Biography, error)
}

// GraphCache caches built narrative graphs between runs so unchanged
// timelines skip the rebuild
type GraphCache interface {
	// Get returns the cached graph for a user, or ok=false on a miss
	Get(ctx context.Context, userID string) (*aggregates.NarrativeGraph, bool)

	// Put stores a freshly built graph
	Put(ctx context.Context, graph *aggregates.NarrativeGraph)

	// Invalidate drops a user's cached graph
	Invalidate(ctx context.Context, userID string)
}

// ChapterContext is everything a narrator needs to write one chapter. The
// type and domain histograms let a narrator weight its framing without
// re-counting the atom list.
type ChapterContext struct {
	UserID         string
	Atoms          []*entities.NarrativeAtom
	DominantThemes []string
	Span           valueobjects.TimeSpan
	TypeCounts     map[entities.AtomType]int
	DomainCounts   map[string]int
	Tone           valueobjects.Tone
	Audience       valueobjects.Audience
	Introspective  bool
	ChapterIndex   int
	ChapterTotal   int
}

// GeneratedChapter is a narrator's output for one chapter
type GeneratedChapter struct {
	Title     string
	Narrative string
}

// ChapterNarrator turns a chapter's atoms into prose. Implementations are
// expected to be unreliable collaborators; callers wrap them with retry and
// breaker logic rather than trusting a single call.
type ChapterNarrator interface {
	Generate(ctx context.Context, chapterCtx ChapterContext) (*GeneratedChapter, error)
}
