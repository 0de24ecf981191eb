package entities

import (
	"sort"
	"time"

	"lorekeeper-backend/domain/core/valueobjects"
	pkgerrors "lorekeeper-backend/pkg/errors"
)

// ChapterCluster groups atoms assigned to one narrative chapter. Clusters
// are created during clustering and consumed read-only downstream, except
// for the attached title and narrative text.
type ChapterCluster struct {
	id                valueobjects.ChapterID
	atoms             []*NarrativeAtom
	dominantThemes    []string
	span              valueobjects.TimeSpan
	avgSignificance   float64
	timelineChapterID string // back-reference to a scaffolding chapter, empty for discovered clusters
	void              *VoidPeriod
	typeCounts        map[AtomType]int
	domainCounts      map[string]int

	title     string
	narrative string
	fallback  bool // narrative came from the template generator
}

// NewChapterCluster builds a cluster from member atoms. The time span is
// derived from the min/max member timestamps; atoms are kept in
// chronological order.
func NewChapterCluster(atoms []*NarrativeAtom, dominantThemes []string, timelineChapterID string) (*ChapterCluster, error) {
	if len(atoms) == 0 {
		return nil, pkgerrors.NewValidationError("chapter cluster requires at least one atom")
	}

	members := make([]*NarrativeAtom, len(atoms))
	copy(members, atoms)
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Timestamp().Before(members[j].Timestamp())
	})

	var total float64
	typeCounts := make(map[AtomType]int)
	domainCounts := make(map[string]int)
	for _, atom := range members {
		total += atom.Significance()
		typeCounts[atom.Type()]++
		for _, d := range atom.Domains() {
			domainCounts[d]++
		}
	}

	span, err := valueobjects.NewTimeSpan(members[0].Timestamp(), members[len(members)-1].Timestamp())
	if err != nil {
		return nil, err
	}

	return &ChapterCluster{
		id:                valueobjects.NewChapterID(),
		atoms:             members,
		dominantThemes:    copyStrings(dominantThemes),
		span:              span,
		avgSignificance:   total / float64(len(members)),
		timelineChapterID: timelineChapterID,
		typeCounts:        typeCounts,
		domainCounts:      domainCounts,
	}, nil
}

// NewVoidChapter wraps a void period as a chapter so it can be merged into
// the ordered chapter list
func NewVoidChapter(void *VoidPeriod) *ChapterCluster {
	return &ChapterCluster{
		id:   valueobjects.NewChapterID(),
		span: void.Span(),
		void: void,
	}
}

// ReconstructChapter rebuilds a persisted chapter. Atoms may be absent when
// a store keeps only their IDs; the span is trusted as stored rather than
// re-derived.
func ReconstructChapter(
	id valueobjects.ChapterID,
	atoms []*NarrativeAtom,
	dominantThemes []string,
	span valueobjects.TimeSpan,
	avgSignificance float64,
	timelineChapterID string,
	void *VoidPeriod,
	title string,
	narrative string,
	fallback bool,
) *ChapterCluster {
	return &ChapterCluster{
		id:                id,
		atoms:             atoms,
		dominantThemes:    copyStrings(dominantThemes),
		span:              span,
		avgSignificance:   avgSignificance,
		timelineChapterID: timelineChapterID,
		void:              void,
		title:             title,
		narrative:         narrative,
		fallback:          fallback,
	}
}

// ID returns the chapter's identifier
func (c *ChapterCluster) ID() valueobjects.ChapterID {
	return c.id
}

// Atoms returns the member atoms in chronological order
func (c *ChapterCluster) Atoms() []*NarrativeAtom {
	atoms := make([]*NarrativeAtom, len(c.atoms))
	copy(atoms, c.atoms)
	return atoms
}

// AtomCount returns the number of member atoms
func (c *ChapterCluster) AtomCount() int {
	return len(c.atoms)
}

// ContainsAtom reports whether the given atom is a member
func (c *ChapterCluster) ContainsAtom(id valueobjects.AtomID) bool {
	for _, atom := range c.atoms {
		if atom.ID().Equals(id) {
			return true
		}
	}
	return false
}

// DominantThemes returns the cluster's leading themes
func (c *ChapterCluster) DominantThemes() []string {
	return copyStrings(c.dominantThemes)
}

// Span returns the interval covered by member timestamps
func (c *ChapterCluster) Span() valueobjects.TimeSpan {
	return c.span
}

// StartTime returns the chapter's opening instant
func (c *ChapterCluster) StartTime() time.Time {
	return c.span.Start()
}

// AvgSignificance returns the mean member significance
func (c *ChapterCluster) AvgSignificance() float64 {
	return c.avgSignificance
}

// TimelineChapterID returns the scaffolding back-reference, empty for
// clusters discovered by temporal-thematic fallback
func (c *ChapterCluster) TimelineChapterID() string {
	return c.timelineChapterID
}

// IsVoid reports whether the chapter represents a detected gap
func (c *ChapterCluster) IsVoid() bool {
	return c.void != nil
}

// Void returns the wrapped void period, nil for regular chapters
func (c *ChapterCluster) Void() *VoidPeriod {
	return c.void
}

// TypeCounts returns the per-atom-type histogram
func (c *ChapterCluster) TypeCounts() map[AtomType]int {
	out := make(map[AtomType]int, len(c.typeCounts))
	for k, v := range c.typeCounts {
		out[k] = v
	}
	return out
}

// DomainCounts returns the per-domain histogram
func (c *ChapterCluster) DomainCounts() map[string]int {
	out := make(map[string]int, len(c.domainCounts))
	for k, v := range c.domainCounts {
		out[k] = v
	}
	return out
}

// Title returns the attached chapter title, empty until narration
func (c *ChapterCluster) Title() string {
	return c.title
}

// Narrative returns the attached prose, empty until narration
func (c *ChapterCluster) Narrative() string {
	return c.narrative
}

// FromFallback reports whether the narrative came from the deterministic
// template instead of the narrator collaborator
func (c *ChapterCluster) FromFallback() bool {
	return c.fallback
}

// AttachNarrative records the generated title and prose
func (c *ChapterCluster) AttachNarrative(title, narrative string, fromFallback bool) {
	c.title = title
	c.narrative = narrative
	c.fallback = fromFallback
}
