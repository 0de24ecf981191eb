package services

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"lorekeeper-backend/domain/core/aggregates"
	"lorekeeper-backend/domain/core/entities"
	"lorekeeper-backend/domain/core/valueobjects"
)

// SpecFilter narrows a graph's atoms to those matching a BiographySpec and
// ranks the survivors. Its output is the authoritative working set for the
// rest of the pipeline.
type SpecFilter struct {
	logger *zap.Logger
}

// NewSpecFilter creates a spec filter
func NewSpecFilter(logger *zap.Logger) *SpecFilter {
	return &SpecFilter{logger: logger}
}

// Apply filters the graph's atoms through the spec's domain, time-range,
// theme, people, and entity filters in that order, then ranks descending by
// significance × emotionalWeight (ties keep original index order) and
// truncates to the depth-dependent ceiling.
func (f *SpecFilter) Apply(graph *aggregates.NarrativeGraph, spec valueobjects.BiographySpec) []*entities.NarrativeAtom {
	atoms := f.applyDomainFilter(graph, spec)
	atoms = f.applyTimeRangeFilter(atoms, spec)
	atoms = f.applyThemeFilter(atoms, spec)
	atoms = f.applyPeopleFilter(atoms, spec)
	atoms = f.applyEntityFilters(atoms, spec)

	ranked := rankBySignificance(atoms)

	ceiling := spec.Depth.AtomCeiling()
	if len(ranked) > ceiling {
		ranked = ranked[:ceiling]
	}

	f.logger.Debug("spec filter applied",
		zap.String("userID", spec.UserID),
		zap.Int("graphAtoms", graph.AtomCount()),
		zap.Int("workingSet", len(ranked)),
	)

	return ranked
}

// applyDomainFilter uses the graph's domain index when it has the key and
// falls back to a full scan otherwise
func (f *SpecFilter) applyDomainFilter(graph *aggregates.NarrativeGraph, spec valueobjects.BiographySpec) []*entities.NarrativeAtom {
	if spec.Domain == "" {
		return graph.AtomsByTime()
	}

	if atoms, ok := graph.AtomsByDomain(spec.Domain); ok {
		return atoms
	}

	// Index miss: scan. Kept for graphs cached before the domain existed.
	var out []*entities.NarrativeAtom
	for _, atom := range graph.AtomsByTime() {
		if atom.HasDomain(spec.Domain) {
			out = append(out, atom)
		}
	}
	return out
}

func (f *SpecFilter) applyTimeRangeFilter(atoms []*entities.NarrativeAtom, spec valueobjects.BiographySpec) []*entities.NarrativeAtom {
	if spec.TimeRange == nil {
		return atoms
	}
	var out []*entities.NarrativeAtom
	for _, atom := range atoms {
		if spec.TimeRange.Contains(atom.Timestamp()) {
			out = append(out, atom)
		}
	}
	return out
}

// applyThemeFilter keeps atoms whose content, tags, or domains contain any
// requested theme as a case-insensitive substring
func (f *SpecFilter) applyThemeFilter(atoms []*entities.NarrativeAtom, spec valueobjects.BiographySpec) []*entities.NarrativeAtom {
	if len(spec.Themes) == 0 {
		return atoms
	}
	var out []*entities.NarrativeAtom
	for _, atom := range atoms {
		if atomMatchesAnyTheme(atom, spec.Themes) {
			out = append(out, atom)
		}
	}
	return out
}

func atomMatchesAnyTheme(atom *entities.NarrativeAtom, themes []string) bool {
	haystack := strings.ToLower(atom.Content() + " " +
		strings.Join(atom.Tags(), " ") + " " +
		strings.Join(atom.Domains(), " "))
	for _, theme := range themes {
		if theme != "" && strings.Contains(haystack, strings.ToLower(theme)) {
			return true
		}
	}
	return false
}

func (f *SpecFilter) applyPeopleFilter(atoms []*entities.NarrativeAtom, spec valueobjects.BiographySpec) []*entities.NarrativeAtom {
	if len(spec.PeopleIDs) == 0 {
		return atoms
	}
	var out []*entities.NarrativeAtom
	for _, atom := range atoms {
		for _, person := range spec.PeopleIDs {
			if atom.InvolvesPerson(person) {
				out = append(out, atom)
				break
			}
		}
	}
	return out
}

// applyEntityFilters matches location/event/skill filters against the
// atom's tagged metadata variant
func (f *SpecFilter) applyEntityFilters(atoms []*entities.NarrativeAtom, spec valueobjects.BiographySpec) []*entities.NarrativeAtom {
	if len(spec.LocationIDs) == 0 && len(spec.EventIDs) == 0 && len(spec.SkillIDs) == 0 {
		return atoms
	}
	var out []*entities.NarrativeAtom
	for _, atom := range atoms {
		if atomMatchesEntities(atom, spec) {
			out = append(out, atom)
		}
	}
	return out
}

func atomMatchesEntities(atom *entities.NarrativeAtom, spec valueobjects.BiographySpec) bool {
	switch md := atom.Metadata().(type) {
	case entities.EventMetadata:
		return containsString(spec.LocationIDs, md.LocationID) ||
			containsString(spec.EventIDs, md.EventID)
	case entities.SkillMilestoneMetadata:
		return containsString(spec.SkillIDs, md.SkillID)
	default:
		return false
	}
}

func containsString(haystack []string, needle string) bool {
	if needle == "" {
		return false
	}
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// rankBySignificance orders atoms descending by significance ×
// emotionalWeight with a stable tie-break on input order
func rankBySignificance(atoms []*entities.NarrativeAtom) []*entities.NarrativeAtom {
	ranked := make([]*entities.NarrativeAtom, len(atoms))
	copy(ranked, atoms)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Significance()*ranked[i].EmotionalWeight() >
			ranked[j].Significance()*ranked[j].EmotionalWeight()
	})
	return ranked
}
