package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"lorekeeper-backend/domain/config"
	"lorekeeper-backend/domain/core/entities"
	"lorekeeper-backend/domain/core/valueobjects"
	"lorekeeper-backend/pkg/utils"
)

// QualityValidator scores an assembled biography on four advisory axes:
// temporal accuracy, source fidelity, completeness and conflict awareness.
// A low score never blocks assembly; it is attached to the biography so
// callers can decide whether a re-run is worthwhile.
type QualityValidator struct {
	cfg    *config.DomainConfig
	logger *zap.Logger
}

// NewQualityValidator creates a quality validator
func NewQualityValidator(cfg *config.DomainConfig, logger *zap.Logger) *QualityValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QualityValidator{cfg: cfg, logger: logger}
}

// Validate scores the biography against the atoms that survived filtering.
// The atom list is the pre-clustering working set, so completeness can detect
// important atoms the clusterer dropped.
func (v *QualityValidator) Validate(
	bio *entities.Biography,
	atoms []*entities.NarrativeAtom,
	spec valueobjects.BiographySpec,
) *entities.QualityReport {
	report := &entities.QualityReport{}

	report.TemporalAccuracy = v.scoreTemporal(bio, spec, report)
	report.SourceFidelity = v.scoreFidelity(bio, report)
	report.Completeness = v.scoreCompleteness(bio, atoms, report)
	report.ConflictAwareness = v.scoreConflicts(bio, atoms, report)

	report.Overall = utils.Clamp01(
		v.cfg.TemporalScoreWeight*report.TemporalAccuracy +
			v.cfg.FidelityScoreWeight*report.SourceFidelity +
			v.cfg.CompletenessScoreWeight*report.Completeness +
			v.cfg.ConflictScoreWeight*report.ConflictAwareness,
	)

	v.logger.Info("quality validation complete",
		zap.String("userID", bio.UserID()),
		zap.Float64("overall", report.Overall),
		zap.Int("findings", len(report.Findings)),
	)

	return report
}

// scoreTemporal checks that chapters under a chronological scope actually
// progress forward in time. Overlap up to one day is tolerated because
// cluster spans are derived from atom timestamps, not curated boundaries.
func (v *QualityValidator) scoreTemporal(
	bio *entities.Biography,
	spec valueobjects.BiographySpec,
	report *entities.QualityReport,
) float64 {
	if !spec.Scope.IsChronological() {
		return 1.0
	}

	chapters := bio.RegularChapters()
	if len(chapters) < 2 {
		return 1.0
	}

	violations := 0
	for i := 1; i < len(chapters); i++ {
		prevEnd := chapters[i-1].Span().End()
		start := chapters[i].StartTime()
		if start.Before(prevEnd) && utils.DaysBetween(start, prevEnd) > 1 {
			violations++
			report.Findings = append(report.Findings, entities.QualityFinding{
				Check:    "temporal_accuracy",
				Severity: "warning",
				Message: fmt.Sprintf("chapter %q starts %.0f days before the previous chapter ends",
					chapters[i].Title(), utils.DaysBetween(start, prevEnd)),
			})
		}
	}

	return 1.0 - float64(violations)/float64(len(chapters))
}

// scoreFidelity checks each narrated chapter for traces of its source atoms:
// the chapter's year, at least one dominant theme, and a short fragment of
// some atom's content must all appear in the narrative text.
func (v *QualityValidator) scoreFidelity(bio *entities.Biography, report *entities.QualityReport) float64 {
	chapters := bio.RegularChapters()
	if len(chapters) == 0 {
		return 1.0
	}

	total := 0.0
	for _, chapter := range chapters {
		narrative := strings.ToLower(chapter.Narrative())
		if narrative == "" {
			report.Findings = append(report.Findings, entities.QualityFinding{
				Check:    "source_fidelity",
				Severity: "warning",
				Message:  fmt.Sprintf("chapter %q has no narrative", chapter.Title()),
			})
			continue
		}

		checks := 0
		passed := 0

		checks++
		if strings.Contains(narrative, strconv.Itoa(chapter.StartTime().Year())) {
			passed++
		}

		if themes := chapter.DominantThemes(); len(themes) > 0 {
			checks++
			for _, theme := range themes {
				if strings.Contains(narrative, strings.ToLower(theme)) {
					passed++
					break
				}
			}
		}

		checks++
		if v.containsAtomFragment(narrative, chapter.Atoms()) {
			passed++
		}

		score := float64(passed) / float64(checks)
		if score < 1.0 {
			report.Findings = append(report.Findings, entities.QualityFinding{
				Check:    "source_fidelity",
				Severity: "info",
				Message:  fmt.Sprintf("chapter %q narrative passed %d of %d fidelity checks", chapter.Title(), passed, checks),
			})
		}
		total += score
	}

	return total / float64(len(chapters))
}

func (v *QualityValidator) containsAtomFragment(narrative string, atoms []*entities.NarrativeAtom) bool {
	for _, atom := range atoms {
		fragment := atom.Content()
		if len(fragment) > v.cfg.FidelityFragmentLength {
			fragment = fragment[:v.cfg.FidelityFragmentLength]
		}
		if strings.Contains(narrative, strings.ToLower(fragment)) {
			return true
		}
	}
	return false
}

// scoreCompleteness measures how many important atoms from the working set
// made it into a chapter. Important means significance or emotional weight
// above the configured threshold.
func (v *QualityValidator) scoreCompleteness(
	bio *entities.Biography,
	atoms []*entities.NarrativeAtom,
	report *entities.QualityReport,
) float64 {
	var important []*entities.NarrativeAtom
	for _, atom := range atoms {
		if atom.Significance() > v.cfg.ImportanceThreshold || atom.EmotionalWeight() > v.cfg.ImportanceThreshold {
			important = append(important, atom)
		}
	}
	if len(important) == 0 {
		return 1.0
	}

	included := make(map[valueobjects.AtomID]bool)
	for _, chapter := range bio.RegularChapters() {
		for _, atom := range chapter.Atoms() {
			included[atom.ID()] = true
		}
	}

	covered := 0
	for _, atom := range important {
		if included[atom.ID()] {
			covered++
		} else {
			report.Findings = append(report.Findings, entities.QualityFinding{
				Check:    "completeness",
				Severity: "warning",
				Message:  fmt.Sprintf("important atom %s was not included in any chapter", atom.ID().String()),
			})
		}
	}

	return float64(covered) / float64(len(important))
}

// scoreConflicts looks for atoms that tell different stories about the same
// people and domains within a short window, then checks whether each such
// group was clustered together so the narrator saw both sides.
func (v *QualityValidator) scoreConflicts(
	bio *entities.Biography,
	atoms []*entities.NarrativeAtom,
	report *entities.QualityReport,
) float64 {
	groups := v.conflictGroups(atoms)
	if len(groups) == 0 {
		return 1.0
	}

	chapters := bio.RegularChapters()
	aware := 0
	for _, group := range groups {
		if v.groupSharesChapter(group, chapters) {
			aware++
		} else {
			report.Findings = append(report.Findings, entities.QualityFinding{
				Check:    "conflict_awareness",
				Severity: "info",
				Message:  fmt.Sprintf("%d conflicting atoms were narrated in separate chapters", len(group)),
			})
		}
	}

	return float64(aware) / float64(len(groups))
}

// conflictGroups buckets atoms by their people and domain signature, keeping
// buckets whose members have distinct content within the conflict window.
func (v *QualityValidator) conflictGroups(atoms []*entities.NarrativeAtom) [][]*entities.NarrativeAtom {
	buckets := make(map[string][]*entities.NarrativeAtom)
	for _, atom := range atoms {
		if len(atom.PeopleIDs()) == 0 {
			continue
		}
		key := conflictKey(atom)
		buckets[key] = append(buckets[key], atom)
	}

	var groups [][]*entities.NarrativeAtom
	for _, bucket := range buckets {
		if len(bucket) < 2 {
			continue
		}
		for i := 0; i < len(bucket); i++ {
			var group []*entities.NarrativeAtom
			for j := i + 1; j < len(bucket); j++ {
				if bucket[i].Content() == bucket[j].Content() {
					continue
				}
				if utils.DaysBetween(bucket[i].Timestamp(), bucket[j].Timestamp()) <= v.cfg.ConflictWindowDays {
					group = append(group, bucket[j])
				}
			}
			if len(group) > 0 {
				groups = append(groups, append([]*entities.NarrativeAtom{bucket[i]}, group...))
				break // one group per bucket is enough signal
			}
		}
	}
	return groups
}

func conflictKey(atom *entities.NarrativeAtom) string {
	people := atom.PeopleIDs()
	domains := atom.Domains()
	sort.Strings(people)
	sort.Strings(domains)
	return strings.Join(people, ",") + "|" + strings.Join(domains, ",")
}

func (v *QualityValidator) groupSharesChapter(
	group []*entities.NarrativeAtom,
	chapters []*entities.ChapterCluster,
) bool {
	for _, chapter := range chapters {
		all := true
		for _, atom := range group {
			if !chapter.ContainsAtom(atom.ID()) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}
