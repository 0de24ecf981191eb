package services

import (
	"fmt"

	"lorekeeper-backend/domain/config"
	"lorekeeper-backend/domain/core/entities"
	"lorekeeper-backend/domain/core/valueobjects"
	"lorekeeper-backend/pkg/utils"
)

// TimePeriodAnalyzer groups ordered chapters into higher-level time periods.
// Consecutive chapters belong to the same period until the gap between them
// exceeds the configured period gap.
type TimePeriodAnalyzer struct {
	cfg    *config.DomainConfig
	themes *ThemeAnalyzer
}

// NewTimePeriodAnalyzer creates a period analyzer
func NewTimePeriodAnalyzer(cfg *config.DomainConfig, themes *ThemeAnalyzer) *TimePeriodAnalyzer {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if themes == nil {
		themes = NewThemeAnalyzer(cfg)
	}
	return &TimePeriodAnalyzer{cfg: cfg, themes: themes}
}

// Periods partitions the regular chapters into labeled time periods. Void
// chapters never seed or extend a period; the gap they represent is what
// separates periods in the first place.
func (a *TimePeriodAnalyzer) Periods(chapters []*entities.ChapterCluster) []entities.TimePeriod {
	var regular []*entities.ChapterCluster
	for _, c := range chapters {
		if !c.IsVoid() {
			regular = append(regular, c)
		}
	}
	if len(regular) == 0 {
		return nil
	}

	var periods []entities.TimePeriod
	group := []*entities.ChapterCluster{regular[0]}

	for _, chapter := range regular[1:] {
		prev := group[len(group)-1]
		if utils.DaysBetween(prev.Span().End(), chapter.StartTime()) > a.cfg.PeriodGapDays {
			periods = append(periods, a.buildPeriod(group))
			group = nil
		}
		group = append(group, chapter)
	}
	periods = append(periods, a.buildPeriod(group))

	return periods
}

func (a *TimePeriodAnalyzer) buildPeriod(group []*entities.ChapterCluster) entities.TimePeriod {
	start := group[0].Span().Start()
	end := group[0].Span().End()
	var atoms []*entities.NarrativeAtom
	ids := make([]valueobjects.ChapterID, 0, len(group))

	for _, chapter := range group {
		if chapter.Span().Start().Before(start) {
			start = chapter.Span().Start()
		}
		if chapter.Span().End().After(end) {
			end = chapter.Span().End()
		}
		atoms = append(atoms, chapter.Atoms()...)
		ids = append(ids, chapter.ID())
	}

	span, _ := valueobjects.NewTimeSpan(start, end)

	label := fmt.Sprintf("%d", start.Year())
	if end.Year() != start.Year() {
		label = fmt.Sprintf("%d-%d", start.Year(), end.Year())
	}

	return entities.TimePeriod{
		Label:          label,
		Span:           span,
		ChapterIDs:     ids,
		DominantThemes: a.themes.DominantThemes(atoms, 0),
	}
}
