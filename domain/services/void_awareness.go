package services

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"lorekeeper-backend/domain/config"
	"lorekeeper-backend/domain/core/entities"
	"lorekeeper-backend/domain/core/valueobjects"
	"lorekeeper-backend/pkg/utils"
)

// VoidAwarenessService detects temporal gaps in a filtered atom set and
// classifies them by duration and narrative position. Voids are derived
// state: recomputed on every run, never persisted between runs.
type VoidAwarenessService struct {
	cfg    *config.DomainConfig
	themes *ThemeAnalyzer
	logger *zap.Logger
}

// NewVoidAwarenessService creates a void detection service
func NewVoidAwarenessService(cfg *config.DomainConfig, themes *ThemeAnalyzer, logger *zap.Logger) *VoidAwarenessService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if themes == nil {
		themes = NewThemeAnalyzer(cfg)
	}
	return &VoidAwarenessService{cfg: cfg, themes: themes, logger: logger}
}

// DetectVoids finds gaps longer than the threshold between consecutive
// atoms, plus leading/trailing gaps against explicit timeline bounds when
// supplied. An explicit span with no atoms at all yields a single void
// covering the whole span.
func (s *VoidAwarenessService) DetectVoids(
	atoms []*entities.NarrativeAtom,
	bounds *valueobjects.TimeSpan,
) []*entities.VoidPeriod {
	ordered := make([]*entities.NarrativeAtom, len(atoms))
	copy(ordered, atoms)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp().Before(ordered[j].Timestamp())
	})

	if len(ordered) == 0 {
		if bounds == nil || bounds.IsZero() {
			return nil
		}
		void := entities.NewVoidPeriod(*bounds, entities.VoidEmptySpan, entities.VoidSignificanceHigh, entities.FillPromptUser)
		return []*entities.VoidPeriod{void}
	}

	var voids []*entities.VoidPeriod

	// Leading gap against explicit bounds
	if bounds != nil && !bounds.IsZero() && ordered[0].Timestamp().After(bounds.Start()) {
		if span, ok := spanIfGap(bounds.Start(), ordered[0].Timestamp(), s.cfg.VoidGapThresholdDays); ok {
			voids = append(voids, s.classify(span, 0, len(ordered)))
		}
	}

	for i := 0; i+1 < len(ordered); i++ {
		if span, ok := spanIfGap(ordered[i].Timestamp(), ordered[i+1].Timestamp(), s.cfg.VoidGapThresholdDays); ok {
			void := s.classify(span, i+1, len(ordered))
			s.enrich(void, ordered, i+1)
			voids = append(voids, void)
		}
	}

	// Trailing gap against explicit bounds
	last := ordered[len(ordered)-1]
	if bounds != nil && !bounds.IsZero() && last.Timestamp().Before(bounds.End()) {
		if span, ok := spanIfGap(last.Timestamp(), bounds.End(), s.cfg.VoidGapThresholdDays); ok {
			voids = append(voids, s.classify(span, len(ordered), len(ordered)))
		}
	}

	if len(voids) > 0 {
		s.logger.Debug("voids detected", zap.Int("count", len(voids)))
	}

	return voids
}

// classify grades a gap by duration, escalating significance when the gap
// sits in the earliest fraction of the ordered atom sequence: early-life
// silences are narratively weightier than recent ones.
func (s *VoidAwarenessService) classify(span valueobjects.TimeSpan, position, total int) *entities.VoidPeriod {
	days := span.DurationDays()

	var (
		voidType     entities.VoidType
		significance entities.VoidSignificance
		strategy     entities.FillStrategy
	)
	switch {
	case days < s.cfg.ShortGapMaxDays:
		voidType = entities.VoidShortGap
		significance = entities.VoidSignificanceLow
		strategy = entities.FillAcknowledgeVoid
	case days < s.cfg.MediumGapMaxDays:
		voidType = entities.VoidMediumGap
		significance = entities.VoidSignificanceMedium
		strategy = entities.FillInferContext
	default:
		voidType = entities.VoidLongSilence
		significance = entities.VoidSignificanceHigh
		strategy = entities.FillPromptUser
	}

	void := entities.NewVoidPeriod(span, voidType, significance, strategy)

	if total > 0 && float64(position) < s.cfg.EarlyTimelineFraction*float64(total) {
		void.EscalateSignificance()
	}

	return void
}

// enrich attaches surrounding themes and an estimated-activity heuristic
// using up to the configured number of atoms on each side of the gap.
// gapIndex is the index of the first atom after the gap.
func (s *VoidAwarenessService) enrich(void *entities.VoidPeriod, ordered []*entities.NarrativeAtom, gapIndex int) {
	n := s.cfg.VoidContextAtomCount

	beforeStart := gapIndex - n
	if beforeStart < 0 {
		beforeStart = 0
	}
	before := ordered[beforeStart:gapIndex]

	afterEnd := gapIndex + n
	if afterEnd > len(ordered) {
		afterEnd = len(ordered)
	}
	after := ordered[gapIndex:afterEnd]

	themesBefore := s.themes.DominantThemes(before, 0)
	themesAfter := s.themes.DominantThemes(after, 0)

	activity := "unknown"
	switch {
	case SharedThemes(themesBefore, themesAfter):
		activity = "continuation"
	case len(themesBefore) > 0 && len(themesAfter) > 0:
		activity = "transition"
	}

	void.AttachContext(&entities.VoidContext{
		ThemesBefore:      themesBefore,
		ThemesAfter:       themesAfter,
		EstimatedActivity: activity,
	})
}

// spanIfGap builds a span between two instants when the gap exceeds the
// threshold in days. The boundary is exclusive: a gap of exactly the
// threshold does not qualify.
func spanIfGap(start, end time.Time, thresholdDays float64) (valueobjects.TimeSpan, bool) {
	if utils.DaysBetween(start, end) <= thresholdDays {
		return valueobjects.TimeSpan{}, false
	}
	span, err := valueobjects.NewTimeSpan(start, end)
	if err != nil {
		return valueobjects.TimeSpan{}, false
	}
	return span, true
}
