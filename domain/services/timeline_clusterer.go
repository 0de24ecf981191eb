package services

import (
	"sort"

	"go.uber.org/zap"

	"lorekeeper-backend/domain/config"
	"lorekeeper-backend/domain/core/entities"
	"lorekeeper-backend/domain/core/valueobjects"
	pkgerrors "lorekeeper-backend/pkg/errors"
)

// ClusterResult is the clusterer's output: ordered chapters plus an account
// of atoms lost to the documented singleton-drop rule
type ClusterResult struct {
	Chapters     []*entities.ChapterCluster
	DroppedAtoms int
}

// TimelineClusterer groups filtered atoms into chapter clusters, anchored to
// externally supplied timeline chapters when available and falling back to
// greedy temporal-thematic clustering for unclaimed atoms.
//
// Lossy step: a discovered cluster survives only with more than one atom or
// a seed significance above the survival threshold. Singleton
// low-significance atoms are dropped, not orphaned; the count is surfaced in
// the result so callers can report it.
type TimelineClusterer struct {
	cfg         *config.DomainConfig
	prioritizer *AtomPrioritizer
	themes      *ThemeAnalyzer
	logger      *zap.Logger
}

// NewTimelineClusterer creates a clusterer
func NewTimelineClusterer(
	cfg *config.DomainConfig,
	prioritizer *AtomPrioritizer,
	themes *ThemeAnalyzer,
	logger *zap.Logger,
) *TimelineClusterer {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if prioritizer == nil {
		prioritizer = NewAtomPrioritizer(cfg)
	}
	if themes == nil {
		themes = NewThemeAnalyzer(cfg)
	}
	return &TimelineClusterer{cfg: cfg, prioritizer: prioritizer, themes: themes, logger: logger}
}

// Cluster builds the ordered chapter list: a primary pass anchoring atoms
// to timeline chapters, a secondary seed-and-absorb pass over unclaimed
// atoms, scope-dependent ordering, then chronological merge of non-low
// void chapters.
func (c *TimelineClusterer) Cluster(
	atoms []*entities.NarrativeAtom,
	hierarchy *valueobjects.TimelineHierarchy,
	voids []*entities.VoidPeriod,
	spec valueobjects.BiographySpec,
) (*ClusterResult, error) {
	if len(atoms) == 0 {
		return nil, pkgerrors.NewNoMatchingAtomsError(spec.UserID)
	}

	capacity := spec.Depth.ChapterCapacity()
	claimed := make(map[valueobjects.AtomID]bool)
	var chapters []*entities.ChapterCluster

	// Primary pass: anchor atoms to external timeline chapters
	for _, scaffold := range hierarchy.FlattenChapters() {
		var members []*entities.NarrativeAtom
		for _, atom := range atoms {
			if !claimed[atom.ID()] && scaffold.Span.Contains(atom.Timestamp()) {
				members = append(members, atom)
			}
		}
		if len(members) == 0 {
			continue
		}

		selected := c.prioritizer.Select(members, capacity)
		for _, atom := range members {
			claimed[atom.ID()] = true
		}

		chapter, err := entities.NewChapterCluster(selected, c.themes.DominantThemes(selected, 0), scaffold.ID)
		if err != nil {
			return nil, err
		}
		chapters = append(chapters, chapter)
	}

	// Secondary pass: greedy seed-and-absorb over unclaimed atoms
	unclaimed := make([]*entities.NarrativeAtom, 0, len(atoms))
	for _, atom := range atoms {
		if !claimed[atom.ID()] {
			unclaimed = append(unclaimed, atom)
		}
	}
	sort.SliceStable(unclaimed, func(i, j int) bool {
		return unclaimed[i].Timestamp().Before(unclaimed[j].Timestamp())
	})

	discovered, dropped := c.absorb(unclaimed)
	for _, members := range discovered {
		selected := c.prioritizer.Select(members, capacity)
		chapter, err := entities.NewChapterCluster(selected, c.themes.DominantThemes(selected, 0), "")
		if err != nil {
			return nil, err
		}
		chapters = append(chapters, chapter)
	}

	c.order(chapters, spec.Scope)
	chapters = c.mergeVoids(chapters, voids)

	c.logger.Info("atoms clustered",
		zap.String("userID", spec.UserID),
		zap.Int("chapters", len(chapters)),
		zap.Int("droppedSingletons", dropped),
	)

	return &ClusterResult{Chapters: chapters, DroppedAtoms: dropped}, nil
}

// absorb runs the greedy single-pass clustering: each unclustered atom seeds
// a new cluster that absorbs subsequent unclustered atoms within the
// proximity window that share a domain or person with the seed
func (c *TimelineClusterer) absorb(atoms []*entities.NarrativeAtom) ([][]*entities.NarrativeAtom, int) {
	used := make(map[valueobjects.AtomID]bool)
	var clusters [][]*entities.NarrativeAtom
	dropped := 0

	for i, seed := range atoms {
		if used[seed.ID()] {
			continue
		}
		used[seed.ID()] = true
		cluster := []*entities.NarrativeAtom{seed}

		for _, candidate := range atoms[i+1:] {
			if used[candidate.ID()] {
				continue
			}
			if !c.belongsWithSeed(seed, candidate) {
				continue
			}
			used[candidate.ID()] = true
			cluster = append(cluster, candidate)
		}

		if len(cluster) == 1 && seed.Significance() <= c.cfg.SingletonSurvivalScore {
			dropped++
			continue
		}
		clusters = append(clusters, cluster)
	}

	return clusters, dropped
}

func (c *TimelineClusterer) belongsWithSeed(seed, candidate *entities.NarrativeAtom) bool {
	gap := candidate.Timestamp().Sub(seed.Timestamp())
	if gap < 0 {
		gap = -gap
	}
	if gap > c.cfg.ClusterProximityWindow {
		return false
	}
	if _, ok := domainOverlap(seed, candidate); ok {
		return true
	}
	_, ok := personOverlap(seed, candidate)
	return ok
}

// order sorts chapters per scope: chronological for full_life/time_range,
// significance-descending for thematic, and hybrid for domain scope where
// near-contemporary chapters (within the hybrid window) order by
// significance instead
func (c *TimelineClusterer) order(chapters []*entities.ChapterCluster, scope valueobjects.BiographyScope) {
	switch {
	case scope.IsChronological():
		sort.SliceStable(chapters, func(i, j int) bool {
			return chapters[i].StartTime().Before(chapters[j].StartTime())
		})
	case scope == valueobjects.ScopeThematic:
		sort.SliceStable(chapters, func(i, j int) bool {
			return chapters[i].AvgSignificance() > chapters[j].AvgSignificance()
		})
	default: // domain scope: hybrid ordering
		sort.SliceStable(chapters, func(i, j int) bool {
			gap := chapters[i].StartTime().Sub(chapters[j].StartTime())
			if gap < 0 {
				gap = -gap
			}
			if gap <= c.cfg.HybridOrderingWindow {
				return chapters[i].AvgSignificance() > chapters[j].AvgSignificance()
			}
			return chapters[i].StartTime().Before(chapters[j].StartTime())
		})
	}
}

// mergeVoids inserts void chapters (significance above low only) into the
// ordered list using the chronological rule
func (c *TimelineClusterer) mergeVoids(chapters []*entities.ChapterCluster, voids []*entities.VoidPeriod) []*entities.ChapterCluster {
	for _, void := range voids {
		if void.Significance() == entities.VoidSignificanceLow {
			continue
		}
		voidChapter := entities.NewVoidChapter(void)

		inserted := false
		for i, chapter := range chapters {
			if voidChapter.StartTime().Before(chapter.StartTime()) {
				chapters = append(chapters[:i], append([]*entities.ChapterCluster{voidChapter}, chapters[i:]...)...)
				inserted = true
				break
			}
		}
		if !inserted {
			chapters = append(chapters, voidChapter)
		}
	}
	return chapters
}
