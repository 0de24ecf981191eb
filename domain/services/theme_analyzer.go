package services

import (
	"sort"

	"lorekeeper-backend/domain/config"
	"lorekeeper-backend/domain/core/entities"
)

// ThemeAnalyzer derives themes from atom domains and tags. Themes are plain
// frequency counts; determinism matters more than linguistic subtlety here
// because idempotent re-runs must produce identical output.
type ThemeAnalyzer struct {
	cfg *config.DomainConfig
}

// NewThemeAnalyzer creates a theme analyzer
func NewThemeAnalyzer(cfg *config.DomainConfig) *ThemeAnalyzer {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &ThemeAnalyzer{cfg: cfg}
}

// DominantThemes returns the most frequent themes across the atoms, most
// frequent first, ties broken alphabetically. The limit defaults to the
// configured dominant-theme cap when non-positive.
func (a *ThemeAnalyzer) DominantThemes(atoms []*entities.NarrativeAtom, limit int) []string {
	if limit <= 0 {
		limit = a.cfg.DominantThemeLimit
	}

	counts := make(map[string]int)
	for _, atom := range atoms {
		for _, domain := range atom.Domains() {
			counts[domain]++
		}
		for _, tag := range atom.Tags() {
			counts[tag]++
		}
	}

	return topThemes(counts, limit)
}

// CrossCuttingThemes returns themes that dominate at least the configured
// minimum number of chapters, ordered by chapter count then alphabetically
func (a *ThemeAnalyzer) CrossCuttingThemes(chapters []*entities.ChapterCluster) []string {
	chapterCounts := make(map[string]int)
	for _, chapter := range chapters {
		if chapter.IsVoid() {
			continue
		}
		for _, theme := range chapter.DominantThemes() {
			chapterCounts[theme]++
		}
	}

	filtered := make(map[string]int)
	for theme, count := range chapterCounts {
		if count >= a.cfg.CrossCuttingMinChapters {
			filtered[theme] = count
		}
	}

	return topThemes(filtered, len(filtered))
}

// SharedThemes reports how two theme sets relate: themes present on both
// sides indicate continuation of the same narrative thread
func SharedThemes(before, after []string) bool {
	set := make(map[string]bool, len(before))
	for _, t := range before {
		set[t] = true
	}
	for _, t := range after {
		if set[t] {
			return true
		}
	}
	return false
}

func topThemes(counts map[string]int, limit int) []string {
	themes := make([]string, 0, len(counts))
	for theme := range counts {
		themes = append(themes, theme)
	}
	sort.Slice(themes, func(i, j int) bool {
		if counts[themes[i]] != counts[themes[j]] {
			return counts[themes[i]] > counts[themes[j]]
		}
		return themes[i] < themes[j]
	})
	if len(themes) > limit {
		themes = themes[:limit]
	}
	return themes
}
