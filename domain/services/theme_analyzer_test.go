package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lorekeeper-backend/domain/config"
	"lorekeeper-backend/domain/core/entities"
)

func TestThemeAnalyzer_DominantThemesByFrequency(t *testing.T) {
	analyzer := NewThemeAnalyzer(config.DefaultDomainConfig())

	atoms := []*entities.NarrativeAtom{
		anAtom().inDomains("music").withTags("practice").build(),
		anAtom().daysLater(1).inDomains("music").build(),
		anAtom().daysLater(2).inDomains("music", "career").build(),
		anAtom().daysLater(3).inDomains("career").build(),
		anAtom().daysLater(4).inDomains("travel").build(),
	}

	themes := analyzer.DominantThemes(atoms, 2)

	assert.Equal(t, []string{"music", "career"}, themes)
}

func TestThemeAnalyzer_TiesBreakAlphabetically(t *testing.T) {
	analyzer := NewThemeAnalyzer(config.DefaultDomainConfig())

	atoms := []*entities.NarrativeAtom{
		anAtom().inDomains("zeal").build(),
		anAtom().daysLater(1).inDomains("art").build(),
	}

	themes := analyzer.DominantThemes(atoms, 2)

	assert.Equal(t, []string{"art", "zeal"}, themes)
}

func TestThemeAnalyzer_CrossCuttingNeedsMultipleChapters(t *testing.T) {
	analyzer := NewThemeAnalyzer(config.DefaultDomainConfig())

	themed := func(atoms []*entities.NarrativeAtom) *entities.ChapterCluster {
		chapter, err := entities.NewChapterCluster(atoms, analyzer.DominantThemes(atoms, 0), "")
		require.NoError(t, err)
		return chapter
	}

	first := themed(buildMany(2, baseTime, 24*time.Hour, anAtom().inDomains("music")))
	second := themed(buildMany(2, baseTime.AddDate(0, 2, 0), 24*time.Hour, anAtom().inDomains("music", "career")))
	third := themed(buildMany(2, baseTime.AddDate(0, 4, 0), 24*time.Hour, anAtom().inDomains("travel")))

	themes := analyzer.CrossCuttingThemes([]*entities.ChapterCluster{first, second, third})

	assert.Equal(t, []string{"music"}, themes)
}

func TestSharedThemes(t *testing.T) {
	assert.True(t, SharedThemes([]string{"music", "career"}, []string{"career"}))
	assert.False(t, SharedThemes([]string{"music"}, []string{"travel"}))
	assert.False(t, SharedThemes(nil, []string{"travel"}))
}
