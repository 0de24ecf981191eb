package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lorekeeper-backend/domain/config"
	"lorekeeper-backend/domain/core/entities"
)

func clusterOf(t *testing.T, atoms []*entities.NarrativeAtom) *entities.ChapterCluster {
	t.Helper()
	chapter, err := entities.NewChapterCluster(atoms, nil, "")
	require.NoError(t, err)
	return chapter
}

func TestTimePeriodAnalyzer_AdjacentChaptersShareAPeriod(t *testing.T) {
	analyzer := NewTimePeriodAnalyzer(config.DefaultDomainConfig(), nil)

	first := clusterOf(t, buildMany(2, baseTime, 24*time.Hour, anAtom().inDomains("music")))
	second := clusterOf(t, buildMany(2, baseTime.AddDate(0, 2, 0), 24*time.Hour, anAtom().inDomains("music")))

	periods := analyzer.Periods([]*entities.ChapterCluster{first, second})

	require.Len(t, periods, 1)
	assert.Len(t, periods[0].ChapterIDs, 2)
	assert.Equal(t, "2024", periods[0].Label)
}

func TestTimePeriodAnalyzer_WideGapSplitsPeriods(t *testing.T) {
	analyzer := NewTimePeriodAnalyzer(config.DefaultDomainConfig(), nil)

	first := clusterOf(t, buildMany(2, baseTime, 24*time.Hour, anAtom().inDomains("music")))
	second := clusterOf(t, buildMany(2, baseTime.AddDate(0, 7, 0), 24*time.Hour, anAtom().inDomains("career")))

	periods := analyzer.Periods([]*entities.ChapterCluster{first, second})

	require.Len(t, periods, 2)
	assert.Len(t, periods[0].ChapterIDs, 1)
	assert.Len(t, periods[1].ChapterIDs, 1)
}

func TestTimePeriodAnalyzer_MultiYearPeriodGetsRangeLabel(t *testing.T) {
	analyzer := NewTimePeriodAnalyzer(config.DefaultDomainConfig(), nil)

	first := clusterOf(t, buildMany(2, baseTime, 24*time.Hour, anAtom()))
	second := clusterOf(t, buildMany(2, baseTime.AddDate(0, 5, 0), 24*time.Hour, anAtom()))
	third := clusterOf(t, buildMany(2, baseTime.AddDate(0, 10, 0), 24*time.Hour, anAtom()))
	fourth := clusterOf(t, buildMany(2, baseTime.AddDate(1, 1, 0), 24*time.Hour, anAtom()))

	periods := analyzer.Periods([]*entities.ChapterCluster{first, second, third, fourth})

	require.Len(t, periods, 1)
	assert.Equal(t, "2024-2025", periods[0].Label)
}

func TestTimePeriodAnalyzer_VoidChaptersNeverJoinPeriods(t *testing.T) {
	analyzer := NewTimePeriodAnalyzer(config.DefaultDomainConfig(), nil)

	first := clusterOf(t, buildMany(2, baseTime, 24*time.Hour, anAtom()))
	voidChapter := entities.NewVoidChapter(shortVoid(baseTime.Add(24*time.Hour), baseTime.AddDate(0, 1, 0)))
	second := clusterOf(t, buildMany(2, baseTime.AddDate(0, 1, 0), 24*time.Hour, anAtom()))

	periods := analyzer.Periods([]*entities.ChapterCluster{first, voidChapter, second})

	require.Len(t, periods, 1)
	assert.Len(t, periods[0].ChapterIDs, 2)
}

func TestTimePeriodAnalyzer_NoRegularChaptersNoPeriods(t *testing.T) {
	analyzer := NewTimePeriodAnalyzer(config.DefaultDomainConfig(), nil)

	voidChapter := entities.NewVoidChapter(shortVoid(baseTime, baseTime.AddDate(0, 1, 0)))

	assert.Nil(t, analyzer.Periods([]*entities.ChapterCluster{voidChapter}))
}
