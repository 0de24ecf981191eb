package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lorekeeper-backend/domain/config"
	"lorekeeper-backend/domain/core/aggregates"
	"lorekeeper-backend/domain/core/entities"
	"lorekeeper-backend/domain/core/valueobjects"
)

func buildGraph(t *testing.T, atoms []*entities.NarrativeAtom) *aggregates.NarrativeGraph {
	t.Helper()
	builder := NewGraphBuilder(config.DefaultDomainConfig(), zap.NewNop())
	graph, err := builder.Build("user-1", atoms)
	require.NoError(t, err)
	return graph
}

func TestSpecFilter_DomainScopeUsesIndex(t *testing.T) {
	atoms := []*entities.NarrativeAtom{
		anAtom().inDomains("music").withContent("first recital").build(),
		anAtom().daysLater(30).inDomains("career").withContent("promotion").build(),
		anAtom().daysLater(60).inDomains("music", "career").withContent("studio job").build(),
	}
	filter := NewSpecFilter(zap.NewNop())
	spec := valueobjects.BiographySpec{
		UserID: "user-1",
		Scope:  valueobjects.ScopeDomain,
		Depth:  valueobjects.DepthSummary,
		Domain: "music",
	}

	out := filter.Apply(buildGraph(t, atoms), spec)

	require.Len(t, out, 2)
	for _, atom := range out {
		assert.True(t, atom.HasDomain("music"))
	}
}

func TestSpecFilter_TimeRangeIsInclusive(t *testing.T) {
	atoms := []*entities.NarrativeAtom{
		anAtom().withContent("before").build(),
		anAtom().daysLater(10).withContent("inside").build(),
		anAtom().daysLater(40).withContent("after").build(),
	}
	span := valueobjects.MustTimeSpan(baseTime.Add(5*24*time.Hour), baseTime.Add(20*24*time.Hour))
	filter := NewSpecFilter(zap.NewNop())
	spec := valueobjects.BiographySpec{
		UserID:    "user-1",
		Scope:     valueobjects.ScopeTimeRange,
		Depth:     valueobjects.DepthSummary,
		TimeRange: &span,
	}

	out := filter.Apply(buildGraph(t, atoms), spec)

	require.Len(t, out, 1)
	assert.Equal(t, "inside", out[0].Content())
}

func TestSpecFilter_ThemeMatchesContentTagsAndDomains(t *testing.T) {
	atoms := []*entities.NarrativeAtom{
		anAtom().withContent("learned Jazz improvisation").build(),
		anAtom().daysLater(1).withContent("quiet day").withTags("jazz-club").build(),
		anAtom().daysLater(2).withContent("quiet day").inDomains("jazz").build(),
		anAtom().daysLater(3).withContent("nothing related").build(),
	}
	filter := NewSpecFilter(zap.NewNop())
	spec := valueobjects.BiographySpec{
		UserID: "user-1",
		Scope:  valueobjects.ScopeThematic,
		Depth:  valueobjects.DepthSummary,
		Themes: []string{"jazz"},
	}

	out := filter.Apply(buildGraph(t, atoms), spec)

	assert.Len(t, out, 3)
}

func TestSpecFilter_PeopleFilterKeepsAnyMatch(t *testing.T) {
	atoms := []*entities.NarrativeAtom{
		anAtom().withPeople("alice").build(),
		anAtom().daysLater(1).withPeople("bob").build(),
		anAtom().daysLater(2).withPeople("carol").build(),
	}
	filter := NewSpecFilter(zap.NewNop())
	spec := valueobjects.BiographySpec{
		UserID:    "user-1",
		Scope:     valueobjects.ScopeFullLife,
		Depth:     valueobjects.DepthSummary,
		PeopleIDs: []string{"alice", "carol"},
	}

	out := filter.Apply(buildGraph(t, atoms), spec)

	assert.Len(t, out, 2)
}

func TestSpecFilter_EntityFiltersMatchMetadata(t *testing.T) {
	atoms := []*entities.NarrativeAtom{
		anAtom().withMetadata(entities.EventMetadata{EventID: "evt-1", LocationID: "loc-1"}).build(),
		anAtom().daysLater(1).
			ofType(entities.AtomSkillMilestone).
			withMetadata(entities.SkillMilestoneMetadata{SkillID: "skill-1", Level: "novice"}).
			build(),
		anAtom().daysLater(2).withContent("no metadata").build(),
	}
	filter := NewSpecFilter(zap.NewNop())
	spec := valueobjects.BiographySpec{
		UserID:   "user-1",
		Scope:    valueobjects.ScopeFullLife,
		Depth:    valueobjects.DepthSummary,
		SkillIDs: []string{"skill-1"},
	}

	out := filter.Apply(buildGraph(t, atoms), spec)

	require.Len(t, out, 1)
	assert.Equal(t, entities.AtomSkillMilestone, out[0].Type())
}

func TestSpecFilter_RanksBySignificanceTimesEmotionalWeight(t *testing.T) {
	atoms := []*entities.NarrativeAtom{
		anAtom().withContent("low").withSignificance(0.3).withEmotionalWeight(0.3).build(),
		anAtom().daysLater(1).withContent("high").withSignificance(0.9).withEmotionalWeight(0.9).build(),
		anAtom().daysLater(2).withContent("mid").withSignificance(0.9).withEmotionalWeight(0.4).build(),
	}
	filter := NewSpecFilter(zap.NewNop())
	spec := valueobjects.BiographySpec{
		UserID: "user-1",
		Scope:  valueobjects.ScopeFullLife,
		Depth:  valueobjects.DepthSummary,
	}

	out := filter.Apply(buildGraph(t, atoms), spec)

	require.Len(t, out, 3)
	assert.Equal(t, "high", out[0].Content())
	assert.Equal(t, "mid", out[1].Content())
	assert.Equal(t, "low", out[2].Content())
}

func TestSpecFilter_TruncatesToDepthCeiling(t *testing.T) {
	atoms := buildMany(30, baseTime, 24*time.Hour, anAtom())
	filter := NewSpecFilter(zap.NewNop())

	summary := filter.Apply(buildGraph(t, atoms), valueobjects.BiographySpec{
		UserID: "user-1", Scope: valueobjects.ScopeFullLife, Depth: valueobjects.DepthSummary,
	})
	detailed := filter.Apply(buildGraph(t, atoms), valueobjects.BiographySpec{
		UserID: "user-1", Scope: valueobjects.ScopeFullLife, Depth: valueobjects.DepthDetailed,
	})

	assert.Len(t, summary, 20)
	assert.Len(t, detailed, 30)
}
