package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lorekeeper-backend/domain/core/entities"
	"lorekeeper-backend/domain/core/valueobjects"
)

func newVoidService() *VoidAwarenessService {
	return NewVoidAwarenessService(nil, nil, zap.NewNop())
}

func TestDetectVoids_GapAtThresholdIsNotAVoid(t *testing.T) {
	svc := newVoidService()

	atoms := []*entities.NarrativeAtom{
		anAtom().build(),
		anAtom().daysLater(3).build(),
	}

	voids := svc.DetectVoids(atoms, nil)

	assert.Empty(t, voids)
}

func TestDetectVoids_GapJustOverThresholdIsShortGap(t *testing.T) {
	svc := newVoidService()

	atoms := []*entities.NarrativeAtom{
		anAtom().build(),
		anAtom().daysLater(4).build(),
	}

	voids := svc.DetectVoids(atoms, nil)

	require.Len(t, voids, 1)
	assert.Equal(t, entities.VoidShortGap, voids[0].Type())
	assert.Equal(t, entities.FillAcknowledgeVoid, voids[0].FillStrategy())
}

func TestDetectVoids_MediumAndLongClassification(t *testing.T) {
	svc := newVoidService()

	tests := []struct {
		name     string
		gapDays  float64
		wantType entities.VoidType
		wantSig  entities.VoidSignificance
	}{
		{"45 days is a medium gap", 45, entities.VoidMediumGap, entities.VoidSignificanceMedium},
		{"179 days is still medium", 179, entities.VoidMediumGap, entities.VoidSignificanceMedium},
		{"400 days is a long silence", 400, entities.VoidLongSilence, entities.VoidSignificanceHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Pad the front so the gap is past the early-timeline fraction
			atoms := buildMany(8, baseTime.Add(-14*24*time.Hour), 2*24*time.Hour, anAtom())
			atoms = append(atoms, anAtom().daysLater(tt.gapDays).build())

			voids := svc.DetectVoids(atoms, nil)

			require.Len(t, voids, 1)
			assert.Equal(t, tt.wantType, voids[0].Type())
			assert.Equal(t, tt.wantSig, voids[0].Significance())
		})
	}
}

func TestDetectVoids_EarlyTimelineGapIsEscalated(t *testing.T) {
	svc := newVoidService()

	// The gap sits before the second of ten atoms: position 1 < 0.2*10
	atoms := []*entities.NarrativeAtom{anAtom().build()}
	atoms = append(atoms, buildMany(9, baseTime.Add(40*24*time.Hour), 24*time.Hour, anAtom())...)

	voids := svc.DetectVoids(atoms, nil)

	require.Len(t, voids, 1)
	assert.Equal(t, entities.VoidMediumGap, voids[0].Type())
	// A medium gap's significance is escalated from medium to high
	assert.Equal(t, entities.VoidSignificanceHigh, voids[0].Significance())
}

func TestDetectVoids_EmptySpanWithBoundsYieldsSingleVoid(t *testing.T) {
	svc := newVoidService()
	bounds := valueobjects.MustTimeSpan(baseTime, baseTime.Add(90*24*time.Hour))

	voids := svc.DetectVoids(nil, &bounds)

	require.Len(t, voids, 1)
	assert.Equal(t, entities.VoidEmptySpan, voids[0].Type())
	assert.Equal(t, entities.VoidSignificanceHigh, voids[0].Significance())
	assert.Equal(t, entities.FillPromptUser, voids[0].FillStrategy())
}

func TestDetectVoids_NoAtomsAndNoBoundsYieldsNothing(t *testing.T) {
	svc := newVoidService()

	assert.Empty(t, svc.DetectVoids(nil, nil))
}

func TestDetectVoids_LeadingAndTrailingGapsAgainstBounds(t *testing.T) {
	svc := newVoidService()

	atoms := []*entities.NarrativeAtom{
		anAtom().daysLater(10).build(),
		anAtom().daysLater(11).build(),
	}
	bounds := valueobjects.MustTimeSpan(baseTime, baseTime.Add(30*24*time.Hour))

	voids := svc.DetectVoids(atoms, &bounds)

	require.Len(t, voids, 2)
	assert.True(t, voids[0].Span().Start().Equal(bounds.Start()))
	assert.True(t, voids[1].Span().End().Equal(bounds.End()))
}

func TestDetectVoids_ContextMarksContinuationWhenThemesShared(t *testing.T) {
	svc := newVoidService()

	before := buildMany(3, baseTime, 24*time.Hour, anAtom().inDomains("music"))
	after := buildMany(3, baseTime.Add(40*24*time.Hour), 24*time.Hour, anAtom().inDomains("music"))

	voids := svc.DetectVoids(append(before, after...), nil)

	require.Len(t, voids, 1)
	ctx := voids[0].Context()
	require.NotNil(t, ctx)
	assert.Equal(t, "continuation", ctx.EstimatedActivity)
	assert.Contains(t, ctx.ThemesBefore, "music")
}

func TestDetectVoids_ContextMarksTransitionWhenThemesDiffer(t *testing.T) {
	svc := newVoidService()

	before := buildMany(3, baseTime, 24*time.Hour, anAtom().inDomains("music"))
	after := buildMany(3, baseTime.Add(40*24*time.Hour), 24*time.Hour, anAtom().inDomains("career"))

	voids := svc.DetectVoids(append(before, after...), nil)

	require.Len(t, voids, 1)
	ctx := voids[0].Context()
	require.NotNil(t, ctx)
	assert.Equal(t, "transition", ctx.EstimatedActivity)
}

func TestDetectVoids_UnsortedInputIsHandled(t *testing.T) {
	svc := newVoidService()

	atoms := []*entities.NarrativeAtom{
		anAtom().daysLater(40).build(),
		anAtom().build(),
	}

	voids := svc.DetectVoids(atoms, nil)

	require.Len(t, voids, 1)
	assert.Equal(t, entities.VoidMediumGap, voids[0].Type())
}
