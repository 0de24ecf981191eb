package entities

import (
	"lorekeeper-backend/domain/core/valueobjects"
)

// VoidType classifies a detected temporal gap by duration
type VoidType string

const (
	VoidShortGap    VoidType = "short_gap"    // under 30 days
	VoidMediumGap   VoidType = "medium_gap"   // under 180 days
	VoidLongSilence VoidType = "long_silence" // 180 days or more
	VoidEmptySpan   VoidType = "void"         // an explicitly requested span with no atoms at all
)

// VoidSignificance grades how narratively meaningful a gap is
type VoidSignificance string

const (
	VoidSignificanceLow    VoidSignificance = "low"
	VoidSignificanceMedium VoidSignificance = "medium"
	VoidSignificanceHigh   VoidSignificance = "high"
)

// Escalate bumps significance one grade, saturating at high
func (s VoidSignificance) Escalate() VoidSignificance {
	switch s {
	case VoidSignificanceLow:
		return VoidSignificanceMedium
	default:
		return VoidSignificanceHigh
	}
}

// FillStrategy tells downstream consumers how a void should be handled
type FillStrategy string

const (
	FillAcknowledgeVoid FillStrategy = "acknowledge_void"
	FillInferContext    FillStrategy = "infer_context"
	FillPromptUser      FillStrategy = "prompt_user"
)

// VoidContext is the human-readable enrichment attached to a void: the
// themes observed on each side and a coarse estimate of what the silence
// likely covered
type VoidContext struct {
	ThemesBefore      []string
	ThemesAfter       []string
	EstimatedActivity string // continuation, transition, or unknown
}

// VoidPeriod is a detected temporal gap with no surviving atoms. Voids are
// derived purely from the filtered atom set and recomputed on every run.
type VoidPeriod struct {
	id           valueobjects.VoidID
	span         valueobjects.TimeSpan
	voidType     VoidType
	significance VoidSignificance
	fillStrategy FillStrategy
	context      *VoidContext
}

// NewVoidPeriod creates a void over the given span
func NewVoidPeriod(
	span valueobjects.TimeSpan,
	voidType VoidType,
	significance VoidSignificance,
	fillStrategy FillStrategy,
) *VoidPeriod {
	return &VoidPeriod{
		id:           valueobjects.NewVoidID(),
		span:         span,
		voidType:     voidType,
		significance: significance,
		fillStrategy: fillStrategy,
	}
}

// ID returns the void's identifier
func (v *VoidPeriod) ID() valueobjects.VoidID {
	return v.id
}

// Span returns the gap interval
func (v *VoidPeriod) Span() valueobjects.TimeSpan {
	return v.span
}

// DurationDays returns the gap length in days
func (v *VoidPeriod) DurationDays() float64 {
	return v.span.DurationDays()
}

// Type returns the duration classification
func (v *VoidPeriod) Type() VoidType {
	return v.voidType
}

// Significance returns the narrative significance grade
func (v *VoidPeriod) Significance() VoidSignificance {
	return v.significance
}

// FillStrategy returns how the void should be handled downstream
func (v *VoidPeriod) FillStrategy() FillStrategy {
	return v.fillStrategy
}

// Context returns the surrounding-theme enrichment, nil until attached
func (v *VoidPeriod) Context() *VoidContext {
	return v.context
}

// AttachContext records the surrounding-theme enrichment
func (v *VoidPeriod) AttachContext(ctx *VoidContext) {
	v.context = ctx
}

// EscalateSignificance bumps the void's significance one grade
func (v *VoidPeriod) EscalateSignificance() {
	v.significance = v.significance.Escalate()
}
