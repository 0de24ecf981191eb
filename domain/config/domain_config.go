package config

import "time"

// DomainConfig holds all configurable business rules and thresholds for the
// narrative compilation pipeline
type DomainConfig struct {
	// Graph construction
	TemporalEdgeWindow time.Duration // max distance for a temporal edge
	GraphMaxAge        time.Duration // staleness window before a cached graph is rebuilt
	MinEdgeWeight      float64

	// Void detection
	VoidGapThresholdDays  float64 // gaps longer than this become void periods
	ShortGapMaxDays       float64
	MediumGapMaxDays      float64
	EarlyTimelineFraction float64 // position below which a gap is narratively escalated
	VoidContextAtomCount  int     // atoms gathered on each side of a void

	// Clustering
	ClusterProximityWindow time.Duration // temporal absorption window for seed-and-absorb
	SingletonSurvivalScore float64       // singleton clusters below this are dropped
	HybridOrderingWindow   time.Duration // domain-scope ordering significance window

	// Prioritization score weights
	SignificanceWeight  float64
	EmotionalWeight     float64
	RecencyWeight       float64
	UniquenessWeight    float64
	RecencyHalfLifeDays float64

	// Version filtering thresholds
	SafeSensitivityCeiling float64
	SafeEmotionalCeiling   float64
	MainSensitivityCeiling float64

	// Quality validation
	TemporalScoreWeight     float64
	FidelityScoreWeight     float64
	CompletenessScoreWeight float64
	ConflictScoreWeight     float64
	ImportanceThreshold     float64 // significance/emotionalWeight above which an atom counts as important
	ConflictWindowDays      float64
	FidelityFragmentLength  int

	// Theme analysis
	DominantThemeLimit      int
	CrossCuttingMinChapters int

	// Time period grouping
	PeriodGapDays float64 // chapters further apart than this start a new period
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		// Graph construction
		TemporalEdgeWindow: 7 * 24 * time.Hour,
		GraphMaxAge:        24 * time.Hour,
		MinEdgeWeight:      0.0,

		// Void detection
		VoidGapThresholdDays:  3,
		ShortGapMaxDays:       30,
		MediumGapMaxDays:      180,
		EarlyTimelineFraction: 0.2,
		VoidContextAtomCount:  5,

		// Clustering
		ClusterProximityWindow: 30 * 24 * time.Hour,
		SingletonSurvivalScore: 0.7,
		HybridOrderingWindow:   30 * 24 * time.Hour,

		// Prioritization
		SignificanceWeight:  0.4,
		EmotionalWeight:     0.3,
		RecencyWeight:       0.2,
		UniquenessWeight:    0.1,
		RecencyHalfLifeDays: 365,

		// Version filtering
		SafeSensitivityCeiling: 0.7,
		SafeEmotionalCeiling:   0.85,
		MainSensitivityCeiling: 0.9,

		// Quality validation
		TemporalScoreWeight:     0.25,
		FidelityScoreWeight:     0.35,
		CompletenessScoreWeight: 0.25,
		ConflictScoreWeight:     0.15,
		ImportanceThreshold:     0.7,
		ConflictWindowDays:      30,
		FidelityFragmentLength:  50,

		// Theme analysis
		DominantThemeLimit:      3,
		CrossCuttingMinChapters: 2,

		// Time period grouping
		PeriodGapDays: 180,
	}
}
