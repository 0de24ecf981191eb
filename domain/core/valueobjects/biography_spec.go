package valueobjects

// BiographyScope selects which slice of a user's record a biography covers
type BiographyScope string

const (
	ScopeFullLife  BiographyScope = "full_life"
	ScopeDomain    BiographyScope = "domain"
	ScopeTimeRange BiographyScope = "time_range"
	ScopeThematic  BiographyScope = "thematic"
)

// IsChronological reports whether chapters under this scope must be ordered
// non-decreasing by start time
func (s BiographyScope) IsChronological() bool {
	return s == ScopeFullLife || s == ScopeTimeRange
}

// Depth governs how many atoms a biography and its chapters may carry
type Depth string

const (
	DepthSummary  Depth = "summary"
	DepthDetailed Depth = "detailed"
	DepthEpic     Depth = "epic"
)

// AtomCeiling returns the pipeline-wide working-set cap for the depth
func (d Depth) AtomCeiling() int {
	switch d {
	case DepthDetailed:
		return 50
	case DepthEpic:
		return 100
	default:
		return 20
	}
}

// ChapterCapacity returns the per-chapter atom cap for the depth
func (d Depth) ChapterCapacity() int {
	switch d {
	case DepthDetailed:
		return 25
	case DepthEpic:
		return 50
	default:
		return 10
	}
}

// Audience identifies who the generated biography is intended for
type Audience string

const (
	AudiencePersonal Audience = "personal"
	AudienceFamily   Audience = "family"
	AudiencePublic   Audience = "public"
)

// Tone nudges the narrator's register; the pipeline passes it through
type Tone string

const (
	ToneNeutral     Tone = "neutral"
	ToneReflective  Tone = "reflective"
	ToneCelebratory Tone = "celebratory"
	ToneCandid      Tone = "candid"
)

// BiographySpec is the generation request: the single input contract of the
// narrative compilation pipeline. It is immutable for the duration of a run.
type BiographySpec struct {
	UserID string         `json:"user_id" validate:"required"`
	Scope  BiographyScope `json:"scope" validate:"required,oneof=full_life domain time_range thematic"`
	Depth  Depth          `json:"depth" validate:"required,oneof=summary detailed epic"`

	// Optional narrowing filters
	Domain      string    `json:"domain,omitempty" validate:"required_if=Scope domain"`
	TimeRange   *TimeSpan `json:"time_range,omitempty"`
	Themes      []string  `json:"themes,omitempty"`
	PeopleIDs   []string  `json:"people_ids,omitempty"`
	LocationIDs []string  `json:"location_ids,omitempty"`
	EventIDs    []string  `json:"event_ids,omitempty"`
	SkillIDs    []string  `json:"skill_ids,omitempty"`

	// Presentation
	Tone          Tone         `json:"tone,omitempty" validate:"omitempty,oneof=neutral reflective celebratory candid"`
	Audience      Audience     `json:"audience,omitempty" validate:"omitempty,oneof=personal family public"`
	Version       BuildVersion `json:"version,omitempty" validate:"omitempty,oneof=main safe explicit private"`
	Introspective bool         `json:"introspective,omitempty"`
}

// EffectiveVersion returns the requested build flag, defaulting to main
func (s BiographySpec) EffectiveVersion() BuildVersion {
	return s.Version.OrDefault()
}

// AppliedFilters lists the narrowing filters active on this spec, for
// biography provenance metadata
func (s BiographySpec) AppliedFilters() []string {
	filters := []string{"scope:" + string(s.Scope), "version:" + string(s.EffectiveVersion())}
	if s.Domain != "" {
		filters = append(filters, "domain:"+s.Domain)
	}
	if s.TimeRange != nil {
		filters = append(filters, "time_range")
	}
	if len(s.Themes) > 0 {
		filters = append(filters, "themes")
	}
	if len(s.PeopleIDs) > 0 {
		filters = append(filters, "people")
	}
	if len(s.LocationIDs) > 0 {
		filters = append(filters, "locations")
	}
	if len(s.EventIDs) > 0 {
		filters = append(filters, "events")
	}
	if len(s.SkillIDs) > 0 {
		filters = append(filters, "skills")
	}
	return filters
}
