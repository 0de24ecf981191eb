package entities

import (
	"fmt"
	"time"

	"lorekeeper-backend/domain/core/valueobjects"
	pkgerrors "lorekeeper-backend/pkg/errors"
)

// AtomType is the closed set of narrative atom kinds
type AtomType string

const (
	AtomEvent              AtomType = "event"
	AtomReflection         AtomType = "reflection"
	AtomConflict           AtomType = "conflict"
	AtomAchievement        AtomType = "achievement"
	AtomTurningPoint       AtomType = "turning_point"
	AtomRelationshipMoment AtomType = "relationship_moment"
	AtomCreativeOutput     AtomType = "creative_output"
	AtomSkillMilestone     AtomType = "skill_milestone"
)

// IsValid reports whether the type belongs to the closed set
func (t AtomType) IsValid() bool {
	switch t {
	case AtomEvent, AtomReflection, AtomConflict, AtomAchievement,
		AtomTurningPoint, AtomRelationshipMoment, AtomCreativeOutput, AtomSkillMilestone:
		return true
	}
	return false
}

// SourceRef points back to the raw record an atom was extracted from
type SourceRef struct {
	Store    string
	RecordID string
}

// NarrativeAtom is an immutable, pre-summarized fact unit extracted from a
// user's records. Atoms are created by ingestion and never mutated inside
// the pipeline; all accessors return copies of slice-valued fields.
type NarrativeAtom struct {
	id              valueobjects.AtomID
	userID          string
	atomType        AtomType
	timestamp       time.Time
	domains         []string
	peopleIDs       []string
	tags            []string
	emotionalWeight float64
	sensitivity     float64
	significance    float64
	content         string
	sources         []SourceRef
	preserved       bool
	metadata        AtomMetadata
}

// NewNarrativeAtom creates an atom with full business rule validation
func NewNarrativeAtom(
	userID string,
	atomType AtomType,
	timestamp time.Time,
	domains []string,
	content string,
) (*NarrativeAtom, error) {
	return ReconstructAtom(
		valueobjects.NewAtomID(), userID, atomType, timestamp,
		domains, nil, nil, 0.5, 0.0, 0.5, content, nil, false, NoMetadata{},
	)
}

// ReconstructAtom rebuilds an atom from stored data, applying the same
// invariants as creation
func ReconstructAtom(
	id valueobjects.AtomID,
	userID string,
	atomType AtomType,
	timestamp time.Time,
	domains []string,
	peopleIDs []string,
	tags []string,
	emotionalWeight float64,
	sensitivity float64,
	significance float64,
	content string,
	sources []SourceRef,
	preserved bool,
	metadata AtomMetadata,
) (*NarrativeAtom, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("atom ID cannot be empty")
	}
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if !atomType.IsValid() {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("unknown atom type %q", atomType))
	}
	if timestamp.IsZero() {
		return nil, pkgerrors.NewValidationError("atom timestamp cannot be zero")
	}
	if len(domains) == 0 {
		return nil, pkgerrors.NewValidationError("atom requires at least one life domain")
	}
	if content == "" {
		return nil, pkgerrors.NewValidationError("atom content cannot be empty")
	}
	for name, v := range map[string]float64{
		"emotionalWeight": emotionalWeight,
		"sensitivity":     sensitivity,
		"significance":    significance,
	} {
		if v < 0 || v > 1 {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("%s must be within [0,1]", name))
		}
	}
	if metadata == nil {
		metadata = NoMetadata{}
	}

	return &NarrativeAtom{
		id:              id,
		userID:          userID,
		atomType:        atomType,
		timestamp:       timestamp,
		domains:         copyStrings(domains),
		peopleIDs:       copyStrings(peopleIDs),
		tags:            copyStrings(tags),
		emotionalWeight: emotionalWeight,
		sensitivity:     sensitivity,
		significance:    significance,
		content:         content,
		sources:         append([]SourceRef(nil), sources...),
		preserved:       preserved,
		metadata:        metadata,
	}, nil
}

// ID returns the atom's unique identifier
func (a *NarrativeAtom) ID() valueobjects.AtomID {
	return a.id
}

// UserID returns the owner's ID
func (a *NarrativeAtom) UserID() string {
	return a.userID
}

// Type returns the atom's kind
func (a *NarrativeAtom) Type() AtomType {
	return a.atomType
}

// Timestamp returns when the recorded moment happened
func (a *NarrativeAtom) Timestamp() time.Time {
	return a.timestamp
}

// Domains returns the atom's life-domain tags
func (a *NarrativeAtom) Domains() []string {
	return copyStrings(a.domains)
}

// HasDomain reports whether the atom carries the given domain tag
func (a *NarrativeAtom) HasDomain(domain string) bool {
	for _, d := range a.domains {
		if d == domain {
			return true
		}
	}
	return false
}

// PeopleIDs returns the identifiers of people involved
func (a *NarrativeAtom) PeopleIDs() []string {
	return copyStrings(a.peopleIDs)
}

// InvolvesPerson reports whether the atom references the given person
func (a *NarrativeAtom) InvolvesPerson(personID string) bool {
	for _, p := range a.peopleIDs {
		if p == personID {
			return true
		}
	}
	return false
}

// Tags returns the atom's free-form tags
func (a *NarrativeAtom) Tags() []string {
	return copyStrings(a.tags)
}

// EmotionalWeight returns the atom's emotional intensity in [0,1]
func (a *NarrativeAtom) EmotionalWeight() float64 {
	return a.emotionalWeight
}

// Sensitivity returns the atom's sensitivity score in [0,1]
func (a *NarrativeAtom) Sensitivity() float64 {
	return a.sensitivity
}

// Significance returns the atom's narrative significance in [0,1]
func (a *NarrativeAtom) Significance() float64 {
	return a.significance
}

// Content returns the pre-summarized text of the atom
func (a *NarrativeAtom) Content() string {
	return a.content
}

// Sources returns references to the raw records the atom was extracted from
func (a *NarrativeAtom) Sources() []SourceRef {
	return append([]SourceRef(nil), a.sources...)
}

// Preserved reports whether the atom's original wording must be retained.
// Preserved atoms are never dropped during prioritization.
func (a *NarrativeAtom) Preserved() bool {
	return a.preserved
}

// Metadata returns the atom's tagged metadata variant
func (a *NarrativeAtom) Metadata() AtomMetadata {
	return a.metadata
}

func copyStrings(src []string) []string {
	if src == nil {
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
