package entities

// MetadataKind discriminates the tagged metadata variants attached to atoms
type MetadataKind string

const (
	MetadataKindNone               MetadataKind = "none"
	MetadataKindEvent              MetadataKind = "event"
	MetadataKindSkillMilestone     MetadataKind = "skill_milestone"
	MetadataKindCreativeOutput     MetadataKind = "creative_output"
	MetadataKindRelationshipMoment MetadataKind = "relationship_moment"
)

// AtomMetadata is the tagged-variant metadata carried by a narrative atom.
// Filters and placement rules switch on the concrete type instead of probing
// an open-ended key bag.
type AtomMetadata interface {
	Kind() MetadataKind
}

// NoMetadata is the empty variant for atom types that carry no extra detail
type NoMetadata struct{}

func (NoMetadata) Kind() MetadataKind { return MetadataKindNone }

// EventMetadata locates an event atom in the user's entity space
type EventMetadata struct {
	EventID    string
	LocationID string
}

func (EventMetadata) Kind() MetadataKind { return MetadataKindEvent }

// SkillMilestoneMetadata ties a milestone atom to a tracked skill
type SkillMilestoneMetadata struct {
	SkillID string
	Level   string
}

func (SkillMilestoneMetadata) Kind() MetadataKind { return MetadataKindSkillMilestone }

// CreativeOutputMetadata describes the produced work
type CreativeOutputMetadata struct {
	WorkID string
	Medium string
}

func (CreativeOutputMetadata) Kind() MetadataKind { return MetadataKindCreativeOutput }

// RelationshipMomentMetadata qualifies the relationship involved
type RelationshipMomentMetadata struct {
	RelationshipKind string
}

func (RelationshipMomentMetadata) Kind() MetadataKind { return MetadataKindRelationshipMoment }
