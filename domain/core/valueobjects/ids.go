package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// AtomID is a value object representing a unique narrative atom identifier
// Value objects are immutable and have no identity beyond their value
type AtomID struct {
	value string
}

// NewAtomID creates a new random AtomID
func NewAtomID() AtomID {
	return AtomID{value: uuid.New().String()}
}

// NewAtomIDFromString creates an AtomID from an existing string
func NewAtomIDFromString(id string) (AtomID, error) {
	if id == "" {
		return AtomID{}, errors.New("atom ID cannot be empty")
	}
	if !isValidUUID(id) {
		return AtomID{}, errors.New("atom ID must be a valid UUID")
	}
	return AtomID{value: id}, nil
}

// String returns the string representation of the AtomID
func (id AtomID) String() string {
	return id.value
}

// Equals checks if two AtomIDs are equal
func (id AtomID) Equals(other AtomID) bool {
	return id.value == other.value
}

// IsZero checks if the AtomID is the zero value
func (id AtomID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id AtomID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *AtomID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("AtomID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// BiographyID identifies an assembled biography
type BiographyID string

// NewBiographyID creates a new random BiographyID
func NewBiographyID() BiographyID {
	return BiographyID(uuid.New().String())
}

// String returns the string representation
func (id BiographyID) String() string {
	return string(id)
}

// IsZero checks if the BiographyID is the zero value
func (id BiographyID) IsZero() bool {
	return id == ""
}

// ChapterID identifies a chapter cluster
type ChapterID string

// NewChapterID creates a new random ChapterID
func NewChapterID() ChapterID {
	return ChapterID(uuid.New().String())
}

// String returns the string representation
func (id ChapterID) String() string {
	return string(id)
}

// VoidID identifies a detected void period
type VoidID string

// NewVoidID creates a new random VoidID
func NewVoidID() VoidID {
	return VoidID(uuid.New().String())
}

// String returns the string representation
func (id VoidID) String() string {
	return string(id)
}

// isValidUUID validates if a string is a valid UUID
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
