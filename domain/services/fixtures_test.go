package services

import (
	"fmt"
	"time"

	"lorekeeper-backend/domain/core/entities"
	"lorekeeper-backend/domain/core/valueobjects"
)

// baseTime anchors every fixture so tests are independent of the wall clock
var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// atomFixture accumulates overrides for a test atom
type atomFixture struct {
	userID       string
	atomType     entities.AtomType
	timestamp    time.Time
	domains      []string
	peopleIDs    []string
	tags         []string
	emotional    float64
	sensitivity  float64
	significance float64
	content      string
	preserved    bool
	metadata     entities.AtomMetadata
}

func anAtom() atomFixture {
	return atomFixture{
		userID:       "user-1",
		atomType:     entities.AtomEvent,
		timestamp:    baseTime,
		domains:      []string{"career"},
		emotional:    0.5,
		sensitivity:  0.1,
		significance: 0.5,
		content:      "something happened",
		metadata:     entities.NoMetadata{},
	}
}

func (f atomFixture) at(t time.Time) atomFixture { f.timestamp = t; return f }
func (f atomFixture) daysLater(d float64) atomFixture {
	f.timestamp = baseTime.Add(time.Duration(d * 24 * float64(time.Hour)))
	return f
}
func (f atomFixture) ofType(t entities.AtomType) atomFixture           { f.atomType = t; return f }
func (f atomFixture) inDomains(d ...string) atomFixture                { f.domains = d; return f }
func (f atomFixture) withPeople(p ...string) atomFixture               { f.peopleIDs = p; return f }
func (f atomFixture) withTags(tags ...string) atomFixture              { f.tags = tags; return f }
func (f atomFixture) withSignificance(s float64) atomFixture           { f.significance = s; return f }
func (f atomFixture) withEmotionalWeight(w float64) atomFixture        { f.emotional = w; return f }
func (f atomFixture) withSensitivity(s float64) atomFixture            { f.sensitivity = s; return f }
func (f atomFixture) withContent(c string) atomFixture                 { f.content = c; return f }
func (f atomFixture) asPreserved() atomFixture                         { f.preserved = true; return f }
func (f atomFixture) forUser(id string) atomFixture                    { f.userID = id; return f }
func (f atomFixture) withMetadata(m entities.AtomMetadata) atomFixture { f.metadata = m; return f }

func (f atomFixture) build() *entities.NarrativeAtom {
	atom, err := entities.ReconstructAtom(
		valueobjects.NewAtomID(),
		f.userID,
		f.atomType,
		f.timestamp,
		f.domains,
		f.peopleIDs,
		f.tags,
		f.emotional,
		f.sensitivity,
		f.significance,
		f.content,
		nil,
		f.preserved,
		f.metadata,
	)
	if err != nil {
		panic(fmt.Sprintf("bad atom fixture: %v", err))
	}
	return atom
}

func shortVoid(start, end time.Time) *entities.VoidPeriod {
	return entities.NewVoidPeriod(
		valueobjects.MustTimeSpan(start, end),
		entities.VoidShortGap,
		entities.VoidSignificanceLow,
		entities.FillAcknowledgeVoid,
	)
}

// buildMany creates n atoms spaced apart by the given interval
func buildMany(n int, start time.Time, interval time.Duration, base atomFixture) []*entities.NarrativeAtom {
	atoms := make([]*entities.NarrativeAtom, 0, n)
	for i := 0; i < n; i++ {
		f := base.at(start.Add(time.Duration(i) * interval))
		f.content = fmt.Sprintf("%s #%d", base.content, i)
		atoms = append(atoms, f.build())
	}
	return atoms
}
