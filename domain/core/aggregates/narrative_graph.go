package aggregates

import (
	"errors"
	"sort"
	"time"

	"lorekeeper-backend/domain/core/entities"
	"lorekeeper-backend/domain/core/valueobjects"
)

// EdgeType classifies the relationship an edge encodes
type EdgeType string

const (
	EdgeTemporal   EdgeType = "temporal"
	EdgeThematic   EdgeType = "thematic"
	EdgeRelational EdgeType = "relational"
)

// Edge is a weighted, undirected connection between two atoms
type Edge struct {
	SourceID valueobjects.AtomID
	TargetID valueobjects.AtomID
	Type     EdgeType
	Weight   float64
}

// TimeEntry pairs an atom ID with its timestamp in the time index
type TimeEntry struct {
	AtomID    valueobjects.AtomID
	Timestamp time.Time
}

// NarrativeGraph is the aggregate holding a user's atoms, the weighted edges
// between them, and lookup indexes. One graph exists per user and is owned
// exclusively by that user's pipeline run; there is no cross-user sharing.
// Graphs are rebuilt in full when stale, never updated incrementally.
type NarrativeGraph struct {
	userID      string
	atoms       map[valueobjects.AtomID]*entities.NarrativeAtom
	edges       []Edge
	domainIndex map[string][]valueobjects.AtomID
	personIndex map[string][]valueobjects.AtomID
	timeIndex   []TimeEntry
	builtAt     time.Time
}

// NewNarrativeGraph assembles a graph from pre-computed parts. Construction
// of edges and indexes belongs to the GraphBuilder domain service.
func NewNarrativeGraph(
	userID string,
	atoms []*entities.NarrativeAtom,
	edges []Edge,
	builtAt time.Time,
) (*NarrativeGraph, error) {
	if userID == "" {
		return nil, errors.New("userID required")
	}

	g := &NarrativeGraph{
		userID:      userID,
		atoms:       make(map[valueobjects.AtomID]*entities.NarrativeAtom, len(atoms)),
		edges:       append([]Edge(nil), edges...),
		domainIndex: make(map[string][]valueobjects.AtomID),
		personIndex: make(map[string][]valueobjects.AtomID),
		timeIndex:   make([]TimeEntry, 0, len(atoms)),
		builtAt:     builtAt,
	}

	for _, atom := range atoms {
		if atom == nil {
			return nil, errors.New("graph cannot contain nil atoms")
		}
		if atom.UserID() != userID {
			return nil, errors.New("graph cannot mix atoms across users")
		}
		if _, exists := g.atoms[atom.ID()]; exists {
			return nil, errors.New("duplicate atom in graph")
		}
		g.atoms[atom.ID()] = atom

		for _, domain := range atom.Domains() {
			g.domainIndex[domain] = append(g.domainIndex[domain], atom.ID())
		}
		for _, person := range atom.PeopleIDs() {
			g.personIndex[person] = append(g.personIndex[person], atom.ID())
		}
		g.timeIndex = append(g.timeIndex, TimeEntry{AtomID: atom.ID(), Timestamp: atom.Timestamp()})
	}

	sort.SliceStable(g.timeIndex, func(i, j int) bool {
		return g.timeIndex[i].Timestamp.Before(g.timeIndex[j].Timestamp)
	})

	return g, nil
}

// UserID returns the owner's ID
func (g *NarrativeGraph) UserID() string {
	return g.userID
}

// BuiltAt returns when the graph was constructed
func (g *NarrativeGraph) BuiltAt() time.Time {
	return g.builtAt
}

// IsStale reports whether the graph is older than the given window
func (g *NarrativeGraph) IsStale(maxAge time.Duration, now time.Time) bool {
	return now.Sub(g.builtAt) > maxAge
}

// AtomCount returns the number of atoms in the graph
func (g *NarrativeGraph) AtomCount() int {
	return len(g.atoms)
}

// EdgeCount returns the number of edges in the graph
func (g *NarrativeGraph) EdgeCount() int {
	return len(g.edges)
}

// GetAtom retrieves an atom by ID
func (g *NarrativeGraph) GetAtom(id valueobjects.AtomID) (*entities.NarrativeAtom, bool) {
	atom, ok := g.atoms[id]
	return atom, ok
}

// AtomsByTime returns all atoms ordered ascending by timestamp
func (g *NarrativeGraph) AtomsByTime() []*entities.NarrativeAtom {
	out := make([]*entities.NarrativeAtom, 0, len(g.timeIndex))
	for _, entry := range g.timeIndex {
		out = append(out, g.atoms[entry.AtomID])
	}
	return out
}

// AtomsByDomain returns atoms carrying the given domain tag, or false when
// the index has no entry for it
func (g *NarrativeGraph) AtomsByDomain(domain string) ([]*entities.NarrativeAtom, bool) {
	ids, ok := g.domainIndex[domain]
	if !ok {
		return nil, false
	}
	out := make([]*entities.NarrativeAtom, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.atoms[id])
	}
	return out, true
}

// AtomsByPerson returns atoms involving the given person
func (g *NarrativeGraph) AtomsByPerson(personID string) []*entities.NarrativeAtom {
	ids := g.personIndex[personID]
	out := make([]*entities.NarrativeAtom, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.atoms[id])
	}
	return out
}

// Edges returns all edges in the graph
func (g *NarrativeGraph) Edges() []Edge {
	edges := make([]Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// HasWellFormedIndex reports whether the lookup indexes are consistent with
// the atom set. A cached graph failing this check is rebuilt.
func (g *NarrativeGraph) HasWellFormedIndex() bool {
	if len(g.timeIndex) != len(g.atoms) {
		return false
	}
	for i := 1; i < len(g.timeIndex); i++ {
		if g.timeIndex[i].Timestamp.Before(g.timeIndex[i-1].Timestamp) {
			return false
		}
	}
	for _, ids := range g.domainIndex {
		for _, id := range ids {
			if _, ok := g.atoms[id]; !ok {
				return false
			}
		}
	}
	for _, ids := range g.personIndex {
		for _, id := range ids {
			if _, ok := g.atoms[id]; !ok {
				return false
			}
		}
	}
	return true
}

// Validate ensures graph invariants beyond index shape
func (g *NarrativeGraph) Validate() error {
	for _, edge := range g.edges {
		if _, ok := g.atoms[edge.SourceID]; !ok {
			return errors.New("edge references non-existent source atom")
		}
		if _, ok := g.atoms[edge.TargetID]; !ok {
			return errors.New("edge references non-existent target atom")
		}
		if edge.Weight < 0 || edge.Weight > 1 {
			return errors.New("edge weight out of range")
		}
	}
	if !g.HasWellFormedIndex() {
		return errors.New("graph index malformed")
	}
	return nil
}

// Stats derives summary statistics for biography metadata
func (g *NarrativeGraph) Stats() entities.GraphStats {
	stats := entities.GraphStats{
		AtomCount: len(g.atoms),
		EdgeCount: len(g.edges),
	}

	if len(g.edges) > 0 {
		var total float64
		degree := make(map[valueobjects.AtomID]int)
		for _, edge := range g.edges {
			total += edge.Weight
			degree[edge.SourceID]++
			degree[edge.TargetID]++
		}
		stats.AvgEdgeWeight = total / float64(len(g.edges))

		best := -1
		for id, d := range degree {
			if d > best || (d == best && id.String() < stats.MostConnectedID) {
				best = d
				stats.MostConnectedID = id.String()
			}
		}
	}

	return stats
}
