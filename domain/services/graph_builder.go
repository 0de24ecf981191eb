package services

import (
	"time"

	"go.uber.org/zap"

	"lorekeeper-backend/domain/config"
	"lorekeeper-backend/domain/core/aggregates"
	"lorekeeper-backend/domain/core/entities"
	pkgerrors "lorekeeper-backend/pkg/errors"
)

// GraphBuilder constructs a NarrativeGraph from a user's atom set.
// Edge construction is O(n²) over atom pairs; this is acceptable because
// builds are infrequent and amortized by the 24h graph cache.
type GraphBuilder struct {
	cfg    *config.DomainConfig
	logger *zap.Logger
	clock  func() time.Time
}

// NewGraphBuilder creates a graph builder
func NewGraphBuilder(cfg *config.DomainConfig, logger *zap.Logger) *GraphBuilder {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &GraphBuilder{
		cfg:    cfg,
		logger: logger,
		clock:  time.Now,
	}
}

// WithClock overrides the builder's time source. Intended for tests.
func (b *GraphBuilder) WithClock(clock func() time.Time) *GraphBuilder {
	b.clock = clock
	return b
}

// Build constructs a full graph over the given atoms: one temporal edge per
// pair closer than the temporal window (weight decays linearly to zero at
// the window edge) and one overlap edge per pair sharing at least one domain
// or person (weight is the Jaccard overlap ratio).
func (b *GraphBuilder) Build(userID string, atoms []*entities.NarrativeAtom) (*aggregates.NarrativeGraph, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}

	windowDays := b.cfg.TemporalEdgeWindow.Hours() / 24
	var edges []aggregates.Edge

	for i := 0; i < len(atoms); i++ {
		for j := i + 1; j < len(atoms); j++ {
			a, c := atoms[i], atoms[j]

			gap := a.Timestamp().Sub(c.Timestamp())
			if gap < 0 {
				gap = -gap
			}
			if gap <= b.cfg.TemporalEdgeWindow {
				weight := 1 - (gap.Hours()/24)/windowDays
				if weight > b.cfg.MinEdgeWeight {
					edges = append(edges, aggregates.Edge{
						SourceID: a.ID(),
						TargetID: c.ID(),
						Type:     aggregates.EdgeTemporal,
						Weight:   weight,
					})
				}
			}

			if weight, ok := domainOverlap(a, c); ok {
				edges = append(edges, aggregates.Edge{
					SourceID: a.ID(),
					TargetID: c.ID(),
					Type:     aggregates.EdgeThematic,
					Weight:   weight,
				})
			} else if weight, ok := personOverlap(a, c); ok {
				edges = append(edges, aggregates.Edge{
					SourceID: a.ID(),
					TargetID: c.ID(),
					Type:     aggregates.EdgeRelational,
					Weight:   weight,
				})
			}
		}
	}

	graph, err := aggregates.NewNarrativeGraph(userID, atoms, edges, b.clock())
	if err != nil {
		return nil, pkgerrors.Wrap(err, "graph construction failed")
	}

	b.logger.Info("narrative graph built",
		zap.String("userID", userID),
		zap.Int("atoms", graph.AtomCount()),
		zap.Int("edges", graph.EdgeCount()),
	)

	return graph, nil
}

// domainOverlap returns the Jaccard similarity of two atoms' domain sets,
// reporting false when they share nothing
func domainOverlap(a, b *entities.NarrativeAtom) (float64, bool) {
	return setJaccard(a.Domains(), b.Domains())
}

// personOverlap returns the Jaccard similarity of two atoms' people sets
func personOverlap(a, b *entities.NarrativeAtom) (float64, bool) {
	return setJaccard(a.PeopleIDs(), b.PeopleIDs())
}

// setJaccard calculates the Jaccard index |A ∩ B| / |A ∪ B| over two string
// slices, reporting false when the intersection is empty
func setJaccard(a, b []string) (float64, bool) {
	if len(a) == 0 || len(b) == 0 {
		return 0, false
	}

	setA := make(map[string]bool, len(a))
	for _, s := range a {
		setA[s] = true
	}
	setB := make(map[string]bool, len(b))
	for _, s := range b {
		setB[s] = true
	}

	intersection := 0
	union := len(setA)
	for s := range setB {
		if setA[s] {
			intersection++
		} else {
			union++
		}
	}

	if intersection == 0 {
		return 0, false
	}
	return float64(intersection) / float64(union), true
}
