package services

import (
	"sort"
	"time"

	"lorekeeper-backend/domain/config"
	"lorekeeper-backend/domain/core/entities"
	"lorekeeper-backend/pkg/utils"
)

// AtomPrioritizer ranks atoms within a chapter and selects a
// capacity-respecting, diverse subset. Preserved atoms, those marked to
// retain original wording, always rank first and are never dropped.
type AtomPrioritizer struct {
	cfg   *config.DomainConfig
	clock func() time.Time
}

// NewAtomPrioritizer creates a prioritizer
func NewAtomPrioritizer(cfg *config.DomainConfig) *AtomPrioritizer {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &AtomPrioritizer{cfg: cfg, clock: time.Now}
}

// WithClock overrides the prioritizer's time source. Intended for tests.
func (p *AtomPrioritizer) WithClock(clock func() time.Time) *AtomPrioritizer {
	p.clock = clock
	return p
}

// Score combines significance, emotional weight, recency, and uniqueness
// into a single priority. Uniqueness blends the inverse frequency of the
// atom's type and domains within the full candidate set.
func (p *AtomPrioritizer) Score(atom *entities.NarrativeAtom, stats *candidateStats, now time.Time) float64 {
	if atom.Preserved() {
		return 1.0
	}

	recency := utils.Clamp01(1 / (1 + utils.DaysBetween(atom.Timestamp(), now)/p.cfg.RecencyHalfLifeDays))

	return p.cfg.SignificanceWeight*atom.Significance() +
		p.cfg.EmotionalWeight*atom.EmotionalWeight() +
		p.cfg.RecencyWeight*recency +
		p.cfg.UniquenessWeight*stats.uniqueness(atom)
}

// Select returns at most capacity atoms (preserved atoms may push past the
// cap; they are unconditionally kept). Non-preserved picks are scored, then
// passed through a diversity sweep that favors atoms introducing a new type
// or domain, backfilling leftover capacity with the next-highest scores.
func (p *AtomPrioritizer) Select(atoms []*entities.NarrativeAtom, capacity int) []*entities.NarrativeAtom {
	if capacity <= 0 || len(atoms) == 0 {
		return nil
	}

	now := p.clock()
	stats := newCandidateStats(atoms)

	var preserved, candidates []*entities.NarrativeAtom
	for _, atom := range atoms {
		if atom.Preserved() {
			preserved = append(preserved, atom)
		} else {
			candidates = append(candidates, atom)
		}
	}

	remaining := capacity - len(preserved)
	if remaining <= 0 {
		return preserved
	}

	scored := make([]*entities.NarrativeAtom, len(candidates))
	copy(scored, candidates)
	sort.SliceStable(scored, func(i, j int) bool {
		return p.Score(scored[i], stats, now) > p.Score(scored[j], stats, now)
	})

	selected := diversify(scored, remaining)

	return append(preserved, selected...)
}

// diversify greedily keeps atoms introducing a new type or new domain, or
// unconditionally for the first half of the capacity, then backfills any
// unused capacity with the next-highest-scored remaining atoms
func diversify(scored []*entities.NarrativeAtom, capacity int) []*entities.NarrativeAtom {
	if len(scored) <= capacity {
		return scored
	}

	seenTypes := make(map[entities.AtomType]bool)
	seenDomains := make(map[string]bool)
	kept := make([]*entities.NarrativeAtom, 0, capacity)
	var skipped []*entities.NarrativeAtom

	for _, atom := range scored {
		if len(kept) >= capacity {
			break
		}

		unconditional := len(kept) < capacity/2
		introduces := !seenTypes[atom.Type()]
		if !introduces {
			for _, d := range atom.Domains() {
				if !seenDomains[d] {
					introduces = true
					break
				}
			}
		}

		if unconditional || introduces {
			kept = append(kept, atom)
			seenTypes[atom.Type()] = true
			for _, d := range atom.Domains() {
				seenDomains[d] = true
			}
		} else {
			skipped = append(skipped, atom)
		}
	}

	// Backfill with the best of what the diversity sweep passed over
	for _, atom := range skipped {
		if len(kept) >= capacity {
			break
		}
		kept = append(kept, atom)
	}

	return kept
}

// candidateStats holds type and domain frequencies over the full candidate
// set, shared across Score calls within one selection
type candidateStats struct {
	total        int
	typeCounts   map[entities.AtomType]int
	domainCounts map[string]int
}

func newCandidateStats(atoms []*entities.NarrativeAtom) *candidateStats {
	stats := &candidateStats{
		total:        len(atoms),
		typeCounts:   make(map[entities.AtomType]int),
		domainCounts: make(map[string]int),
	}
	for _, atom := range atoms {
		stats.typeCounts[atom.Type()]++
		for _, d := range atom.Domains() {
			stats.domainCounts[d]++
		}
	}
	return stats
}

// uniqueness is a 50/50 blend of inverse type frequency and mean inverse
// domain frequency within the candidate set
func (s *candidateStats) uniqueness(atom *entities.NarrativeAtom) float64 {
	if s.total == 0 {
		return 0
	}

	typeUniq := 1 - float64(s.typeCounts[atom.Type()])/float64(s.total)

	domains := atom.Domains()
	domainUniq := 0.0
	if len(domains) > 0 {
		var sum float64
		for _, d := range domains {
			sum += 1 - float64(s.domainCounts[d])/float64(s.total)
		}
		domainUniq = sum / float64(len(domains))
	}

	return 0.5*typeUniq + 0.5*domainUniq
}
