package services

import (
	"go.uber.org/zap"

	"lorekeeper-backend/domain/config"
	"lorekeeper-backend/domain/core/entities"
	"lorekeeper-backend/domain/core/valueobjects"
)

// VersionFilter applies sensitivity and emotional-intensity thresholds
// according to a requested build flag. For any fixed input the invariant
// |safe| ≤ |main| ≤ |private| = |explicit| must hold.
type VersionFilter struct {
	cfg    *config.DomainConfig
	logger *zap.Logger
}

// NewVersionFilter creates a version filter
func NewVersionFilter(cfg *config.DomainConfig, logger *zap.Logger) *VersionFilter {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &VersionFilter{cfg: cfg, logger: logger}
}

// Apply filters a ranked atom list under the given build flag, preserving
// the input order of the survivors. Private and explicit versions pass
// everything through.
func (f *VersionFilter) Apply(
	atoms []*entities.NarrativeAtom,
	version valueobjects.BuildVersion,
	audience valueobjects.Audience,
) []*entities.NarrativeAtom {
	version = version.OrDefault()

	if version == valueobjects.VersionPrivate || version == valueobjects.VersionExplicit {
		return atoms
	}

	out := make([]*entities.NarrativeAtom, 0, len(atoms))
	dropped := 0
	for _, atom := range atoms {
		if f.excluded(atom, version, audience) {
			dropped++
			continue
		}
		out = append(out, atom)
	}

	if dropped > 0 {
		f.logger.Debug("version filter dropped atoms",
			zap.String("version", string(version)),
			zap.Int("dropped", dropped),
		)
	}

	return out
}

func (f *VersionFilter) excluded(
	atom *entities.NarrativeAtom,
	version valueobjects.BuildVersion,
	audience valueobjects.Audience,
) bool {
	switch version {
	case valueobjects.VersionSafe:
		if atom.Sensitivity() > f.cfg.SafeSensitivityCeiling {
			return true
		}
		if atom.EmotionalWeight() > f.cfg.SafeEmotionalCeiling {
			return true
		}
		if atom.Type() == entities.AtomConflict && audience == valueobjects.AudiencePublic {
			return true
		}
		return false
	default: // main
		return atom.Sensitivity() > f.cfg.MainSensitivityCeiling
	}
}
