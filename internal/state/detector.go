package state

import (
	"context"
	"fmt"
	"log/slog"

	"frc2g/internal/model"
	"frc2g/internal/rules"
)

// Detector gates artefact generation on a change of the canonical rule set.
type Detector struct {
	store Store
}

func NewDetector(store Store) *Detector {
	return &Detector{store: store}
}

// ShouldRegenerate fingerprints set and compares it with the stored value. The
// new fingerprint is persisted only when regeneration is triggered. A missing
// stored fingerprint always triggers.
func (d *Detector) ShouldRegenerate(ctx context.Context, set []model.CanonicalRule) (bool, error) {
	current, err := rules.Fingerprint(set)
	if err != nil {
		return false, fmt.Errorf("fingerprint rules: %w", err)
	}
	previous, found, err := d.store.Load(ctx)
	if err != nil {
		return false, err
	}
	if found && previous == current {
		slog.Info("No change detected in rules", "fingerprint", current)
		return false, nil
	}
	if found {
		slog.Info("Rules changed", "previous", previous, "fingerprint", current)
	} else {
		slog.Info("No previous fingerprint, first run", "fingerprint", current)
	}
	if err := d.store.Save(ctx, current); err != nil {
		slog.Warn("Could not persist fingerprint", "error", err)
	}
	return true, nil
}
