package validate

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/packtory/packtory/internal/store"
)

// Registry is the persisted-state lookup capability the independent checks
// consume. Both lookups may report store.ErrNoResult, which is a pass.
type Registry interface {
	FindPackageByName(ctx context.Context, name string) (*store.Package, error)
	IsVendorTaken(ctx context.Context, vendor string, excludeMaintainer uuid.UUID) (bool, error)
}

// CheckUnique rejects a name colliding with an existing package. It runs
// outside the main chain and its violation is aggregated additively by the
// caller.
func CheckUnique(ctx context.Context, reg Registry, name string) (*Violation, error) {
	existing, err := reg.FindPackageByName(ctx, name)
	if errors.Is(err, store.ErrNoResult) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up package %s: %w", name, err)
	}
	return newViolation(KindNameNotUnique, fmt.Sprintf(
		"A package with the name %s already exists, see /packages/%s.",
		existing.Name, existing.Name)), nil
}

// CheckVendorWritable rejects a name whose vendor segment is claimed by a
// different maintainer set.
func CheckVendorWritable(ctx context.Context, reg Registry, name string, maintainer uuid.UUID) (*Violation, error) {
	vendor := store.VendorOf(name)
	taken, err := reg.IsVendorTaken(ctx, vendor, maintainer)
	if errors.Is(err, store.ErrNoResult) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up vendor %s: %w", vendor, err)
	}
	if taken {
		return newViolation(KindVendorNotWritable, fmt.Sprintf(
			"The vendor name %s is already taken by other maintainers, "+
				"pick a different vendor name or ask them to add you as a maintainer.",
			vendor)), nil
	}
	return nil, nil
}
