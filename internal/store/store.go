// Package store persists accepted packages and their versions, and backs the
// uniqueness and vendor-ownership lookups the validation layer consumes.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/packtory/packtory/internal/versions"
)

// ErrNoResult is returned by lookups that found nothing. The validation
// layer treats it as a pass, not a failure.
var ErrNoResult = errors.New("no result")

// Package is an accepted package record.
type Package struct {
	ID            uuid.UUID
	Name          string
	Vendor        string
	RepositoryURL string
	RemoteID      string
	MaintainerIDs []uuid.UUID
	CreatedAt     time.Time
}

// VendorOf extracts the vendor segment of a package name. It returns the
// whole name when no separator is present.
func VendorOf(name string) string {
	if i := strings.Index(name, "/"); i >= 0 {
		return name[:i]
	}
	return name
}

// Store is the persistence capability consumed by the ingestion pipeline.
type Store interface {
	// FindPackageByName returns the package with the given name, or
	// ErrNoResult.
	FindPackageByName(ctx context.Context, name string) (*Package, error)

	// IsVendorTaken reports whether the vendor namespace is claimed by
	// packages none of which list the given maintainer.
	IsVendorTaken(ctx context.Context, vendor string, excludeMaintainer uuid.UUID) (bool, error)

	// CreatePackage persists a newly accepted package.
	CreatePackage(ctx context.Context, pkg *Package) error

	// ListVersions returns the stored version records of a package, in
	// storage order. Callers sort via the versions package.
	ListVersions(ctx context.Context, packageID uuid.UUID) ([]versions.Record, error)

	// ReplaceVersions swaps the stored version set of a package.
	ReplaceVersions(ctx context.Context, packageID uuid.UUID, records []versions.Record) error

	// Close releases any resources held by the store.
	Close() error
}
