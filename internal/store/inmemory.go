package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/packtory/packtory/internal/versions"
)

// inMemoryStore is a map-backed Store for tests and single-node deployments.
type inMemoryStore struct {
	mu            sync.RWMutex
	byName        map[string]*Package
	versionsByPkg map[uuid.UUID][]versions.Record
}

var _ Store = (*inMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() Store {
	return &inMemoryStore{
		byName:        make(map[string]*Package),
		versionsByPkg: make(map[uuid.UUID][]versions.Record),
	}
}

// FindPackageByName returns the package with the given name, or ErrNoResult.
func (s *inMemoryStore) FindPackageByName(_ context.Context, name string) (*Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pkg, ok := s.byName[name]
	if !ok {
		return nil, ErrNoResult
	}
	copied := *pkg
	return &copied, nil
}

// IsVendorTaken reports whether the vendor namespace belongs to other
// maintainers. A vendor is writable when the maintainer co-owns at least one
// package in it.
func (s *inMemoryStore) IsVendorTaken(_ context.Context, vendor string, excludeMaintainer uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := false
	for _, pkg := range s.byName {
		if pkg.Vendor != vendor {
			continue
		}
		found = true
		for _, m := range pkg.MaintainerIDs {
			if m == excludeMaintainer {
				return false, nil
			}
		}
	}
	return found, nil
}

// CreatePackage persists a newly accepted package.
func (s *inMemoryStore) CreatePackage(_ context.Context, pkg *Package) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[pkg.Name]; exists {
		return fmt.Errorf("package %s already exists", pkg.Name)
	}
	copied := *pkg
	s.byName[pkg.Name] = &copied
	return nil
}

// ListVersions returns the stored version records of a package.
func (s *inMemoryStore) ListVersions(_ context.Context, packageID uuid.UUID) ([]versions.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.versionsByPkg[packageID]
	if !ok {
		return nil, ErrNoResult
	}
	out := make([]versions.Record, len(records))
	copy(out, records)
	return out, nil
}

// ReplaceVersions swaps the stored version set of a package.
func (s *inMemoryStore) ReplaceVersions(_ context.Context, packageID uuid.UUID, records []versions.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]versions.Record, len(records))
	copy(copied, records)
	s.versionsByPkg[packageID] = copied
	return nil
}

// Close implements Store.
func (*inMemoryStore) Close() error {
	return nil
}
