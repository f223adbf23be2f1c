package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packtory/packtory/internal/versions"
)

func testPackage(name string, maintainers ...uuid.UUID) *Package {
	return &Package{
		ID:            uuid.New(),
		Name:          name,
		Vendor:        VendorOf(name),
		RepositoryURL: "https://github.com/" + name,
		MaintainerIDs: maintainers,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestVendorOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "acme", VendorOf("acme/widget"))
	assert.Equal(t, "acme", VendorOf("acme"))
}

func TestFindPackageByName(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()
	ctx := context.Background()

	_, err := s.FindPackageByName(ctx, "acme/widget")
	assert.ErrorIs(t, err, ErrNoResult)

	pkg := testPackage("acme/widget", uuid.New())
	require.NoError(t, s.CreatePackage(ctx, pkg))

	found, err := s.FindPackageByName(ctx, "acme/widget")
	require.NoError(t, err)
	assert.Equal(t, pkg.ID, found.ID)
	assert.Equal(t, pkg.RepositoryURL, found.RepositoryURL)
}

func TestCreatePackageRejectsDuplicate(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreatePackage(ctx, testPackage("acme/widget")))
	err := s.CreatePackage(ctx, testPackage("acme/widget"))
	assert.ErrorContains(t, err, "already exists")
}

func TestIsVendorTaken(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()
	ctx := context.Background()

	owner := uuid.New()
	stranger := uuid.New()

	taken, err := s.IsVendorTaken(ctx, "acme", stranger)
	require.NoError(t, err)
	assert.False(t, taken, "empty vendor namespace is free for anyone")

	require.NoError(t, s.CreatePackage(ctx, testPackage("acme/widget", owner)))

	taken, err = s.IsVendorTaken(ctx, "acme", owner)
	require.NoError(t, err)
	assert.False(t, taken, "co-maintainer keeps write access")

	taken, err = s.IsVendorTaken(ctx, "acme", stranger)
	require.NoError(t, err)
	assert.True(t, taken, "vendor belongs to other maintainers")
}

func TestVersionRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()
	ctx := context.Background()

	pkg := testPackage("acme/widget", uuid.New())
	require.NoError(t, s.CreatePackage(ctx, pkg))

	_, err := s.ListVersions(ctx, pkg.ID)
	assert.ErrorIs(t, err, ErrNoResult)

	records := []versions.Record{
		{Version: "1.0.0", ReleasedAt: time.Now().UTC()},
		{Version: "dev-master", DefaultBranch: true},
	}
	require.NoError(t, s.ReplaceVersions(ctx, pkg.ID, records))

	got, err := s.ListVersions(ctx, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, records, got)

	// Mutating the returned slice does not leak into the store.
	got[0].Version = "mutated"
	again, err := s.ListVersions(ctx, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", again[0].Version)
}
