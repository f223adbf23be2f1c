// Package vcs resolves a normalized repository location to its package
// manifest. Each hosting family has a driver implementing the capability
// contract; host detection by URL shape selects the driver. Resolution is a
// single attempt with no retries: the submission flow simply re-resolves when
// the user resubmits.
package vcs

import (
	"context"
	"fmt"

	"github.com/packtory/packtory/internal/manifest"
)

// RefID identifies a ref (branch, tag or commit) within a repository.
type RefID string

// RemoteID is an opaque remote repository identity, used for dedup across
// renames. Only drivers with API access can supply one.
type RemoteID struct {
	Host string
	ID   int64
}

// String renders the identity in host#id form.
func (r RemoteID) String() string {
	return fmt.Sprintf("%s#%d", r.Host, r.ID)
}

// Driver is the capability contract a hosting family must provide.
// Implementations keep no shared mutable state across repository locations
// and may be used concurrently for different locations.
type Driver interface {
	// DefaultRef returns the repository's default branch ref.
	DefaultRef(ctx context.Context) (RefID, error)

	// ManifestAt fetches and parses the package manifest at the given ref.
	ManifestAt(ctx context.Context, ref RefID) (*manifest.Manifest, error)

	// CanonicalURL returns the canonical public URL for the repository.
	CanonicalURL() string
}

// IdentityProvider is an optional driver capability exposing the remote
// repository identity.
type IdentityProvider interface {
	RepositoryIdentity(ctx context.Context) (*RemoteID, error)
}

// Resolution is the outcome of a successful resolve: the manifest at the
// default ref plus whatever identity data the driver could supply. One
// Resolution is produced per validation pass; the validator never re-fetches.
type Resolution struct {
	Ref          RefID
	Manifest     *manifest.Manifest
	CanonicalURL string
	RemoteID     *RemoteID
}

// Resolve selects a driver for the location, looks up the default ref and
// fetches the manifest at that ref. Every failure is typed so the validator
// can render it.
func Resolve(ctx context.Context, factory Factory, url string) (*Resolution, error) {
	driver, err := factory.DriverFor(url)
	if err != nil {
		return nil, err
	}

	ref, err := driver.DefaultRef(ctx)
	if err != nil {
		return nil, err
	}

	m, err := driver.ManifestAt(ctx, ref)
	if err != nil {
		return nil, err
	}

	res := &Resolution{
		Ref:          ref,
		Manifest:     m,
		CanonicalURL: driver.CanonicalURL(),
	}

	if provider, ok := driver.(IdentityProvider); ok {
		id, err := provider.RepositoryIdentity(ctx)
		if err != nil {
			return nil, err
		}
		res.RemoteID = id
	}

	return res, nil
}
