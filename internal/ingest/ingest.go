// Package ingest orchestrates a package submission: normalize the repository
// URL, resolve it to a manifest, validate the declared name, and persist the
// accepted package. One submission is one validation pass; the resolver runs
// at most once per pass and the validator observes that single resolution.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/packtory/packtory/internal/store"
	"github.com/packtory/packtory/internal/urlnorm"
	"github.com/packtory/packtory/internal/validate"
	"github.com/packtory/packtory/internal/vcs"
)

// Candidate is the entity-in-progress being validated: the normalized
// repository location plus the cached outcome of the single resolution of
// this pass.
type Candidate struct {
	Name       string
	Repository urlnorm.Result

	resolution *vcs.Resolution
	resolveErr error
}

// Resolution returns the cached resolution of this pass, nil when resolution
// failed or was skipped.
func (c *Candidate) Resolution() *vcs.Resolution {
	return c.resolution
}

// Outcome is the result of one submission pass: either an accepted package
// or the violations to re-display to the submitter.
type Outcome struct {
	Package    *store.Package
	Violations []validate.Violation
}

// Accepted reports whether the submission passed validation.
func (o *Outcome) Accepted() bool {
	return len(o.Violations) == 0
}

// Ingestor wires the pipeline stages together.
type Ingestor struct {
	drivers vcs.Factory
	store   store.Store
	policy  *validate.Policy
}

// New creates an Ingestor.
func New(drivers vcs.Factory, st store.Store, policy *validate.Policy) *Ingestor {
	return &Ingestor{
		drivers: drivers,
		store:   st,
		policy:  policy,
	}
}

// Submit runs one full validation pass over a raw repository URL submitted by
// the given maintainer. Violations are returned in the Outcome; the error
// return is reserved for infrastructure failures (store unavailable).
func (ing *Ingestor) Submit(ctx context.Context, rawURL string, maintainer uuid.UUID) (*Outcome, error) {
	candidate := &Candidate{
		Repository: urlnorm.Normalize(strings.TrimSpace(rawURL)),
	}

	if candidate.Repository.Valid() {
		start := time.Now()
		candidate.resolution, candidate.resolveErr = vcs.Resolve(ctx, ing.drivers, candidate.Repository.URL)
		if candidate.resolveErr != nil {
			slog.Info("Repository resolution failed",
				"url", candidate.Repository.URL,
				"duration", time.Since(start).String(),
				"error", candidate.resolveErr)
		} else {
			slog.Debug("Repository resolved",
				"url", candidate.Repository.URL,
				"ref", candidate.resolution.Ref,
				"duration", time.Since(start).String())
		}
	}

	if v := ing.policy.CheckCandidate(chainInput(candidate)); v != nil {
		return &Outcome{Violations: []validate.Violation{*v}}, nil
	}

	candidate.Name = strings.TrimSpace(candidate.resolution.Manifest.Name)

	var violations []validate.Violation
	unique, err := validate.CheckUnique(ctx, ing.store, candidate.Name)
	if err != nil {
		return nil, fmt.Errorf("uniqueness check failed: %w", err)
	}
	if unique != nil {
		violations = append(violations, *unique)
	}

	vendor, err := validate.CheckVendorWritable(ctx, ing.store, candidate.Name, maintainer)
	if err != nil {
		return nil, fmt.Errorf("vendor ownership check failed: %w", err)
	}
	if vendor != nil {
		violations = append(violations, *vendor)
	}

	if len(violations) > 0 {
		return &Outcome{Violations: violations}, nil
	}

	pkg := acceptedPackage(candidate, maintainer)
	if err := ing.store.CreatePackage(ctx, pkg); err != nil {
		return nil, fmt.Errorf("failed to persist package %s: %w", pkg.Name, err)
	}

	slog.Info("Package accepted",
		"name", pkg.Name,
		"repository", pkg.RepositoryURL,
		"remote_id", pkg.RemoteID)

	return &Outcome{Package: pkg}, nil
}

// Revalidate re-runs validation for an already-accepted package whose
// repository was not modified. No re-resolution is requested, so the pass
// short-circuits to success.
func (ing *Ingestor) Revalidate(pkg *store.Package) *Outcome {
	v := ing.policy.CheckCandidate(validate.Candidate{
		Name:       pkg.Name,
		Unmodified: true,
	})
	if v != nil {
		return &Outcome{Violations: []validate.Violation{*v}}
	}
	return &Outcome{Package: pkg}
}

// chainInput projects the candidate onto the validator's view.
func chainInput(c *Candidate) validate.Candidate {
	input := validate.Candidate{
		Name:       c.Name,
		Flag:       c.Repository.Flag,
		ResolveErr: c.resolveErr,
	}
	if c.resolution != nil {
		input.Manifest = c.resolution.Manifest
	}
	return input
}

// acceptedPackage materializes the accepted (name, canonical URL, remote id)
// triple as a store record.
func acceptedPackage(c *Candidate, maintainer uuid.UUID) *store.Package {
	canonicalURL := c.Repository.URL
	if c.resolution.CanonicalURL != "" {
		canonicalURL = c.resolution.CanonicalURL
	}

	remoteID := ""
	if c.resolution.RemoteID != nil {
		remoteID = c.resolution.RemoteID.String()
	}

	return &store.Package{
		ID:            uuid.New(),
		Name:          c.Name,
		Vendor:        store.VendorOf(c.Name),
		RepositoryURL: canonicalURL,
		RemoteID:      remoteID,
		MaintainerIDs: []uuid.UUID{maintainer},
		CreatedAt:     time.Now().UTC(),
	}
}
