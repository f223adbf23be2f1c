package vcs

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/packtory/packtory/internal/manifest"
)

// gitDriver resolves repositories over the plain git protocol with a shallow
// in-memory clone. It serves hosts without a dedicated API driver (GitLab,
// Bitbucket). The clone happens once per driver instance: DefaultRef clones,
// ManifestAt reads from the same checkout, so both observe the same state.
type gitDriver struct {
	url    string
	host   string
	client GitClient

	repo *RepositoryInfo
}

func newGitDriver(url, host string, client GitClient) *gitDriver {
	return &gitDriver{
		url:    url,
		host:   host,
		client: client,
	}
}

// DefaultRef clones the repository and returns the branch HEAD points at.
func (d *gitDriver) DefaultRef(ctx context.Context) (RefID, error) {
	if d.repo == nil {
		info, err := d.client.Clone(ctx, d.url)
		if err != nil {
			return "", d.transportError("", err)
		}
		d.repo = info
	}
	return RefID(d.repo.Branch), nil
}

// ManifestAt reads the manifest from the cloned repository's HEAD commit.
func (d *gitDriver) ManifestAt(ctx context.Context, ref RefID) (*manifest.Manifest, error) {
	if d.repo == nil {
		if _, err := d.DefaultRef(ctx); err != nil {
			return nil, err
		}
	}

	data, err := d.client.FileContent(d.repo, manifest.Filename)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, &TransportError{
				URL:    d.url,
				Ref:    ref,
				Status: http.StatusNotFound,
				Err:    err,
			}
		}
		return nil, d.transportError(ref, err)
	}

	m, err := manifest.Parse(data)
	if err != nil {
		return nil, &ManifestError{URL: d.url, Ref: ref, Err: err}
	}
	return m, nil
}

// CanonicalURL returns the canonical public URL for the repository.
func (d *gitDriver) CanonicalURL() string {
	return d.url
}

func (d *gitDriver) transportError(ref RefID, err error) *TransportError {
	status := 0
	if errors.Is(err, transport.ErrRepositoryNotFound) {
		status = http.StatusNotFound
	}
	return &TransportError{
		URL:    d.url,
		Ref:    ref,
		Status: status,
		Err:    err,
	}
}
