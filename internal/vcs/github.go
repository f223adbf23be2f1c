package vcs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/packtory/packtory/internal/httpclient"
	"github.com/packtory/packtory/internal/manifest"
)

const defaultGitHubAPIBase = "https://api.github.com"

// githubDriver resolves repositories through the GitHub REST API. Unlike the
// clone-backed drivers it can also report the remote repository identity,
// which survives renames of the repository.
type githubDriver struct {
	owner   string
	repo    string
	apiBase string
	client  httpclient.Client

	// meta is populated by DefaultRef and reused for CanonicalURL and
	// RepositoryIdentity so one resolve costs two requests, not three.
	meta *githubRepoMeta
}

type githubRepoMeta struct {
	ID            int64  `json:"id"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch"`
}

type githubContent struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

func newGitHubDriver(owner, repo string, client httpclient.Client, apiBase string) *githubDriver {
	return &githubDriver{
		owner:   owner,
		repo:    repo,
		apiBase: apiBase,
		client:  client,
	}
}

// DefaultRef looks up the repository's default branch.
func (d *githubDriver) DefaultRef(ctx context.Context) (RefID, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s", d.apiBase, d.owner, d.repo)
	body, err := d.client.Get(ctx, endpoint)
	if err != nil {
		return "", &TransportError{
			URL:    d.CanonicalURL(),
			Status: httpclient.StatusOf(err),
			Err:    err,
		}
	}

	var meta githubRepoMeta
	if err := json.Unmarshal(body, &meta); err != nil {
		return "", &TransportError{
			URL: d.CanonicalURL(),
			Err: fmt.Errorf("unexpected repository metadata: %w", err),
		}
	}
	if meta.DefaultBranch == "" {
		return "", &TransportError{
			URL: d.CanonicalURL(),
			Err: fmt.Errorf("repository metadata has no default branch"),
		}
	}

	d.meta = &meta
	return RefID(meta.DefaultBranch), nil
}

// ManifestAt fetches the manifest through the contents API at the given ref.
func (d *githubDriver) ManifestAt(ctx context.Context, ref RefID) (*manifest.Manifest, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		d.apiBase, d.owner, d.repo, manifest.Filename, url.QueryEscape(string(ref)))
	body, err := d.client.Get(ctx, endpoint)
	if err != nil {
		return nil, &TransportError{
			URL:    d.CanonicalURL(),
			Ref:    ref,
			Status: httpclient.StatusOf(err),
			Err:    err,
		}
	}

	var content githubContent
	if err := json.Unmarshal(body, &content); err != nil {
		return nil, &ManifestError{URL: d.CanonicalURL(), Ref: ref, Err: err}
	}

	raw := []byte(content.Content)
	if content.Encoding == "base64" {
		raw, err = base64.StdEncoding.DecodeString(strings.ReplaceAll(content.Content, "\n", ""))
		if err != nil {
			return nil, &ManifestError{
				URL: d.CanonicalURL(),
				Ref: ref,
				Err: fmt.Errorf("failed to decode manifest content: %w", err),
			}
		}
	}

	m, err := manifest.Parse(raw)
	if err != nil {
		return nil, &ManifestError{URL: d.CanonicalURL(), Ref: ref, Err: err}
	}
	return m, nil
}

// CanonicalURL returns the canonical public URL for the repository.
func (d *githubDriver) CanonicalURL() string {
	if d.meta != nil && d.meta.HTMLURL != "" {
		return d.meta.HTMLURL
	}
	return fmt.Sprintf("https://github.com/%s/%s", d.owner, d.repo)
}

// RepositoryIdentity returns the numeric repository id reported by the API.
// It requires DefaultRef to have run first; the resolver guarantees that.
func (d *githubDriver) RepositoryIdentity(_ context.Context) (*RemoteID, error) {
	if d.meta == nil {
		return nil, fmt.Errorf("repository metadata not fetched")
	}
	return &RemoteID{Host: "github.com", ID: d.meta.ID}, nil
}
