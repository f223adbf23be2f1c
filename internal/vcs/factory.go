package vcs

import (
	"regexp"
	"time"

	"github.com/packtory/packtory/internal/httpclient"
)

var (
	githubRepoRe    = regexp.MustCompile(`(?i)^https://github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)
	gitlabRepoRe    = regexp.MustCompile(`(?i)^https://gitlab\.com/[^/]+/.+$`)
	bitbucketRepoRe = regexp.MustCompile(`(?i)^https://bitbucket\.org/[^/]+/.+$`)
)

// Factory creates a driver for a repository URL, or a NoDriverError when no
// hosting family recognizes the URL shape.
type Factory interface {
	DriverFor(url string) (Driver, error)
}

// DriverOption configures the default driver factory.
type DriverOption func(*defaultFactory)

// WithHTTPClient overrides the HTTP client used by API-backed drivers.
func WithHTTPClient(client httpclient.Client) DriverOption {
	return func(f *defaultFactory) {
		f.httpClient = client
	}
}

// WithGitHubAPIBase overrides the GitHub API base URL. Used in tests.
func WithGitHubAPIBase(base string) DriverOption {
	return func(f *defaultFactory) {
		f.githubAPIBase = base
	}
}

// WithGitClient overrides the git client used by clone-backed drivers.
func WithGitClient(client GitClient) DriverOption {
	return func(f *defaultFactory) {
		f.gitClient = client
	}
}

// defaultFactory selects drivers by URL shape.
type defaultFactory struct {
	httpClient    httpclient.Client
	gitClient     GitClient
	githubAPIBase string
}

var _ Factory = (*defaultFactory)(nil)

// NewDriverFactory creates the default driver factory.
func NewDriverFactory(opts ...DriverOption) Factory {
	f := &defaultFactory{
		httpClient:    httpclient.NewDefaultClient(30 * time.Second),
		gitClient:     NewDefaultGitClient(),
		githubAPIBase: defaultGitHubAPIBase,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// DriverFor selects a driver implementation by URL shape.
func (f *defaultFactory) DriverFor(url string) (Driver, error) {
	if m := githubRepoRe.FindStringSubmatch(url); m != nil {
		return newGitHubDriver(m[1], m[2], f.httpClient, f.githubAPIBase), nil
	}
	if gitlabRepoRe.MatchString(url) {
		return newGitDriver(url, "gitlab.com", f.gitClient), nil
	}
	if bitbucketRepoRe.MatchString(url) {
		return newGitDriver(url, "bitbucket.org", f.gitClient), nil
	}
	return nil, &NoDriverError{URL: url}
}
