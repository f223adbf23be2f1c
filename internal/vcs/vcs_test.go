package vcs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packtory/packtory/internal/httpclient"
	"github.com/packtory/packtory/internal/manifest"
)

func TestDriverForSelection(t *testing.T) {
	t.Parallel()
	factory := NewDriverFactory()

	tests := []struct {
		name       string
		url        string
		wantDriver any
		wantErr    bool
	}{
		{name: "github", url: "https://github.com/acme/widget", wantDriver: &githubDriver{}},
		{name: "github trailing git suffix", url: "https://github.com/acme/widget.git", wantDriver: &githubDriver{}},
		{name: "gitlab", url: "https://gitlab.com/acme/widget", wantDriver: &gitDriver{}},
		{name: "bitbucket", url: "https://bitbucket.org/acme/widget.git", wantDriver: &gitDriver{}},
		{name: "unknown host", url: "https://example.org/acme/widget", wantErr: true},
		{name: "github without repo segment", url: "https://github.com/acme", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			driver, err := factory.DriverFor(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				var noDriver *NoDriverError
				assert.True(t, errors.As(err, &noDriver))
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantDriver, driver)
		})
	}
}

func TestGitHubDriverStripsGitSuffixFromRepoName(t *testing.T) {
	t.Parallel()
	factory := NewDriverFactory()
	driver, err := factory.DriverFor("https://github.com/acme/widget.git")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/widget", driver.CanonicalURL())
}

func newGitHubStub(t *testing.T, manifestJSON string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/widget", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":             12345,
			"html_url":       "https://github.com/acme/widget",
			"default_branch": "main",
		})
	})
	mux.HandleFunc("GET /repos/acme/widget/contents/composer.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString([]byte(manifestJSON)),
		})
	})
	return httptest.NewServer(mux)
}

func TestResolveThroughGitHub(t *testing.T) {
	t.Parallel()

	server := newGitHubStub(t, `{"name": "acme/widget", "extra": {"branch-alias": {"dev-main": "2.x-dev"}}}`)
	defer server.Close()

	factory := NewDriverFactory(
		WithGitHubAPIBase(server.URL),
		WithHTTPClient(httpclient.NewDefaultClient(5*time.Second)),
	)

	res, err := Resolve(context.Background(), factory, "https://github.com/acme/widget")
	require.NoError(t, err)
	assert.Equal(t, RefID("main"), res.Ref)
	assert.Equal(t, "acme/widget", res.Manifest.Name)
	assert.Equal(t, "2.x-dev", res.Manifest.Extra.BranchAlias["dev-main"])
	assert.Equal(t, "https://github.com/acme/widget", res.CanonicalURL)
	require.NotNil(t, res.RemoteID)
	assert.Equal(t, "github.com", res.RemoteID.Host)
	assert.Equal(t, int64(12345), res.RemoteID.ID)
	assert.Equal(t, "github.com#12345", res.RemoteID.String())
}

func TestResolveGitHubRepositoryNotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	factory := NewDriverFactory(
		WithGitHubAPIBase(server.URL),
		WithHTTPClient(httpclient.NewDefaultClient(5*time.Second)),
	)

	_, err := Resolve(context.Background(), factory, "https://github.com/acme/widget")
	require.Error(t, err)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.True(t, transportErr.NotFound())
}

func TestResolveGitHubManifestMissingAtRef(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/widget", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":             1,
			"default_branch": "trunk",
		})
	})
	mux.HandleFunc("GET /repos/acme/widget/contents/composer.json", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	factory := NewDriverFactory(
		WithGitHubAPIBase(server.URL),
		WithHTTPClient(httpclient.NewDefaultClient(5*time.Second)),
	)

	_, err := Resolve(context.Background(), factory, "https://github.com/acme/widget")
	require.Error(t, err)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.True(t, transportErr.NotFound())
	assert.Equal(t, RefID("trunk"), transportErr.Ref)
}

func TestResolveGitHubUnparseableManifest(t *testing.T) {
	t.Parallel()

	server := newGitHubStub(t, `{broken`)
	defer server.Close()

	factory := NewDriverFactory(
		WithGitHubAPIBase(server.URL),
		WithHTTPClient(httpclient.NewDefaultClient(5*time.Second)),
	)

	_, err := Resolve(context.Background(), factory, "https://github.com/acme/widget")
	require.Error(t, err)

	var manifestErr *ManifestError
	assert.True(t, errors.As(err, &manifestErr))
}

// fakeGitClient serves canned repository state for the clone-backed driver.
type fakeGitClient struct {
	branch   string
	files    map[string][]byte
	cloneErr error
	clones   int
}

func (f *fakeGitClient) Clone(_ context.Context, _ string) (*RepositoryInfo, error) {
	f.clones++
	if f.cloneErr != nil {
		return nil, f.cloneErr
	}
	return &RepositoryInfo{Branch: f.branch}, nil
}

func (f *fakeGitClient) FileContent(_ *RepositoryInfo, path string) ([]byte, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", path, object.ErrFileNotFound)
	}
	return data, nil
}

func TestResolveThroughGitDriver(t *testing.T) {
	t.Parallel()

	client := &fakeGitClient{
		branch: "main",
		files: map[string][]byte{
			manifest.Filename: []byte(`{"name": "acme/widget"}`),
		},
	}
	factory := NewDriverFactory(WithGitClient(client))

	res, err := Resolve(context.Background(), factory, "https://gitlab.com/acme/widget")
	require.NoError(t, err)
	assert.Equal(t, RefID("main"), res.Ref)
	assert.Equal(t, "acme/widget", res.Manifest.Name)
	assert.Equal(t, "https://gitlab.com/acme/widget", res.CanonicalURL)
	assert.Nil(t, res.RemoteID)
	assert.Equal(t, 1, client.clones, "one clone must serve both the ref lookup and the manifest read")
}

func TestResolveGitDriverRepositoryNotFound(t *testing.T) {
	t.Parallel()

	client := &fakeGitClient{
		cloneErr: fmt.Errorf("clone: %w", transport.ErrRepositoryNotFound),
	}
	factory := NewDriverFactory(WithGitClient(client))

	_, err := Resolve(context.Background(), factory, "https://bitbucket.org/acme/widget.git")
	require.Error(t, err)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.True(t, transportErr.NotFound())
}

func TestResolveGitDriverMissingManifest(t *testing.T) {
	t.Parallel()

	client := &fakeGitClient{branch: "main", files: map[string][]byte{}}
	factory := NewDriverFactory(WithGitClient(client))

	_, err := Resolve(context.Background(), factory, "https://gitlab.com/acme/widget")
	require.Error(t, err)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.True(t, transportErr.NotFound())
	assert.Equal(t, RefID("main"), transportErr.Ref)
}
