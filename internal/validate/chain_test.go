package validate

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packtory/packtory/internal/manifest"
	"github.com/packtory/packtory/internal/urlnorm"
	"github.com/packtory/packtory/internal/vcs"
)

func resolved(name string) Candidate {
	return Candidate{Manifest: &manifest.Manifest{Name: name}}
}

func TestCheckCandidateAcceptsValidNames(t *testing.T) {
	t.Parallel()
	policy := MustDefaultPolicy()

	for _, name := range []string{
		"foo/bar",
		"foo-bar/baz_qux",
		"acme/widget.core",
		"a1/b2",
		"my.vendor/my-package",
	} {
		assert.Nil(t, policy.CheckCandidate(resolved(name)), "name %q", name)
	}
}

func TestCheckCandidateSkipsUnmodifiedAcceptedRepository(t *testing.T) {
	t.Parallel()
	policy := MustDefaultPolicy()

	c := Candidate{
		Name:       "acme/widget",
		Unmodified: true,
		// Even a recorded failure is ignored when nothing changed.
		Flag: urlnorm.FlagUnparseable,
	}
	assert.Nil(t, policy.CheckCandidate(c))
}

func TestCheckCandidateRepositoryFailures(t *testing.T) {
	t.Parallel()
	policy := MustDefaultPolicy()

	tests := []struct {
		name        string
		candidate   Candidate
		wantKind    Kind
		wantMessage string
	}{
		{
			name:      "insecure scheme",
			candidate: Candidate{Flag: urlnorm.FlagInsecureScheme},
			wantKind:  KindInsecureScheme,
		},
		{
			name:      "embedded credentials",
			candidate: Candidate{Flag: urlnorm.FlagEmbeddedCredentials},
			wantKind:  KindEmbeddedCredentials,
		},
		{
			name:      "local path is generic",
			candidate: Candidate{Flag: urlnorm.FlagLocalPath},
			wantKind:  KindNoRepository,
		},
		{
			name:      "unparseable is generic",
			candidate: Candidate{Flag: urlnorm.FlagUnparseable},
			wantKind:  KindNoRepository,
		},
		{
			name: "no driver",
			candidate: Candidate{
				ResolveErr: &vcs.NoDriverError{URL: "https://example.org/a/b"},
			},
			wantKind:    KindResolveFailed,
			wantMessage: "no driver found to handle repository https://example.org/a/b",
		},
		{
			name: "manifest missing at ref names the ref",
			candidate: Candidate{
				ResolveErr: &vcs.TransportError{
					URL:    "https://github.com/a/b",
					Ref:    "main",
					Status: http.StatusNotFound,
					Err:    errors.New("not found"),
				},
			},
			wantKind:    KindResolveFailed,
			wantMessage: `No composer.json was found in the repository at ref "main", make sure one exists on the default branch.`,
		},
		{
			name: "transport failure renders sanitized text",
			candidate: Candidate{
				ResolveErr: &vcs.TransportError{
					URL: "https://github.com/a/b",
					Err: errors.New("connection\nrefused"),
				},
			},
			wantKind:    KindResolveFailed,
			wantMessage: "failed to fetch from https://github.com/a/b: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := policy.CheckCandidate(tt.candidate)
			require.NotNil(t, v)
			assert.Equal(t, "repository", v.Path)
			assert.Equal(t, tt.wantKind, v.Kind)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, v.Message)
			}
		})
	}
}

func TestCheckCandidateNamePolicy(t *testing.T) {
	t.Parallel()
	policy := MustDefaultPolicy()

	tests := []struct {
		name      string
		pkgName   string
		wantKind  Kind
		wantInMsg string
	}{
		{name: "missing slash", pkgName: "justonename", wantKind: KindNameSyntaxInvalid},
		{name: "three segments", pkgName: "a/b/c", wantKind: KindNameSyntaxInvalid},
		{name: "leading separator", pkgName: "-foo/bar", wantKind: KindNameSyntaxInvalid},
		{name: "double separator", pkgName: "foo--bar/baz", wantKind: KindNameSyntaxInvalid},
		{name: "trailing separator", pkgName: "foo/bar-", wantKind: KindNameSyntaxInvalid},
		{name: "blocked streaming spam", pkgName: "watch-free/full-movie-stream", wantKind: KindNameBlocked},
		{name: "blocked separator stripping", pkgName: "acme/c.o.i.n.s-g.e.n.e.r.a.t.o.r", wantKind: KindNameBlocked},
		{name: "blocked crypto spam", pkgName: "acme/bitcoin-generator", wantKind: KindNameBlocked},
		{name: "allowlisted vendor overrides blocklist", pkgName: "moneyphp/freecoins"},
		{name: "reserved vendor", pkgName: "nul/anything", wantKind: KindNameReserved},
		{name: "reserved package", pkgName: "anything/com1", wantKind: KindNameReserved},
		{name: "reserved case-insensitive", pkgName: "acme/LPT9", wantKind: KindNameReserved},
		{name: "json suffix", pkgName: "vendor/package.json", wantKind: KindNameInvalidSuffix},
		{
			name:      "uppercase with suggestion",
			pkgName:   "Foo/bar",
			wantKind:  KindNameHasUppercase,
			wantInMsg: "foo/bar",
		},
		{
			name:      "camel case suggestion",
			pkgName:   "acme/fooBar",
			wantKind:  KindNameHasUppercase,
			wantInMsg: "acme/foo-bar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := policy.CheckCandidate(resolved(tt.pkgName))
			if tt.wantKind == "" {
				assert.Nil(t, v)
				return
			}
			require.NotNil(t, v)
			assert.Equal(t, tt.wantKind, v.Kind)
			if tt.wantInMsg != "" {
				assert.Contains(t, v.Message, tt.wantInMsg)
			}
		})
	}
}

func TestCheckCandidateReservedBeatsUppercaseOnly(t *testing.T) {
	t.Parallel()
	policy := MustDefaultPolicy()

	// The chain is ordered: reserved names are reported before the
	// uppercase check when the segment is lowercase.
	v := policy.CheckCandidate(resolved("acme/lpt9"))
	require.NotNil(t, v)
	assert.Equal(t, KindNameReserved, v.Kind)
}

func TestCheckCandidateMissingManifestName(t *testing.T) {
	t.Parallel()
	policy := MustDefaultPolicy()

	v := policy.CheckCandidate(Candidate{Manifest: &manifest.Manifest{}})
	require.NotNil(t, v)
	assert.Equal(t, KindManifestMissingName, v.Kind)

	v = policy.CheckCandidate(Candidate{Manifest: nil})
	require.NotNil(t, v)
	assert.Equal(t, KindManifestMissingName, v.Kind)
}

func TestCheckCandidateReportsOnlyFirstViolation(t *testing.T) {
	t.Parallel()
	policy := MustDefaultPolicy()

	// Uppercase AND .json suffix AND reserved segment: only the earliest
	// chain step fires.
	v := policy.CheckCandidate(resolved("NUL/package.json"))
	require.NotNil(t, v)
	assert.Equal(t, KindNameReserved, v.Kind)
}

func TestSuggestLowercaseName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "Foo/bar", want: "foo/bar"},
		{in: "acme/FooBar", want: "acme/foo-bar"},
		{in: "acme/fooBar", want: "acme/foo-bar"},
		{in: "acme/FOOBar", want: "acme/foo-bar"},
		{in: "ACME/widget", want: "acme/widget"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SuggestLowercaseName(tt.in), "input %q", tt.in)
	}
}

func TestNewPolicyExtendsWordLists(t *testing.T) {
	t.Parallel()

	policy, err := NewPolicy(PolicyConfig{
		BlockedPatterns: []string{`totallybanned`},
		AllowedVendors:  []string{"trusted"},
		ReservedNames:   []string{"internal"},
	})
	require.NoError(t, err)

	v := policy.CheckCandidate(resolved("acme/totally-banned"))
	require.NotNil(t, v)
	assert.Equal(t, KindNameBlocked, v.Kind)

	assert.Nil(t, policy.CheckCandidate(resolved("trusted/totally-banned")))

	v = policy.CheckCandidate(resolved("acme/internal"))
	require.NotNil(t, v)
	assert.Equal(t, KindNameReserved, v.Kind)
}

func TestNewPolicyRejectsBrokenPattern(t *testing.T) {
	t.Parallel()

	_, err := NewPolicy(PolicyConfig{BlockedPatterns: []string{`(`}})
	assert.Error(t, err)
}
