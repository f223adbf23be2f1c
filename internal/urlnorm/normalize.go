// Package urlnorm canonicalizes user-submitted repository URLs.
//
// Each hosting family (GitHub, GitLab, Bitbucket) accepts several spellings of
// the same repository location: SSH shorthand, the legacy git:// scheme,
// trailing .git suffixes, embedded usernames and browse-style paths. The
// normalizer rewrites all of them to a single canonical public HTTPS form so
// that the rest of the pipeline only ever sees one spelling per repository.
package urlnorm

import (
	"regexp"
	"strings"
)

// Flag classifies a repository location that must not be resolved.
type Flag int

const (
	// FlagNone means the location is canonical and resolvable.
	FlagNone Flag = iota

	// FlagLocalPath marks filesystem paths (leading '.', '/', or a drive
	// letter). These are left unmodified and rejected outright.
	FlagLocalPath

	// FlagInsecureScheme marks plain-HTTP URLs. The scheme is lower-cased
	// but never silently upgraded to HTTPS.
	FlagInsecureScheme

	// FlagEmbeddedCredentials marks HTTP(S) URLs carrying a user@host
	// credential pattern. Credentials indicate a private source and are a
	// rejection signal, not something to strip.
	FlagEmbeddedCredentials

	// FlagUnparseable marks locations matching neither an SSH shorthand
	// nor a scheme://path shape. Resolution is skipped entirely.
	FlagUnparseable
)

// String returns a short identifier for the flag, used in log fields.
func (f Flag) String() string {
	switch f {
	case FlagNone:
		return "none"
	case FlagLocalPath:
		return "local-path"
	case FlagInsecureScheme:
		return "insecure-scheme"
	case FlagEmbeddedCredentials:
		return "embedded-credentials"
	case FlagUnparseable:
		return "unparseable"
	default:
		return "unknown"
	}
}

// Result is a normalized repository location. URL holds the canonical form
// for its host family, or the original string unchanged when no rewrite rule
// matched or the location was rejected.
type Result struct {
	URL  string
	Flag Flag
}

// Valid reports whether the location may be handed to a VCS driver.
func (r Result) Valid() bool {
	return r.Flag == FlagNone
}

var (
	localPathRe = regexp.MustCompile(`^(?:\.|[a-zA-Z]:|/)`)

	githubSSHRe    = regexp.MustCompile(`(?i)^git@github\.com:`)
	githubGitRe    = regexp.MustCompile(`(?i)^git://github\.com/`)
	githubSuffixRe = regexp.MustCompile(`(?i)^(https://github\.com/.*?)\.git$`)

	gitlabSSHRe    = regexp.MustCompile(`(?i)^git@gitlab\.com:`)
	gitlabSuffixRe = regexp.MustCompile(`(?i)^(https://gitlab\.com/.*?)\.git$`)

	bitbucketShortRe  = regexp.MustCompile(`(?i)^(?:git@bitbucket\.org:|bitbucket\.org:)`)
	bitbucketUserRe   = regexp.MustCompile(`(?i)^https://[a-z0-9_-]+@bitbucket\.org/`)
	bitbucketBrowseRe = regexp.MustCompile(`(?i)^(https://bitbucket\.org/[^/]+/[^/]+)/src/[^.]+`)

	schemeRe = regexp.MustCompile(`(?i)^(https?|git|svn)://`)

	credentialsRe = regexp.MustCompile(`(?i)^https?://[^/@]+@`)

	// Permissive parseability gates: SSH shorthand (user@host:path) or any
	// scheme followed by a path.
	sshShorthandRe = regexp.MustCompile(`^[^@/\s]+@[^:/\s]+:\S+$`)
	schemePathRe   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://\S+$`)
)

// Normalize rewrites a repository location to its canonical public form and
// classifies locations that must be rejected. It is a pure function and
// idempotent: Normalize(Normalize(u).URL) yields the same result.
func Normalize(raw string) Result {
	if localPathRe.MatchString(raw) {
		return Result{URL: raw, Flag: FlagLocalPath}
	}

	u := raw

	// GitHub
	u = githubSSHRe.ReplaceAllString(u, "https://github.com/")
	u = githubGitRe.ReplaceAllString(u, "https://github.com/")
	u = githubSuffixRe.ReplaceAllString(u, "$1")

	// GitLab
	u = gitlabSSHRe.ReplaceAllString(u, "https://gitlab.com/")
	u = gitlabSuffixRe.ReplaceAllString(u, "$1")

	// Bitbucket
	u = bitbucketShortRe.ReplaceAllString(u, "https://bitbucket.org/")
	u = bitbucketUserRe.ReplaceAllString(u, "https://bitbucket.org/")
	u = bitbucketBrowseRe.ReplaceAllString(u, "${1}.git")

	// Lower-case the scheme, leaving the rest of the string untouched.
	if m := schemeRe.FindString(u); m != "" {
		u = strings.ToLower(m) + u[len(m):]
	}

	switch {
	case credentialsRe.MatchString(u):
		return Result{URL: u, Flag: FlagEmbeddedCredentials}
	case strings.HasPrefix(u, "http://"):
		return Result{URL: u, Flag: FlagInsecureScheme}
	case !sshShorthandRe.MatchString(u) && !schemePathRe.MatchString(u):
		return Result{URL: u, Flag: FlagUnparseable}
	}

	return Result{URL: u}
}
