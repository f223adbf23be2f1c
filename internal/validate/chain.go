package validate

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/packtory/packtory/internal/manifest"
	"github.com/packtory/packtory/internal/urlnorm"
	"github.com/packtory/packtory/internal/vcs"
)

// Candidate is the validator's view of a submission after normalization and
// resolution: the repository classification, the resolution outcome, and any
// previously accepted name.
type Candidate struct {
	// Name is the previously accepted package name, empty for new
	// submissions.
	Name string

	// Unmodified marks a re-validation of an already-accepted repository
	// with no re-resolution requested.
	Unmodified bool

	// Flag is the normalizer's classification of the repository URL.
	Flag urlnorm.Flag

	// ResolveErr is the typed resolver failure, nil on success.
	ResolveErr error

	// Manifest is the resolved manifest, nil when resolution failed.
	Manifest *manifest.Manifest
}

// step is one link of the validation chain: it either passes (nil) or emits
// the single violation that terminates the pass.
type step func(p *Policy, c Candidate, name string) *Violation

var chain = []step{
	stepRepository,
	stepManifestName,
	stepNameSyntax,
	stepBlocklist,
	stepReserved,
	stepJSONSuffix,
	stepUppercase,
	stepNameAssigned,
}

// CheckCandidate runs the short-circuiting validation chain and returns the
// first violation, or nil when the candidate passes. At most one violation is
// ever produced per pass.
func (p *Policy) CheckCandidate(c Candidate) *Violation {
	// An accepted, unmodified repository with a name needs no re-check.
	if c.Unmodified && c.Name != "" {
		return nil
	}

	name := ""
	if c.Manifest != nil {
		name = strings.TrimSpace(c.Manifest.Name)
	}

	for _, s := range chain {
		if v := s(p, c, name); v != nil {
			return v
		}
	}
	return nil
}

func stepRepository(_ *Policy, c Candidate, _ string) *Violation {
	if c.Flag == urlnorm.FlagNone && c.ResolveErr == nil {
		return nil
	}

	switch c.Flag {
	case urlnorm.FlagInsecureScheme:
		return newViolation(KindInsecureScheme,
			"Do not use insecure plain-http URLs, submit the https:// form of the repository URL instead.")
	case urlnorm.FlagEmbeddedCredentials:
		return newViolation(KindEmbeddedCredentials,
			"Do not use URLs containing credentials, they indicate a private repository; submit the public repository URL instead.")
	}

	if c.ResolveErr != nil {
		var transportErr *vcs.TransportError
		if errors.As(c.ResolveErr, &transportErr) && transportErr.NotFound() && transportErr.Ref != "" {
			return newViolation(KindResolveFailed, fmt.Sprintf(
				"No %s was found in the repository at ref %q, make sure one exists on the default branch.",
				manifest.Filename, transportErr.Ref))
		}
		return newViolation(KindResolveFailed, sanitizeMessage(c.ResolveErr.Error()))
	}

	return newViolation(KindNoRepository, "No valid repository was found at the given URL.")
}

func stepManifestName(_ *Policy, c Candidate, name string) *Violation {
	if c.Manifest == nil || name == "" {
		return newViolation(KindManifestMissingName, fmt.Sprintf(
			"The package name was not found in the %s, make sure there is a name present.",
			manifest.Filename))
	}
	return nil
}

func stepNameSyntax(_ *Policy, _ Candidate, name string) *Violation {
	if !namePattern.MatchString(name) {
		return newViolation(KindNameSyntaxInvalid, fmt.Sprintf(
			"The package name %s is invalid, it should have a vendor name, a forward slash, "+
				"and a package name; the vendor and name parts must match %s.",
			name, namePatternSource))
	}
	return nil
}

func stepBlocklist(p *Policy, _ Candidate, name string) *Violation {
	if p.blocked(name) {
		return newViolation(KindNameBlocked, fmt.Sprintf(
			"The package name %s is blocked, if you think this is a mistake please get in touch with us.",
			name))
	}
	return nil
}

func stepReserved(p *Policy, _ Candidate, name string) *Violation {
	if p.isReserved(name) {
		return newViolation(KindNameReserved, fmt.Sprintf(
			"The package name %s is reserved, package and vendor names can not match any of: %s.",
			name, strings.Join(defaultReservedNames, ", ")))
	}
	return nil
}

func stepJSONSuffix(_ *Policy, _ Candidate, name string) *Violation {
	if strings.HasSuffix(name, ".json") {
		return newViolation(KindNameInvalidSuffix, fmt.Sprintf(
			"The package name %s is invalid, package names can not end in .json, consider renaming it.",
			name))
	}
	return nil
}

func stepUppercase(_ *Policy, _ Candidate, name string) *Violation {
	if strings.IndexFunc(name, unicode.IsUpper) >= 0 {
		return newViolation(KindNameHasUppercase, fmt.Sprintf(
			"The package name %s is invalid, it should not contain uppercase characters. "+
				"We suggest using %s instead.",
			name, SuggestLowercaseName(name)))
	}
	return nil
}

func stepNameAssigned(_ *Policy, _ Candidate, name string) *Violation {
	if name == "" {
		return newViolation(KindNameUnexpectedEmpty,
			"An unexpected error has made our parser fail to find a package name in your repository, "+
				"if you think this is incorrect please try again.")
	}
	return nil
}

// sanitizeMessage strips control characters from adapter error text and caps
// its length so raw remote errors are safe to render.
func sanitizeMessage(msg string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, msg)
	const maxLen = 300
	if len(cleaned) > maxLen {
		cleaned = cleaned[:maxLen] + "…"
	}
	return cleaned
}
