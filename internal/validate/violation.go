// Package validate applies the package name and repository acceptance policy.
//
// The main chain is an ordered sequence of short-circuiting steps: each step
// either passes or produces exactly one Violation and halts the chain, so a
// submitter is never shown more than one chain failure per attempt. The
// uniqueness and vendor-ownership checks run outside the chain against
// persisted state and may add further violations.
package validate

// Kind classifies a violation for callers that branch on the failure mode.
type Kind string

// Violation kinds, in rough chain order.
const (
	KindNoRepository        Kind = "no_repository"
	KindInsecureScheme      Kind = "insecure_scheme"
	KindEmbeddedCredentials Kind = "embedded_credentials"
	KindResolveFailed       Kind = "resolve_failed"
	KindManifestMissingName Kind = "manifest_missing_name"
	KindNameSyntaxInvalid   Kind = "name_syntax_invalid"
	KindNameBlocked         Kind = "name_blocked"
	KindNameReserved        Kind = "name_reserved"
	KindNameInvalidSuffix   Kind = "name_invalid_suffix"
	KindNameHasUppercase    Kind = "name_has_uppercase"
	KindNameUnexpectedEmpty Kind = "name_unexpected_empty"
	KindNameNotUnique       Kind = "name_not_unique"
	KindVendorNotWritable   Kind = "vendor_not_writable"
)

// Violation is a single structured validation failure attached to a property
// path. This layer only ever reports against the repository property.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Kind    Kind   `json:"-"`
}

// violationPath is the property every violation from this layer points at.
const violationPath = "repository"

func newViolation(kind Kind, message string) *Violation {
	return &Violation{
		Path:    violationPath,
		Message: message,
		Kind:    kind,
	}
}
