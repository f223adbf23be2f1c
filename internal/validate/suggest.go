package validate

import (
	"regexp"
	"strings"
)

// Boundaries where a hyphen is inserted before lower-casing: lower→upper
// ("fooBar") and upper→upper-followed-by-lower ("FOOBar").
var caseBoundaryRe = regexp.MustCompile(`([a-z])([A-Z])|([A-Z])([A-Z][a-z])`)

// SuggestLowercaseName rewrites a name containing uppercase characters into
// the hyphenated lower-case form offered to the submitter.
func SuggestLowercaseName(name string) string {
	return strings.ToLower(caseBoundaryRe.ReplaceAllString(name, `${1}${3}-${2}${4}`))
}
