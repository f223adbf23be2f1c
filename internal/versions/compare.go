// Package versions orders discovered package versions for display and
// resolution. The comparator is a strict weak ordering: deterministic for
// identical inputs and safe for any stable sort.
package versions

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// devSentinel is the value arbitrary dev branches sort as: an alpha
// pre-release below every numeric version.
const devSentinel = "0.0.0-alpha"

var xDevAliasRe = regexp.MustCompile(`\.x-dev$`)

// Record is the slice of a version entity the comparator reads.
type Record struct {
	// Version is the normalized version string.
	Version string

	// BranchAlias maps version labels to the version they alias, as
	// declared in the manifest extra section.
	BranchAlias map[string]string

	// ReleasedAt is the release timestamp, used to break ties between
	// equal versions.
	ReleasedAt time.Time

	// DefaultBranch marks the repository's default branch.
	DefaultBranch bool
}

// sortKey computes the effective version string a record is compared as:
// the branch alias replaces the label when one is declared, arbitrary dev
// branches collapse to the low sentinel, and `<version>.x-dev` aliases are
// rewritten so they sort just above every `<version>.y` final release.
func sortKey(r Record) string {
	v := r.Version
	if alias, ok := r.BranchAlias[v]; ok {
		v = alias
	}
	if strings.HasPrefix(v, "dev-") {
		return devSentinel
	}
	return xDevAliasRe.ReplaceAllString(v, ".9999999-dev")
}

// Compare orders two records by descending relevance: it returns a negative
// value when a sorts before b, positive when b sorts before a, and zero when
// they are indistinguishable.
//
// The default-branch override is asymmetric on purpose: when both sides
// collapse to the dev sentinel, the left operand's default-branch flag is
// consulted first.
func Compare(a, b Record) int {
	aKey := sortKey(a)
	bKey := sortKey(b)

	if aKey == devSentinel && a.DefaultBranch {
		return -1
	}
	if bKey == devSentinel && b.DefaultBranch {
		return 1
	}

	if aKey == bKey {
		// Most recent release first.
		if a.ReleasedAt.After(b.ReleasedAt) {
			return -1
		}
		if a.ReleasedAt.Before(b.ReleasedAt) {
			return 1
		}
		// Last-resort stable tiebreak on the original version strings.
		return strings.Compare(a.Version, b.Version)
	}

	aVersion, errA := semver.NewVersion(aKey)
	bVersion, errB := semver.NewVersion(bKey)
	if errA != nil || errB != nil {
		// Fallback to string comparison if semver parsing fails,
		// still descending.
		return strings.Compare(bKey, aKey)
	}
	return bVersion.Compare(aVersion)
}

// Sort orders records in place by descending relevance.
func Sort(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return Compare(records[i], records[j]) < 0
	})
}
