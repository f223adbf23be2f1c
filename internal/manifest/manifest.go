// Package manifest defines the package manifest shape consumed from a
// resolved repository. Only the fields the ingestion pipeline needs are
// modeled; the document is read-only and never written back.
package manifest

import (
	"encoding/json"
	"fmt"
)

// Filename is the manifest file looked up at the repository's default ref.
const Filename = "composer.json"

// Manifest is the package's self-declared metadata document.
type Manifest struct {
	// Name is the proposed package name, "vendor/package". May be empty
	// when the manifest omits it; the validator rejects that case.
	Name string `json:"name"`

	// Extra carries free-form metadata. Only the branch-alias map is read.
	Extra Extra `json:"extra,omitempty"`
}

// Extra holds the subset of the manifest's extra section used for version
// ordering.
type Extra struct {
	// BranchAlias maps a branch version label to the numeric version it
	// should be treated as for sorting and constraint resolution.
	BranchAlias map[string]string `json:"branch-alias,omitempty"`
}

// Parse decodes manifest bytes fetched from a repository.
func Parse(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("manifest data cannot be empty")
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", Filename, err)
	}
	return &m, nil
}
