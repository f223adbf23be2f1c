package versions

// Index is a finished, ordered view over a package's versions. It is built
// once when the version collection is finalized; there is no lazy caching.
type Index struct {
	ordered   []Record
	byVersion map[string]int
}

// NewIndex sorts the records by descending relevance and builds the lookup
// table. The input slice is not modified.
func NewIndex(records []Record) *Index {
	ordered := make([]Record, len(records))
	copy(ordered, records)
	Sort(ordered)

	byVersion := make(map[string]int, len(ordered))
	for i, r := range ordered {
		if _, ok := byVersion[r.Version]; !ok {
			byVersion[r.Version] = i
		}
	}

	return &Index{
		ordered:   ordered,
		byVersion: byVersion,
	}
}

// Ordered returns the records in descending relevance order.
func (ix *Index) Ordered() []Record {
	return ix.ordered
}

// Lookup returns the record for a normalized version string.
func (ix *Index) Lookup(version string) (Record, bool) {
	i, ok := ix.byVersion[version]
	if !ok {
		return Record{}, false
	}
	return ix.ordered[i], true
}

// Len returns the number of indexed records.
func (ix *Index) Len() int {
	return len(ix.ordered)
}
