// Package manifest computes differences between manifest versions.
package manifest

import (
	"encoding/json"
	"sort"

	"github.com/hyperengineering/fableforge/internal/types"
)

// Change describes one modified entry between two manifest versions.
type Change struct {
	Path string              `json:"path"`
	From types.ManifestEntry `json:"from"`
	To   types.ManifestEntry `json:"to"`
}

// Diff is the result of comparing two manifest versions.
type Diff struct {
	FromVersion int64                          `json:"from_version"`
	ToVersion   int64                          `json:"to_version"`
	Added       map[string]types.ManifestEntry `json:"added"`
	Removed     map[string]types.ManifestEntry `json:"removed"`
	Changed     []Change                       `json:"changed"`
}

// Compute compares two manifests entry by entry.
// An entry is changed when its hash, size, or kind differs.
func Compute(from, to *types.Manifest) Diff {
	d := Diff{
		FromVersion: from.Version,
		ToVersion:   to.Version,
		Added:       map[string]types.ManifestEntry{},
		Removed:     map[string]types.ManifestEntry{},
	}

	for path, entry := range to.Entries {
		old, ok := from.Entries[path]
		if !ok {
			d.Added[path] = entry
			continue
		}
		if old != entry {
			d.Changed = append(d.Changed, Change{Path: path, From: old, To: entry})
		}
	}

	for path, entry := range from.Entries {
		if _, ok := to.Entries[path]; !ok {
			d.Removed[path] = entry
		}
	}

	// Stable output for clients and tests
	sort.Slice(d.Changed, func(i, j int) bool {
		return d.Changed[i].Path < d.Changed[j].Path
	})

	return d
}

// MarshalJSON ensures a nil changed slice marshals as [] not null.
func (d Diff) MarshalJSON() ([]byte, error) {
	if d.Changed == nil {
		d.Changed = []Change{}
	}
	type Alias Diff
	return json.Marshal(Alias(d))
}
