// Package planner computes the one-directional delta between the remote and
// local inventories: the work set of objects that still need to be pulled.
package planner

import (
	"github.com/snowpull/snowpull/pkg/inventory"
)

// Plan selects every remote entry that is absent from local or whose local
// size differs. Size equality is the sole equivalence test; no content hash
// is consulted. Entries present only locally are never reported. The
// returned total is the byte sum of the selected entries.
func Plan(remote, local inventory.Set) (inventory.Set, int64) {
	work := inventory.Set{}
	var total int64

	for name, size := range remote {
		if localSize, exists := local[name]; exists && localSize == size {
			continue
		}
		work[name] = size
		total += size
	}

	return work, total
}

// Filter intersects the work set by name against an external manifest,
// preserving each entry's size and recomputing the byte total.
func Filter(work inventory.Set, names map[string]struct{}) (inventory.Set, int64) {
	filtered := inventory.Set{}
	var total int64

	for name, size := range work {
		if _, ok := names[name]; !ok {
			continue
		}
		filtered[name] = size
		total += size
	}

	return filtered, total
}

// Exclude removes work-set entries whose name matches any of the glob
// patterns, mirroring the exclusion applied to the local walk.
func Exclude(work inventory.Set, patterns []string) (inventory.Set, int64, error) {
	if len(patterns) == 0 {
		return work, work.Total(), nil
	}

	kept := inventory.Set{}
	var total int64

	for name, size := range work {
		excluded, err := inventory.Excluded(name, patterns)
		if err != nil {
			return nil, 0, err
		}
		if excluded {
			continue
		}
		kept[name] = size
		total += size
	}

	return kept, total, nil
}
