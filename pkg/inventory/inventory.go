// Package inventory builds name→size snapshots of the remote bucket and the
// local destination tree. Names use forward-slash separators on both sides so
// the two snapshots are directly comparable.
package inventory

// Set is a point-in-time name→size snapshot. Keys are unique within one
// snapshot; a name may appear in one snapshot, both, or neither.
type Set map[string]int64

// Total returns the sum of all entry sizes.
func (s Set) Total() int64 {
	var total int64
	for _, size := range s {
		total += size
	}
	return total
}
