// Package merger unions indexer result sets into one raw sequence.
package merger

import (
	"sort"

	"github.com/mavryk-network/activity-history/internal/domain/model"
)

// Merge concatenates results, drops records whose ID was already seen and
// returns the union sorted strictly descending by ID. The first occurrence of
// a duplicated ID wins.
func Merge(results ...[]model.RawOperation) []model.RawOperation {
	total := 0
	for _, r := range results {
		total += len(r)
	}
	if total == 0 {
		return nil
	}

	seen := make(map[int64]struct{}, total)
	merged := make([]model.RawOperation, 0, total)
	for _, r := range results {
		for _, op := range r {
			if _, dup := seen[op.ID]; dup {
				continue
			}
			seen[op.ID] = struct{}{}
			merged = append(merged, op)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].ID > merged[j].ID
	})
	return merged
}

// Oldest returns the record with the earliest timestamp, the lowest ID on
// ties, and false when ops is empty.
func Oldest(ops []model.RawOperation) (model.RawOperation, bool) {
	if len(ops) == 0 {
		return model.RawOperation{}, false
	}
	oldest := ops[0]
	for _, op := range ops[1:] {
		if op.Timestamp.Before(oldest.Timestamp) || (op.Timestamp.Equal(oldest.Timestamp) && op.ID < oldest.ID) {
			oldest = op
		}
	}
	return oldest, true
}
