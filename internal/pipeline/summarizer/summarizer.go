// Package summarizer folds a classified operation group into one feed entry.
package summarizer

import (
	"github.com/mavryk-network/activity-history/internal/domain/model"
	"github.com/mavryk-network/activity-history/internal/pipeline/classifier"
)

var statusPriority = []model.OperationStatus{
	model.StatusPending,
	model.StatusApplied,
	model.StatusBacktracked,
	model.StatusSkipped,
	model.StatusFailed,
}

// Status picks the highest-priority status among items, falling back to the
// group's first operation.
func Status(items []model.HistoryItem, group model.OperationsGroup) model.OperationStatus {
	present := make(map[model.OperationStatus]struct{}, len(items))
	for _, item := range items {
		present[item.Base().Status] = struct{}{}
	}
	for _, status := range statusPriority {
		if _, ok := present[status]; ok {
			return status
		}
	}
	if len(group.Operations) > 0 {
		return group.Operations[0].Status
	}
	return ""
}

// Type labels the group. A leading delegation or origination decides
// outright; otherwise every item is scanned and the last one that matches a
// rule wins. Reveals carry no asset movement and do not take part in the
// scan; a group made only of reveals is labelled Reveal.
func Type(items []model.HistoryItem, group model.OperationsGroup, account string) model.HistoryItemType {
	if len(group.Operations) > 0 {
		switch group.Operations[0].Kind {
		case model.KindDelegation:
			return model.TypeDelegation
		case model.KindOrigination:
			return model.TypeOrigination
		}
	}

	current := model.TypeOther
	scanned := 0
	for _, item := range items {
		if _, isReveal := item.(model.Reveal); isReveal {
			continue
		}
		scanned++
		base := item.Base()
		switch {
		case model.AmountIsZero(base.Amount):
			current = model.TypeInteraction
		case base.Source.Address == account:
			current = model.TypeTransferTo
		case model.TransfersOf(item) != nil:
			if model.TransfersOf(item).HasRecipient(account) {
				current = model.TypeTransferFrom
			} else {
				current = model.TypeTransferTo
			}
		}
	}
	if scanned == 0 && len(items) > 0 {
		return model.TypeReveal
	}
	return current
}

// MoneyDiffs lists one signed diff per item in item order. Originations never
// contribute; zero amounts are kept only when allowZero is set. Diffs of the
// same asset are not summed.
func MoneyDiffs(items []model.HistoryItem, allowZero bool) []model.MoneyDiff {
	diffs := make([]model.MoneyDiff, 0, len(items))
	for _, item := range items {
		if _, isOrigination := item.(model.Origination); isOrigination {
			continue
		}
		base := item.Base()
		if !allowZero && model.AmountIsZero(base.Amount) {
			continue
		}
		diffs = append(diffs, model.MoneyDiff{AssetSlug: base.AssetSlug, Diff: base.Amount})
	}
	return diffs
}

// Summarize classifies every operation of group for account and builds the
// feed entry. Operations is empty when the whole group is noise.
func Summarize(group model.OperationsGroup, account string) model.UserHistoryItem {
	items := make([]model.HistoryItem, 0, len(group.Operations))
	for i, op := range group.Operations {
		if item, ok := classifier.Classify(op, i, account); ok {
			items = append(items, item)
		}
	}

	entry := model.UserHistoryItem{
		Type:        Type(items, group, account),
		Hash:        group.Hash,
		Status:      Status(items, group),
		Operations:  items,
		IsGroupedOp: len(group.Operations) > 1,
	}
	if n := len(group.Operations); n > 0 {
		entry.FirstOperation = group.Operations[0]
		entry.OldestOperation = group.Operations[n-1]
		entry.AddedAt = group.Operations[0].Timestamp
	}
	return entry
}
