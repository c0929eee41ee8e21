// Package reconcile turns matched feed rows into the deduplicated work list
// handed to the bulk writer. The write API rejects duplicate targets within
// one request, so at most one work item survives per catalog item id.
package reconcile

import (
	"github.com/shelfsync/shelfsync/pkg/match"
)

// WorkItem is one deduplicated quantity update: the unit actually sent to
// the bulk write API.
type WorkItem struct {
	SKU      string
	ItemID   string
	Quantity float64
}

// Dedupe collapses matched outcomes that resolve to the same item id,
// keeping the last-seen quantity per item (rows iterate in feed order).
// Output preserves first-seen insertion order so runs are reproducible.
func Dedupe(matched []match.Matched) []WorkItem {
	byItem := make(map[string]int, len(matched))
	items := make([]WorkItem, 0, len(matched))

	for _, m := range matched {
		if i, seen := byItem[m.ItemID]; seen {
			items[i].SKU = m.SKU
			items[i].Quantity = m.Quantity
			continue
		}
		byItem[m.ItemID] = len(items)
		items = append(items, WorkItem{SKU: m.SKU, ItemID: m.ItemID, Quantity: m.Quantity})
	}

	return items
}

// Cap truncates the work list positionally to at most max items, keeping
// the first max items in dedup order and dropping the rest. It is applied
// only when a full sweep is disabled; max <= 0 means no cap.
func Cap(items []WorkItem, max int) []WorkItem {
	if max <= 0 || len(items) <= max {
		return items
	}
	return items[:max]
}

// MatchedOnly filters the matched outcomes out of a full outcome sequence,
// preserving order. Ambiguous and missed rows never produce work items.
func MatchedOnly(outcomes []match.Outcome) []match.Matched {
	matched := make([]match.Matched, 0, len(outcomes))
	for _, o := range outcomes {
		if m, ok := o.(match.Matched); ok {
			matched = append(matched, m)
		}
	}
	return matched
}
