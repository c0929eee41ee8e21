package push

import (
	"context"
	"strings"

	"github.com/shelfsync/shelfsync/pkg/errors"
	"github.com/shelfsync/shelfsync/pkg/logging"
	"github.com/shelfsync/shelfsync/pkg/reconcile"
)

// notStockedSignatures are the substrings, compared case-insensitively,
// that identify the "item not stocked at this location" row-error class.
// The backend phrases this either as a per-row rejection ("... is not
// stocked at the location") or as a requirement ("... must be stocked at
// the location").
var notStockedSignatures = []string{
	"not stocked at",
	"must be stocked at",
}

// IsNotStockedError reports whether a row-error message matches the
// "not stocked at this location" signature. This is the single
// classification point for the recovery pass.
func IsNotStockedError(message string) bool {
	lower := strings.ToLower(message)
	for _, sig := range notStockedSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// Activator is the backend's out-of-band "provision this item at this
// location" call. An already-active conflict must surface as
// errors.ErrAlreadyExists.
type Activator interface {
	ActivateItem(ctx context.Context, itemID, locationID string) error
}

// Recoverer runs the activation-recovery pass: activate every distinct item
// behind a not-stocked row error, then re-run the writer scoped to exactly
// the activated items. The caller runs it at most once per overall run.
type Recoverer struct {
	writer     *Writer
	activator  Activator
	locationID string
}

// NewRecoverer creates a Recoverer sharing the writer's chunking policy.
func NewRecoverer(writer *Writer, activator Activator, locationID string) *Recoverer {
	return &Recoverer{
		writer:     writer,
		activator:  activator,
		locationID: locationID,
	}
}

// Recover inspects rowErrs for the not-stocked signature, activates each
// distinct affected item once, and retries the write for the items whose
// activation succeeded. It returns the retry result plus the row errors it
// could not recover: non-matching errors, errors for items whose activation
// failed, and any errors reported by the retry itself.
func (r *Recoverer) Recover(ctx context.Context, rowErrs []RowError) (*Result, []RowError) {
	log := logging.Ctx(ctx)

	var remaining []RowError
	var order []string
	itemsByID := make(map[string]reconcile.WorkItem)

	for _, re := range rowErrs {
		if !IsNotStockedError(re.Message) {
			remaining = append(remaining, re)
			continue
		}
		if _, seen := itemsByID[re.Item.ItemID]; !seen {
			order = append(order, re.Item.ItemID)
			itemsByID[re.Item.ItemID] = re.Item
		}
	}

	if len(order) == 0 {
		return &Result{}, remaining
	}

	log.Info().
		Int("items", len(order)).
		Msg("Activating items at location before retry")

	var retry []reconcile.WorkItem
	for _, itemID := range order {
		item := itemsByID[itemID]
		err := r.activator.ActivateItem(ctx, itemID, r.locationID)
		if err != nil && !errors.IsAlreadyExists(err) {
			log.Error().
				Err(err).
				Str("item_id", itemID).
				Str("sku", item.SKU).
				Msg("Activation failed, leaving item out of retry")
			remaining = append(remaining, RowError{Item: item, Message: "activation failed: " + err.Error()})
			continue
		}
		retry = append(retry, item)
	}

	if len(retry) == 0 {
		return &Result{}, remaining
	}

	result := r.writer.Write(ctx, retry)

	// A not-stocked error surfacing again on retry stays unrecovered; there
	// is no second pass.
	remaining = append(remaining, result.RowErrors...)
	result.RowErrors = nil

	return result, remaining
}
