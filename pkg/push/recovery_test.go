package push

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfsync/shelfsync/pkg/errors"
	"github.com/shelfsync/shelfsync/pkg/reconcile"
)

const notStockedMsg = "The inventory item is not stocked at the location"

// fakeActivator records activation calls and replies with scripted errors.
type fakeActivator struct {
	calls []string
	errs  map[string]error
}

func newFakeActivator() *fakeActivator {
	return &fakeActivator{errs: make(map[string]error)}
}

func (f *fakeActivator) ActivateItem(_ context.Context, itemID, _ string) error {
	f.calls = append(f.calls, itemID)
	return f.errs[itemID]
}

func TestIsNotStockedError(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{notStockedMsg, true},
		{"quantity item must be stocked at the location", true},
		{"NOT STOCKED AT this location", true},
		{"quantity must be non-negative", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsNotStockedError(tt.message), "message %q", tt.message)
	}
}

func TestRecoverActivatesOncePerDistinctItem(t *testing.T) {
	backend := newFakeBackend()
	activator := newFakeActivator()
	writer := newTestWriter(backend, 10)
	recoverer := NewRecoverer(writer, activator, "LOC1")

	itemA := reconcile.WorkItem{SKU: "A", ItemID: "ITEM_A", Quantity: 1}
	itemB := reconcile.WorkItem{SKU: "B", ItemID: "ITEM_B", Quantity: 2}
	rowErrs := []RowError{
		{Item: itemA, Message: notStockedMsg},
		{Item: itemA, Message: notStockedMsg}, // same item flagged twice
		{Item: itemB, Message: notStockedMsg},
	}

	result, remaining := recoverer.Recover(context.Background(), rowErrs)

	assert.Equal(t, []string{"ITEM_A", "ITEM_B"}, activator.calls,
		"one activation per distinct item id")
	require.Len(t, backend.calls, 1, "exactly one retry write call")
	assert.Len(t, backend.calls[0], 2)
	assert.Equal(t, 2, result.Updated)
	assert.Empty(t, remaining)
}

func TestRecoverRetryScopedToActivatedItems(t *testing.T) {
	backend := newFakeBackend()
	activator := newFakeActivator()
	activator.errs["ITEM_B"] = errors.NewTransportError("activate", 500, "boom", nil)
	writer := newTestWriter(backend, 10)
	recoverer := NewRecoverer(writer, activator, "LOC1")

	rowErrs := []RowError{
		{Item: reconcile.WorkItem{SKU: "A", ItemID: "ITEM_A", Quantity: 1}, Message: notStockedMsg},
		{Item: reconcile.WorkItem{SKU: "B", ItemID: "ITEM_B", Quantity: 2}, Message: notStockedMsg},
	}

	result, remaining := recoverer.Recover(context.Background(), rowErrs)

	require.Len(t, backend.calls, 1)
	require.Len(t, backend.calls[0], 1)
	assert.Equal(t, "ITEM_A", backend.calls[0][0].ItemID)
	assert.Equal(t, 1, result.Updated)
	require.Len(t, remaining, 1)
	assert.Equal(t, "ITEM_B", remaining[0].Item.ItemID)
}

func TestRecoverAlreadyActiveIsSuccess(t *testing.T) {
	backend := newFakeBackend()
	activator := newFakeActivator()
	activator.errs["ITEM_A"] = errors.ErrAlreadyExists
	writer := newTestWriter(backend, 10)
	recoverer := NewRecoverer(writer, activator, "LOC1")

	rowErrs := []RowError{
		{Item: reconcile.WorkItem{SKU: "A", ItemID: "ITEM_A", Quantity: 1}, Message: notStockedMsg},
	}

	result, remaining := recoverer.Recover(context.Background(), rowErrs)

	require.Len(t, backend.calls, 1, "already-active items still retry")
	assert.Equal(t, 1, result.Updated)
	assert.Empty(t, remaining)
}

func TestRecoverLeavesUnrelatedErrorsAlone(t *testing.T) {
	backend := newFakeBackend()
	activator := newFakeActivator()
	writer := newTestWriter(backend, 10)
	recoverer := NewRecoverer(writer, activator, "LOC1")

	rowErrs := []RowError{
		{Item: reconcile.WorkItem{SKU: "A", ItemID: "ITEM_A"}, Message: "quantity must be non-negative"},
	}

	result, remaining := recoverer.Recover(context.Background(), rowErrs)

	assert.Empty(t, activator.calls)
	assert.Empty(t, backend.calls)
	assert.Equal(t, 0, result.Updated)
	require.Len(t, remaining, 1)
	assert.Equal(t, "ITEM_A", remaining[0].Item.ItemID)
}

func TestRecoverSameErrorOnRetryStaysUnrecovered(t *testing.T) {
	backend := newFakeBackend()
	// The retry write reports the same not-stocked error again.
	backend.failures[0] = []RowFailure{{Index: 0, Message: notStockedMsg}}
	activator := newFakeActivator()
	writer := newTestWriter(backend, 10)
	recoverer := NewRecoverer(writer, activator, "LOC1")

	rowErrs := []RowError{
		{Item: reconcile.WorkItem{SKU: "A", ItemID: "ITEM_A", Quantity: 1}, Message: notStockedMsg},
	}

	result, remaining := recoverer.Recover(context.Background(), rowErrs)

	assert.Equal(t, []string{"ITEM_A"}, activator.calls, "no second activation round")
	require.Len(t, backend.calls, 1, "no second retry write")
	assert.Equal(t, 0, result.Updated)
	require.Len(t, remaining, 1)
	assert.True(t, IsNotStockedError(remaining[0].Message))
}
