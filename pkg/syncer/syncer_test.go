package syncer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfsync/shelfsync/pkg/catalog"
	"github.com/shelfsync/shelfsync/pkg/errors"
	"github.com/shelfsync/shelfsync/pkg/feed"
	"github.com/shelfsync/shelfsync/pkg/push"
	"github.com/shelfsync/shelfsync/pkg/reconcile"
)

// fakeBackend is an in-memory catalog backend for engine tests.
type fakeBackend struct {
	records   []catalog.Record
	locations map[string]string

	writeCalls      [][]reconcile.WorkItem
	writeFailures   map[int][]push.RowFailure
	activateCalls   []string
	activateFailure error
}

func newFakeBackend(records ...catalog.Record) *fakeBackend {
	return &fakeBackend{
		records:       records,
		locations:     map[string]string{"Main Warehouse": "LOC1"},
		writeFailures: make(map[int][]push.RowFailure),
	}
}

func (f *fakeBackend) ListInventoryPage(_ context.Context, _ string) (*catalog.Page, error) {
	return &catalog.Page{Records: f.records}, nil
}

func (f *fakeBackend) SetQuantities(_ context.Context, _ string, items []reconcile.WorkItem) ([]push.RowFailure, error) {
	call := len(f.writeCalls)
	f.writeCalls = append(f.writeCalls, items)
	return f.writeFailures[call], nil
}

func (f *fakeBackend) ActivateItem(_ context.Context, itemID, _ string) error {
	f.activateCalls = append(f.activateCalls, itemID)
	return f.activateFailure
}

func (f *fakeBackend) ResolveLocation(_ context.Context, name string) (string, error) {
	if id, ok := f.locations[name]; ok {
		return id, nil
	}
	return "", errors.NewNotFoundError("location", name)
}

func testConfig() Config {
	return Config{
		LocationName: "Main Warehouse",
		FullSweep:    true,
		ChunkDelay:   -1,
		PageDelay:    -1,
	}
}

func TestRunEndToEnd(t *testing.T) {
	backend := newFakeBackend(
		catalog.Record{SKU: "SKU1", ItemID: "ITEM1"},
		catalog.Record{SKU: "SKU2", ItemID: "ITEM2"},
	)
	engine := New(backend, testConfig())

	rows := []feed.Row{
		{SKU: "SKU1", Quantity: 10},
		{SKU: "sku1", Quantity: 7},
		{SKU: "SKU3", Quantity: 5},
	}

	summary, err := engine.Run(context.Background(), rows, nil)
	require.NoError(t, err)

	assert.Equal(t, "LOC1", summary.LocationID)
	assert.Equal(t, 1, summary.MatchedExact)
	assert.Equal(t, 1, summary.MatchedNormalized)
	assert.Equal(t, 1, summary.Missed)
	assert.Equal(t, 1, summary.WorkItems, "SKU1 and sku1 dedupe to one work item")

	require.Len(t, backend.writeCalls, 1)
	require.Len(t, backend.writeCalls[0], 1)
	assert.Equal(t, "ITEM1", backend.writeCalls[0][0].ItemID)
	assert.Equal(t, float64(7), backend.writeCalls[0][0].Quantity, "last write wins")

	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 0, summary.Errored)
	require.Len(t, summary.Changed, 1)
	assert.Equal(t, float64(7), summary.Changed[0].Quantity)
}

func TestRunMissingLocationIsFatal(t *testing.T) {
	backend := newFakeBackend()
	cfg := testConfig()
	cfg.LocationName = "Nowhere"
	engine := New(backend, cfg)

	_, err := engine.Run(context.Background(), []feed.Row{{SKU: "A", Quantity: 1}}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
	assert.Empty(t, backend.writeCalls, "no mutation before configuration failure")
}

func TestRunNoLocationConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.LocationName = ""
	engine := New(newFakeBackend(), cfg)

	_, err := engine.Run(context.Background(), nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestRunDryRunSkipsWrites(t *testing.T) {
	backend := newFakeBackend(catalog.Record{SKU: "SKU1", ItemID: "ITEM1"})
	cfg := testConfig()
	cfg.DryRun = true
	engine := New(backend, cfg)

	summary, err := engine.Run(context.Background(), []feed.Row{{SKU: "SKU1", Quantity: 10}}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.WorkItems)
	assert.Equal(t, 0, summary.Updated)
	assert.Empty(t, backend.writeCalls)
}

func TestRunRecoversNotStockedRows(t *testing.T) {
	backend := newFakeBackend(
		catalog.Record{SKU: "SKU1", ItemID: "ITEM1"},
		catalog.Record{SKU: "SKU2", ItemID: "ITEM2"},
	)
	// First write call rejects row 1; the retry succeeds.
	backend.writeFailures[0] = []push.RowFailure{
		{Index: 1, Message: "The inventory item is not stocked at the location"},
	}
	engine := New(backend, testConfig())

	rows := []feed.Row{
		{SKU: "SKU1", Quantity: 10},
		{SKU: "SKU2", Quantity: 4},
	}

	summary, err := engine.Run(context.Background(), rows, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"ITEM2"}, backend.activateCalls)
	require.Len(t, backend.writeCalls, 2, "initial pass plus one scoped retry")
	require.Len(t, backend.writeCalls[1], 1)
	assert.Equal(t, "ITEM2", backend.writeCalls[1][0].ItemID)
	assert.Equal(t, 2, summary.Updated)
	assert.Equal(t, 0, summary.Errored)
}

func TestRunRecoveryRunsAtMostOnce(t *testing.T) {
	backend := newFakeBackend(catalog.Record{SKU: "SKU1", ItemID: "ITEM1"})
	msg := "The inventory item is not stocked at the location"
	backend.writeFailures[0] = []push.RowFailure{{Index: 0, Message: msg}}
	backend.writeFailures[1] = []push.RowFailure{{Index: 0, Message: msg}}
	engine := New(backend, testConfig())

	summary, err := engine.Run(context.Background(), []feed.Row{{SKU: "SKU1", Quantity: 2}}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"ITEM1"}, backend.activateCalls, "one activation round only")
	assert.Len(t, backend.writeCalls, 2, "no second recovery retry")
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 1, summary.Errored)
}

func TestRunCapTruncatesPositionally(t *testing.T) {
	backend := newFakeBackend(
		catalog.Record{SKU: "A", ItemID: "1"},
		catalog.Record{SKU: "B", ItemID: "2"},
		catalog.Record{SKU: "C", ItemID: "3"},
	)
	cfg := testConfig()
	cfg.FullSweep = false
	cfg.MaxUpdates = 2
	engine := New(backend, cfg)

	rows := []feed.Row{
		{SKU: "A", Quantity: 1},
		{SKU: "B", Quantity: 2},
		{SKU: "C", Quantity: 3},
	}

	summary, err := engine.Run(context.Background(), rows, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.WorkItems)
	require.Len(t, backend.writeCalls, 1)
	require.Len(t, backend.writeCalls[0], 2)
	assert.Equal(t, "1", backend.writeCalls[0][0].ItemID)
	assert.Equal(t, "2", backend.writeCalls[0][1].ItemID)
}

func TestRunRemapExample(t *testing.T) {
	backend := newFakeBackend(catalog.Record{SKU: "NEW", ItemID: "ITEM_NEW"})
	engine := New(backend, testConfig())

	summary, err := engine.Run(context.Background(),
		[]feed.Row{{SKU: "OLD", Quantity: 3}},
		feed.Remap{"OLD": "NEW"})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.MatchedMapped)
	require.Len(t, backend.writeCalls, 1)
	assert.Equal(t, "ITEM_NEW", backend.writeCalls[0][0].ItemID)
	assert.Equal(t, float64(3), backend.writeCalls[0][0].Quantity)
}
