package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfsync/shelfsync/pkg/errors"
)

// fakeLister serves a fixed sequence of pages and records the cursors it is
// handed.
type fakeLister struct {
	pages   []*Page
	cursors []string
	calls   int
	err     error
}

func (f *fakeLister) ListInventoryPage(_ context.Context, cursor string) (*Page, error) {
	f.cursors = append(f.cursors, cursor)
	if f.err != nil {
		return nil, f.err
	}
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

func TestBuildPagesToExhaustion(t *testing.T) {
	lister := &fakeLister{
		pages: []*Page{
			{
				Records: []Record{{SKU: "SKU1", ItemID: "1001"}, {SKU: "SKU2", ItemID: "1002"}},
				HasNext: true,
				Cursor:  "cursor-a",
			},
			{
				Records: []Record{{SKU: "SKU3", ItemID: "1003"}},
				HasNext: false,
			},
		},
	}

	index, err := NewBuilder(lister, WithPageDelay(0)).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, index.Len())
	assert.Equal(t, []string{"", "cursor-a"}, lister.cursors, "cursor must be passed back verbatim")

	id, ok := index.Exact("SKU2")
	require.True(t, ok)
	assert.Equal(t, "1002", id)
}

func TestBuildSkipsIncompleteRecords(t *testing.T) {
	lister := &fakeLister{
		pages: []*Page{
			{
				Records: []Record{
					{SKU: "", ItemID: "1001"},
					{SKU: "SKU2", ItemID: ""},
					{SKU: "SKU3", ItemID: "1003"},
				},
			},
		},
	}

	index, err := NewBuilder(lister, WithPageDelay(0)).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, index.Len())
}

func TestBuildEmptyCatalog(t *testing.T) {
	lister := &fakeLister{pages: []*Page{{}}}

	index, err := NewBuilder(lister, WithPageDelay(0)).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, index.Len())
	assert.Empty(t, index.Normalized("anything"))
}

func TestBuildPropagatesTransportError(t *testing.T) {
	lister := &fakeLister{err: errors.NewTransportError("list inventory", 503, "bad gateway", nil)}

	_, err := NewBuilder(lister, WithPageDelay(0)).Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsTransport(err))
}

func TestNormalizedAccumulatesSameKey(t *testing.T) {
	index := NewIndex()
	index.Add(Record{SKU: "ab-12", ItemID: "1"})
	index.Add(Record{SKU: "AB12", ItemID: "2"})
	index.Add(Record{SKU: "Ab_12", ItemID: "3"})

	assert.Equal(t, []string{"1", "2", "3"}, index.Normalized("ab12"),
		"all same-key items accumulate in listing order")
}

func TestExactLastSeenWins(t *testing.T) {
	index := NewIndex()
	index.Add(Record{SKU: "SKU1", ItemID: "old"})
	index.Add(Record{SKU: "SKU1", ItemID: "new"})

	id, ok := index.Exact("SKU1")
	require.True(t, ok)
	assert.Equal(t, "new", id)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ab-12", "AB12"},
		{"AB12", "AB12"},
		{"Ab_12", "AB12"},
		{"  a b ", "AB"},
		{"", ""},
		{"---", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, s := range []string{"ab-12", "AB12", "Ab_12", "x.y.z", ""} {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once))
	}
}
