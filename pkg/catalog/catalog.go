// Package catalog builds an in-memory index of the remote catalog's
// stock-keeping records, keyed by SKU in both verbatim and normalized form.
// The index is built once per run by paging the catalog listing source to
// exhaustion and is never mutated afterwards.
package catalog

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/shelfsync/shelfsync/pkg/logging"
)

// DefaultPageDelay is the cooperative pause between page fetches. It exists
// to respect the listing source's rate limits, not for correctness.
const DefaultPageDelay = 250 * time.Millisecond

// Record is one stock-keeping unit known to the catalog.
type Record struct {
	SKU    string
	ItemID string
}

// Page is one page of catalog records from the listing source. The cursor
// must be passed back verbatim to fetch the next page.
type Page struct {
	Records []Record
	HasNext bool
	Cursor  string
}

// Lister is the paged catalog listing source.
type Lister interface {
	// ListInventoryPage fetches one page of stock records. An empty cursor
	// requests the first page.
	ListInventoryPage(ctx context.Context, cursor string) (*Page, error)
}

// Index holds the two derived SKU lookup maps.
type Index struct {
	exactBySKU map[string]string

	// normalized key -> item ids, in catalog listing order. All items
	// sharing a key accumulate; the first does not suppress later ones.
	byNormalized map[string][]string

	size int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		exactBySKU:   make(map[string]string),
		byNormalized: make(map[string][]string),
	}
}

// Add inserts a record into both lookup maps. Exact lookups are
// last-seen-wins; normalized lookups append.
func (x *Index) Add(r Record) {
	x.exactBySKU[r.SKU] = r.ItemID
	key := Normalize(r.SKU)
	x.byNormalized[key] = append(x.byNormalized[key], r.ItemID)
	x.size++
}

// Exact returns the item id for a verbatim SKU.
func (x *Index) Exact(sku string) (string, bool) {
	id, ok := x.exactBySKU[sku]
	return id, ok
}

// Normalized returns all item ids whose SKU normalizes to the same key as
// the given SKU, in catalog listing order.
func (x *Index) Normalized(sku string) []string {
	return x.byNormalized[Normalize(sku)]
}

// Len returns the number of records indexed.
func (x *Index) Len() int {
	return x.size
}

// Builder pages a Lister to exhaustion and produces an Index.
type Builder struct {
	lister    Lister
	pageDelay time.Duration
}

// NewBuilder creates a Builder for the given listing source.
func NewBuilder(lister Lister, opts ...BuilderOption) *Builder {
	b := &Builder{
		lister:    lister,
		pageDelay: DefaultPageDelay,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithPageDelay overrides the inter-page delay.
func WithPageDelay(d time.Duration) BuilderOption {
	return func(b *Builder) {
		b.pageDelay = d
	}
}

// Build fetches all catalog pages and indexes every record that carries a
// non-empty SKU and a well-formed item identifier. Records missing either
// are skipped silently. An empty catalog yields an empty index, not an
// error.
func (b *Builder) Build(ctx context.Context) (*Index, error) {
	log := logging.Ctx(ctx)
	index := NewIndex()

	cursor := ""
	pages := 0
	skipped := 0

	for {
		page, err := b.lister.ListInventoryPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		pages++

		for _, rec := range page.Records {
			if rec.SKU == "" || rec.ItemID == "" {
				skipped++
				continue
			}
			index.Add(rec)
		}

		if !page.HasNext {
			break
		}
		cursor = page.Cursor

		if b.pageDelay > 0 {
			select {
			case <-time.After(b.pageDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	log.Debug().
		Int("pages", pages).
		Int("records", index.Len()).
		Int("skipped", skipped).
		Msg("Catalog index built")

	return index, nil
}

// Normalize canonicalizes a SKU for fuzzy matching: uppercase, with all
// non-alphanumeric characters removed. It is idempotent.
func Normalize(sku string) string {
	var sb strings.Builder
	sb.Grow(len(sku))
	for _, r := range sku {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToUpper(r))
		}
	}
	return sb.String()
}
