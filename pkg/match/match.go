// Package match resolves feed SKUs to catalog item ids using a three-tier
// strategy: verbatim lookup, manual remap, then normalized fuzzy lookup.
// Every feed row classifies into exactly one outcome.
package match

import (
	"github.com/shelfsync/shelfsync/pkg/catalog"
	"github.com/shelfsync/shelfsync/pkg/feed"
)

// Tier identifies which matching tier resolved a feed row.
type Tier string

// Matching tiers, attempted in order. First success wins.
const (
	TierExact      Tier = "exact"
	TierMapped     Tier = "mapped"
	TierNormalized Tier = "normalized"
)

// Mode controls whether the normalized tier runs at all.
type Mode string

// Matching modes.
const (
	// ModeExact disables the normalized tier entirely.
	ModeExact Mode = "exact"
	// ModeNormalize enables all three tiers.
	ModeNormalize Mode = "normalize"
)

// MissReasonNotInCatalog is the reason recorded when no tier resolves a row.
const MissReasonNotInCatalog = "not_in_catalog"

// Outcome is the classification of one feed row. It is a closed variant:
// every outcome is exactly one of Matched, Ambiguous, or Missed.
type Outcome interface {
	outcome()
}

// Matched is a feed row resolved to exactly one catalog item.
type Matched struct {
	// SKU is the SKU carried forward through the pipeline: the remap target
	// when the manual map supplied one, otherwise the feed SKU.
	SKU      string
	ItemID   string
	Quantity float64
	Tier     Tier
}

// Ambiguous is a feed row whose normalized key resolves to more than one
// catalog item. It contributes no work item and is not also counted missed.
type Ambiguous struct {
	NormalizedKey  string
	CandidateCount int
	SampleSKU      string
}

// Missed is a feed row no tier could resolve. MappedTo carries the manual
// remap target when one existed, for diagnostics.
type Missed struct {
	FeedSKU  string
	MappedTo string
	Reason   string
}

func (Matched) outcome()   {}
func (Ambiguous) outcome() {}
func (Missed) outcome()    {}

// Match classifies every feed row against the catalog index. It is pure and
// deterministic given identical inputs. Rows are processed in feed order and
// each yields exactly one outcome.
func Match(rows []feed.Row, idx *catalog.Index, remap feed.Remap, mode Mode) []Outcome {
	outcomes := make([]Outcome, 0, len(rows))
	for _, row := range rows {
		outcomes = append(outcomes, matchRow(row, idx, remap, mode))
	}
	return outcomes
}

// matchRow runs the tier ladder for a single feed row.
func matchRow(row feed.Row, idx *catalog.Index, remap feed.Remap, mode Mode) Outcome {
	// Tier 1: verbatim lookup of the feed SKU.
	if itemID, ok := idx.Exact(row.SKU); ok {
		return Matched{SKU: row.SKU, ItemID: itemID, Quantity: row.Quantity, Tier: TierExact}
	}

	// Tier 2: manual remap, then verbatim lookup of the remapped SKU. Once a
	// remap target exists it replaces the feed SKU for the remaining tiers.
	target := row.SKU
	mappedTo := ""
	if mapped, ok := remap[row.SKU]; ok {
		target = mapped
		mappedTo = mapped
		if itemID, ok := idx.Exact(mapped); ok {
			return Matched{SKU: mapped, ItemID: itemID, Quantity: row.Quantity, Tier: TierMapped}
		}
	}

	// Tier 3: normalized lookup, unique candidate only.
	if mode == ModeNormalize {
		candidates := idx.Normalized(target)
		switch len(candidates) {
		case 0:
			// Fall through to missed.
		case 1:
			return Matched{SKU: target, ItemID: candidates[0], Quantity: row.Quantity, Tier: TierNormalized}
		default:
			return Ambiguous{
				NormalizedKey:  catalog.Normalize(target),
				CandidateCount: len(candidates),
				SampleSKU:      row.SKU,
			}
		}
	}

	return Missed{FeedSKU: row.SKU, MappedTo: mappedTo, Reason: MissReasonNotInCatalog}
}
