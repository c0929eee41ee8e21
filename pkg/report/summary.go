// Package report aggregates a run's results into a summary and renders it
// as a console table, a CSV artifact, or a markdown document. Aggregation
// is pure; the renderers are the only I/O.
package report

import (
	"time"

	"github.com/shelfsync/shelfsync/pkg/match"
	"github.com/shelfsync/shelfsync/pkg/push"
)

// ChangedRow is one quantity the run successfully pushed.
type ChangedRow struct {
	SKU      string
	ItemID   string
	Quantity float64
}

// Summary is the aggregate outcome of one reconciliation run. It is
// produced once, at the end, and read-only thereafter.
type Summary struct {
	StartedAt  time.Time
	FinishedAt time.Time
	LocationID string

	FeedRows          int
	MatchedExact      int
	MatchedMapped     int
	MatchedNormalized int
	Ambiguous         int
	Missed            int

	WorkItems int
	Updated   int
	Errored   int

	Changed     []ChangedRow
	Misses      []match.Missed
	Ambiguities []match.Ambiguous
	RowErrors   []push.RowError
}

// Matched returns the total rows matched across all tiers.
func (s *Summary) Matched() int {
	return s.MatchedExact + s.MatchedMapped + s.MatchedNormalized
}

// Duration returns the wall-clock time of the run.
func (s *Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Aggregate tallies match outcomes into the summary counters and retains
// the miss and ambiguity details for the renderers.
func (s *Summary) Aggregate(outcomes []match.Outcome) {
	s.FeedRows = len(outcomes)
	for _, o := range outcomes {
		switch v := o.(type) {
		case match.Matched:
			switch v.Tier {
			case match.TierExact:
				s.MatchedExact++
			case match.TierMapped:
				s.MatchedMapped++
			case match.TierNormalized:
				s.MatchedNormalized++
			}
		case match.Ambiguous:
			s.Ambiguous++
			s.Ambiguities = append(s.Ambiguities, v)
		case match.Missed:
			s.Missed++
			s.Misses = append(s.Misses, v)
		}
	}
}

// RecordWrites fills the write-side counters from the merged write result
// and the row errors left after recovery.
func (s *Summary) RecordWrites(result *push.Result, remaining []push.RowError) {
	s.Updated = result.Updated
	s.Errored = result.Failed + len(remaining)
	s.RowErrors = remaining
	for _, item := range result.Changed {
		s.Changed = append(s.Changed, ChangedRow{
			SKU:      item.SKU,
			ItemID:   item.ItemID,
			Quantity: item.Quantity,
		})
	}
}
