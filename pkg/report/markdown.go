package report

import (
	"io"
	"strconv"
	"time"

	md "github.com/nao1215/markdown"
)

// WriteMarkdown renders the run summary as a markdown document.
func WriteMarkdown(w io.Writer, s *Summary) error {
	doc := md.NewMarkdown(w).
		H1("Inventory reconciliation run").
		PlainTextf("Finished %s in %s.",
			s.FinishedAt.Format(time.RFC3339), s.Duration().Round(time.Millisecond)).
		LF().
		H2("Matching").
		Table(md.TableSet{
			Header: []string{"Bucket", "Rows"},
			Rows: [][]string{
				{"Feed rows", strconv.Itoa(s.FeedRows)},
				{"Matched (exact)", strconv.Itoa(s.MatchedExact)},
				{"Matched (mapped)", strconv.Itoa(s.MatchedMapped)},
				{"Matched (normalized)", strconv.Itoa(s.MatchedNormalized)},
				{"Ambiguous", strconv.Itoa(s.Ambiguous)},
				{"Missed", strconv.Itoa(s.Missed)},
			},
		}).
		H2("Writes").
		Table(md.TableSet{
			Header: []string{"Counter", "Rows"},
			Rows: [][]string{
				{"Work items", strconv.Itoa(s.WorkItems)},
				{"Updated", strconv.Itoa(s.Updated)},
				{"Errored", strconv.Itoa(s.Errored)},
			},
		})

	if len(s.Changed) > 0 {
		rows := make([][]string, 0, len(s.Changed))
		for _, c := range s.Changed {
			rows = append(rows, []string{
				c.SKU,
				c.ItemID,
				strconv.FormatFloat(c.Quantity, 'f', -1, 64),
			})
		}
		doc = doc.H2("Changed rows").Table(md.TableSet{
			Header: []string{"SKU", "Item", "Quantity"},
			Rows:   rows,
		})
	}

	if len(s.RowErrors) > 0 {
		rows := make([][]string, 0, len(s.RowErrors))
		for _, re := range s.RowErrors {
			rows = append(rows, []string{re.Item.SKU, re.Item.ItemID, re.Message})
		}
		doc = doc.H2("Unrecovered row errors").Table(md.TableSet{
			Header: []string{"SKU", "Item", "Error"},
			Rows:   rows,
		})
	}

	return doc.Build()
}
