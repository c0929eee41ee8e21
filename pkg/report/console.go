package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
)

// PrintConsole renders the run summary as a table on w, followed by a
// one-line verdict.
func PrintConsole(w io.Writer, s *Summary) error {
	table := tablewriter.NewTable(w)
	table.Header("bucket", "rows")

	rows := [][]string{
		{"feed rows", strconv.Itoa(s.FeedRows)},
		{"matched exact", strconv.Itoa(s.MatchedExact)},
		{"matched mapped", strconv.Itoa(s.MatchedMapped)},
		{"matched normalized", strconv.Itoa(s.MatchedNormalized)},
		{"ambiguous", strconv.Itoa(s.Ambiguous)},
		{"missed", strconv.Itoa(s.Missed)},
		{"work items", strconv.Itoa(s.WorkItems)},
		{"updated", strconv.Itoa(s.Updated)},
		{"errored", strconv.Itoa(s.Errored)},
	}
	for _, row := range rows {
		if err := table.Append(row[0], row[1]); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	verdict := "clean"
	if s.Errored > 0 {
		verdict = fmt.Sprintf("%d rows unwritten", s.Errored)
	}
	_, err := fmt.Fprintf(w, "Run finished in %s: %d updated, %s.\n",
		s.Duration().Round(time.Millisecond), s.Updated, verdict)
	return err
}

// IsTerminal reports whether stdout is attached to a terminal, for callers
// deciding between the console table and a machine-readable rendering.
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
