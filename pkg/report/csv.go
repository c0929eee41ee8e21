package report

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/shelfsync/shelfsync/pkg/errors"
)

// WriteChangedCSV writes the changed-rows artifact: one line per quantity
// the run pushed, plus a header.
func WriteChangedCSV(w io.Writer, s *Summary) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"sku", "item_id", "quantity"}); err != nil {
		return errors.WrapIO("write", "changed rows", err)
	}
	for _, row := range s.Changed {
		record := []string{
			row.SKU,
			row.ItemID,
			strconv.FormatFloat(row.Quantity, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return errors.WrapIO("write", "changed rows", err)
		}
	}

	cw.Flush()
	return errors.WrapIO("flush", "changed rows", cw.Error())
}

// WriteMissesCSV writes the unmatched-rows artifact: feed SKUs no tier
// could resolve, with the remap target when one existed, and ambiguous
// SKUs with their candidate counts.
func WriteMissesCSV(w io.Writer, s *Summary) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"feed_sku", "mapped_to", "reason", "candidates"}); err != nil {
		return errors.WrapIO("write", "misses", err)
	}
	for _, m := range s.Misses {
		if err := cw.Write([]string{m.FeedSKU, m.MappedTo, m.Reason, ""}); err != nil {
			return errors.WrapIO("write", "misses", err)
		}
	}
	for _, a := range s.Ambiguities {
		record := []string{a.SampleSKU, "", "ambiguous", strconv.Itoa(a.CandidateCount)}
		if err := cw.Write(record); err != nil {
			return errors.WrapIO("write", "misses", err)
		}
	}

	cw.Flush()
	return errors.WrapIO("flush", "misses", cw.Error())
}

// SaveCSV writes both CSV artifacts next to each other under dir-less
// paths derived from base: <base>-changed.csv and <base>-misses.csv.
func SaveCSV(base string, s *Summary) error {
	if err := saveCSVFile(base+"-changed.csv", s, WriteChangedCSV); err != nil {
		return err
	}
	return saveCSVFile(base+"-misses.csv", s, WriteMissesCSV)
}

func saveCSVFile(path string, s *Summary, write func(io.Writer, *Summary) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	if err := write(f, s); err != nil {
		f.Close() //nolint:errcheck // write error takes precedence
		return err
	}
	return errors.WrapIO("close", path, f.Close())
}
