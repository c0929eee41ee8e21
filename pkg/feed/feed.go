// Package feed reads the third-party inventory feed and the optional manual
// SKU remapping table. Malformed feed rows are dropped here so the matching
// core only ever sees well-formed input.
package feed

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/shelfsync/shelfsync/pkg/errors"
	"github.com/shelfsync/shelfsync/pkg/logging"
)

// Row is one feed entry: a SKU and the quantity the feed claims for it.
// Rows are immutable once produced and keep their original file order.
type Row struct {
	SKU      string
	Quantity float64
}

// Parse reads a line-oriented CSV feed of `sku,quantity` pairs from r.
// A first line whose quantity column is not numeric is treated as a header.
// Rows with an empty SKU or a non-numeric, negative, or non-finite quantity
// are dropped with a debug log.
func Parse(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows []Row
	line := 0

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapParse("csv", "", err)
		}
		line++

		if len(record) < 2 {
			logging.Debug().Int("line", line).Msg("Feed row dropped: too few columns")
			continue
		}

		sku := strings.TrimSpace(record[0])
		qtyStr := strings.TrimSpace(record[1])

		qty, err := strconv.ParseFloat(qtyStr, 64)
		if err != nil {
			if line == 1 {
				// Header row.
				continue
			}
			logging.Debug().Int("line", line).Str("quantity", qtyStr).Msg("Feed row dropped: non-numeric quantity")
			continue
		}

		if sku == "" {
			logging.Debug().Int("line", line).Msg("Feed row dropped: empty sku")
			continue
		}
		if qty < 0 || math.IsInf(qty, 0) || math.IsNaN(qty) {
			logging.Debug().Int("line", line).Float64("quantity", qty).Msg("Feed row dropped: quantity out of range")
			continue
		}

		rows = append(rows, Row{SKU: sku, Quantity: qty})
	}

	return rows, nil
}

// ParseFile reads a feed from the given path.
func ParseFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	rows, err := Parse(f)
	if err != nil {
		return nil, errors.WrapParse("csv", path, err)
	}
	return rows, nil
}
