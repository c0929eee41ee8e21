package feed

import (
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/shelfsync/shelfsync/pkg/errors"
)

// Remap is the optional manual SKU-to-SKU mapping: feed SKU to catalog SKU.
// It is loaded once and read-only during matching.
type Remap map[string]string

// LoadRemap reads a YAML mapping of `feedSku: catalogSku` pairs from r.
// Entries with an empty key or value are rejected.
func LoadRemap(r io.Reader) (Remap, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WrapIO("read", "", err)
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.WrapParse("yaml", "", err)
	}

	remap := make(Remap, len(raw))
	for from, to := range raw {
		from = strings.TrimSpace(from)
		to = strings.TrimSpace(to)
		if from == "" || to == "" {
			return nil, errors.NewParseError("yaml", "", "remap entries require both a feed sku and a catalog sku", nil)
		}
		remap[from] = to
	}
	return remap, nil
}

// LoadRemapFile reads a remap table from the given path. A missing path is
// not an error: the remap is optional and an empty map is returned.
func LoadRemapFile(path string) (Remap, error) {
	if path == "" {
		return Remap{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Remap{}, nil
		}
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	remap, err := LoadRemap(f)
	if err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return remap, nil
}
