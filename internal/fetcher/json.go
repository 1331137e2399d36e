package fetcher

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// DecodeJSONTable decodes a JSON array of string arrays whose first element is
// the header row, e.g. [["NAME","state"],["Appling County, Georgia","13"]].
// Cells that are JSON null decode as empty strings.
func DecodeJSONTable(r io.Reader) ([]string, [][]string, error) {
	var raw [][]*string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, nil, eris.Wrap(err, "json: decode table")
	}
	if len(raw) == 0 {
		return nil, nil, eris.New("json: table has no header row")
	}

	header := derefAll(raw[0])
	rows := make([][]string, 0, len(raw)-1)
	for i, row := range raw[1:] {
		if len(row) != len(header) {
			return nil, nil, eris.Errorf("json: row %d has %d cells, header has %d", i+1, len(row), len(header))
		}
		rows = append(rows, derefAll(row))
	}
	return header, rows, nil
}

func derefAll(cells []*string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if c != nil {
			out[i] = *c
		}
	}
	return out
}
