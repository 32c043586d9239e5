package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"

	"github.com/roach88/strata"
	"github.com/roach88/strata/value"
)

// writeResult renders a query result as tab-separated text or JSON.
func writeResult(w io.Writer, format string, res *strata.Result) error {
	if format == "json" {
		return writeResultJSON(w, res)
	}

	fmt.Fprintln(w, strings.Join(res.Columns, "\t"))
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return nil
}

type jsonResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func writeResultJSON(w io.Writer, res *strata.Result) error {
	out := jsonResult{Columns: res.Columns, Rows: make([][]any, len(res.Rows))}
	for i, row := range res.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = value.Native(v)
		}
		out.Rows[i] = cells
	}
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func formatValue(v value.Value) string {
	switch x := v.(type) {
	case nil, value.Null:
		return "NULL"
	case value.Bool:
		if x {
			return "true"
		}
		return "false"
	case value.String:
		return string(x)
	case value.Bytes:
		return fmt.Sprintf("[%d bytes]", len(x))
	default:
		return fmt.Sprintf("%v", value.Native(v))
	}
}

// printStats writes the per-table statistics block.
func printStats(w io.Writer, db *strata.Database) {
	fmt.Fprintln(w, "\nDatabase Statistics:")
	fmt.Fprintf(w, "  Stream: %d records, %s\n",
		db.RecordCount(), humanize.IBytes(db.DataSize()))

	stats := db.Stats()
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].TableName < stats[j].TableName })
	for _, s := range stats {
		fmt.Fprintf(w, "  Table: %s", s.TableName)
		if s.FileID != "" && s.Source == "" {
			fmt.Fprintf(w, " (file_id: %s)", s.FileID)
		}
		fmt.Fprintf(w, " - %d records", s.RecordCount)
		if len(s.Indexes) > 0 {
			fmt.Fprintf(w, ", indexes: %s (%d entries)", strings.Join(s.Indexes, ", "), s.IndexEntries)
		}
		fmt.Fprintln(w)
	}
}
