package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"esimcatalog/lib/devices"
	"esimcatalog/lib/textutil"
)

var ErrNoColumn = errors.New("column not found")

// Table is a CSV file held in memory, every row has exactly len(Columns)
// cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

func (t Table) Empty() bool {
	return len(t.Columns) == 0 && len(t.Rows) == 0
}

func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of every cell in the named column.
func (t Table) Column(name string) ([]string, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// KnownNames is the set of normalized model names in the table. a table
// without a model name column knows no devices.
func (t Table) KnownNames() map[string]struct{} {
	known := map[string]struct{}{}
	names, err := t.Column(devices.ModelNameKey)
	if err != nil {
		return known
	}
	for _, n := range names {
		known[textutil.NormalizeName(n)] = struct{}{}
	}
	return known
}

// Read parses CSV from r, the first record is the header. ragged rows are
// padded with "" or cut to the header's width.
func Read(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		// excel likes to prefix a BOM
		header[0] = trimBOM(header[0])
	}

	table := Table{Columns: header}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("read row %d: %w", len(table.Rows)+1, err)
		}
		table.Rows = append(table.Rows, fitRow(row, len(header)))
	}
	return table, nil
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}

func fitRow(row []string, width int) []string {
	if len(row) == width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

func Load(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()
	return Read(f)
}

// LoadOrEmpty is Load, except that a missing or unreadable file becomes an
// empty table (which makes every catalog device look new).
func LoadOrEmpty(path string) Table {
	table, err := Load(path)
	if err != nil {
		slog.Warn("failed to read existing dataset, starting from an empty table", "path", path, "err", err)
		return Table{}
	}
	return table
}

// Merge returns a new table: every row of t unchanged and in order, then one
// row per record. the columns are t's columns exactly as they are (blank
// and repeated names keep their position) followed by the names of
// columns (then of the records' own keys) that t doesn't have yet, in
// discovery order. cells nobody filled are "". t itself is not modified.
func (t Table) Merge(records []devices.Record, columns *devices.ColumnSet) Table {
	discovered := &devices.ColumnSet{}
	if columns != nil {
		discovered.Add(columns.Names()...)
	}
	for _, r := range records {
		discovered.Add(r.Keys()...)
	}
	merged := Table{Columns: discovered.Union(t.Columns)}

	width := len(merged.Columns)
	merged.Rows = make([][]string, 0, len(t.Rows)+len(records))
	for _, row := range t.Rows {
		widened := make([]string, width)
		copy(widened, row)
		merged.Rows = append(merged.Rows, widened)
	}
	for _, r := range records {
		merged.Rows = append(merged.Rows, r.Row(merged.Columns))
	}
	return merged
}

func (t Table) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	err := writer.Write(t.Columns)
	if err != nil {
		return err
	}
	err = writer.WriteAll(t.Rows)
	if err != nil {
		return err
	}
	return writer.Error()
}

func (t Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = t.Write(f)
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// OutputName is "<DDMMYY>_<suffix>.csv" for the given day.
func OutputName(now time.Time, suffix string) string {
	return now.Format("020106") + "_" + suffix + ".csv"
}

// OutputPath places OutputName beside the input file.
func OutputPath(inputPath string, now time.Time, suffix string) string {
	return filepath.Join(filepath.Dir(inputPath), OutputName(now, suffix))
}
