// Package table holds the input/output row model: CSV reading and writing,
// the unique-URL work list, and the output column layout.
package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Required and recognized input columns.
const (
	ColBaseName = "BaseName"
	ColURL      = "URL"
	ColCSS      = "CSSSelector"
	ColXPath    = "XPathSelector"
)

// Result columns appended to the output table.
const (
	ColScreenshotFile = "ScreenshotFile"
	ColLogoFile       = "LogoFile"
	ColScrapedData    = "ScrapedData"
	ColStatus         = "Status"
	ColErrorMessage   = "ErrorMessage"
)

// ResultColumns in output order.
var ResultColumns = []string{ColScreenshotFile, ColLogoFile, ColScrapedData, ColStatus, ColErrorMessage}

// Row is one input record. Lookups go through Get so missing cells read as "".
type Row map[string]string

func (r Row) Get(col string) string { return strings.TrimSpace(r[col]) }

// Table preserves the column order of the source file; Rows never contain
// keys outside Header.
type Table struct {
	Header []string
	Rows   []Row
}

// WorkItem is one unique URL plus the first input row that introduced it.
// The first row supplies the file-naming base and any selector overrides.
type WorkItem struct {
	URL string
	Row Row
}

// ReadCSV loads an input table. The file must have a header row containing
// BaseName and URL.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse input file: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	if !contains(header, ColBaseName) || !contains(header, ColURL) {
		return nil, fmt.Errorf("input file must have %s and %s columns", ColBaseName, ColURL)
	}

	t := &Table{Header: header}
	for _, rec := range records[1:] {
		row := Row{}
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteCSV writes the table with its header order preserved. Missing cells
// are written as empty strings, never omitted.
func (t *Table) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		rec := make([]string, len(t.Header))
		for i, col := range t.Header {
			rec[i] = row[col]
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}

// Dedupe collapses the rows into the unique-URL work list. A row seeds a work
// item iff no earlier row shares its URL; rows with a blank URL never join
// the list but stay in the table for aggregation.
func Dedupe(t *Table) []WorkItem {
	seen := make(map[string]struct{})
	var items []WorkItem
	for _, row := range t.Rows {
		url := row.Get(ColURL)
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		items = append(items, WorkItem{URL: url, Row: row})
	}
	return items
}

// OutputHeader is the input header plus the result columns, skipping any
// result column the input already carried.
func OutputHeader(input []string) []string {
	out := make([]string, 0, len(input)+len(ResultColumns))
	out = append(out, input...)
	for _, col := range ResultColumns {
		if !contains(out, col) {
			out = append(out, col)
		}
	}
	return out
}

func contains(cols []string, col string) bool {
	for _, c := range cols {
		if c == col {
			return true
		}
	}
	return false
}
