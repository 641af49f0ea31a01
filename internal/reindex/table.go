// internal/reindex/table.go
package reindex

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

// LanguageTable maps a language name to its classification.
type LanguageTable map[string]string

// LoadLanguageTable reads a CSV file with a name,type header.
func LoadLanguageTable(path string) (LanguageTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open language table: %w", err)
	}
	defer f.Close()
	return ReadLanguageTable(f)
}

// ReadLanguageTable parses name,type CSV rows. Column order follows the header.
func ReadLanguageTable(r io.Reader) (LanguageTable, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read language table header: %w", err)
	}
	nameCol, typeCol := -1, -1
	for i, col := range header {
		switch col {
		case "name":
			nameCol = i
		case "type":
			typeCol = i
		}
	}
	if nameCol < 0 || typeCol < 0 {
		return nil, fmt.Errorf("language table header %v: need name and type columns", header)
	}

	table := LanguageTable{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return table, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read language table: %w", err)
		}
		if row[nameCol] == "" {
			continue
		}
		table[row[nameCol]] = row[typeCol]
	}
}

// WriteLanguageTable writes names as name,type CSV, all with classification.
func WriteLanguageTable(w io.Writer, names []string, classification string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "type"}); err != nil {
		return err
	}
	for _, name := range names {
		if err := cw.Write([]string{name, classification}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Classify returns the classification of name, or def when unknown.
func (t LanguageTable) Classify(name, def string) string {
	if c, ok := t[name]; ok && c != "" {
		return c
	}
	return def
}

// Names returns the table's language names in order.
func (t LanguageTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
