// internal/analyzer/parse.go
package analyzer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github-repo-harvester/internal/model"
)

// Aggregate rows of cloc output that are not languages.
var excludedRows = map[string]bool{"header": true, "SUM": true}

type clocRow struct {
	Files   int64 `json:"nFiles"`
	Blank   int64 `json:"blank"`
	Comment int64 `json:"comment"`
	Code    int64 `json:"code"`
}

// ParseJSON reads `cloc --json` output.
func ParseJSON(out []byte) (map[string]model.LanguageStats, error) {
	var rows map[string]json.RawMessage
	if err := json.Unmarshal(out, &rows); err != nil {
		return nil, fmt.Errorf("decode cloc json: %w", err)
	}
	stats := make(map[string]model.LanguageStats, len(rows))
	for name, raw := range rows {
		if excludedRows[name] {
			continue
		}
		var row clocRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("decode cloc row %q: %w", name, err)
		}
		add(stats, name, row)
	}
	return stats, nil
}

// ParseCSV reads `cloc --csv` output: files,language,blank,comment,code.
func ParseCSV(out []byte) (map[string]model.LanguageStats, error) {
	r := csv.NewReader(bytes.NewReader(out))
	r.FieldsPerRecord = -1
	stats := map[string]model.LanguageStats{}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode cloc csv: %w", err)
		}
		if len(rec) < 5 {
			return nil, fmt.Errorf("decode cloc csv: short row %q", strings.Join(rec, ","))
		}
		if rec[0] == "files" {
			continue
		}
		name := rec[1]
		if excludedRows[name] {
			continue
		}
		var nums [4]int64
		for i, field := range []string{rec[0], rec[2], rec[3], rec[4]} {
			n, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("decode cloc csv row %q: %w", name, err)
			}
			nums[i] = n
		}
		add(stats, name, clocRow{Files: nums[0], Blank: nums[1], Comment: nums[2], Code: nums[3]})
	}
}

func add(stats map[string]model.LanguageStats, name string, row clocRow) {
	s := model.LanguageStats{Files: row.Files, Blank: row.Blank, Comment: row.Comment, Code: row.Code}
	if name == "" || s.Validate() != nil {
		return
	}
	stats[name] = s
}

// ParseLanguageList reads `cloc --show-lang` output, one "Name (ext, ...)"
// entry per line.
func ParseLanguageList(out []byte) []string {
	var names []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		i := strings.IndexByte(line, '(')
		if i < 0 {
			continue
		}
		if name := strings.TrimSpace(line[:i]); name != "" {
			names = append(names, name)
		}
	}
	return names
}
