package schema

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadCSVCatalog reads every <table>.csv in dir. Each row describes one
// column: its name first, optionally followed by its data type. A leading
// "column_name" header row is skipped.
func LoadCSVCatalog(dir string) (*MapCatalog, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("schema dir: %w", err)
		}
	}
	sort.Strings(paths)

	cat := NewMapCatalog()
	for _, p := range paths {
		table := strings.TrimSuffix(filepath.Base(p), ".csv")
		cols, err := readCSVColumns(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		cat.Add(table, cols...)
	}
	return cat, nil
}

func readCSVColumns(path string) ([]Column, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var cols []Column
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		name := strings.TrimSpace(row[0])
		if first && strings.EqualFold(name, "column_name") {
			first = false
			continue
		}
		first = false
		col := Column{Name: name}
		if len(row) > 1 {
			col.DataType = strings.TrimSpace(row[1])
		}
		cols = append(cols, col)
	}
	return cols, nil
}
