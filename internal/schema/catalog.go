package schema

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownTable is returned when a catalog has no description of a table.
var ErrUnknownTable = errors.New("unknown table")

// Column is one column of a described table.
type Column struct {
	Name     string
	DataType string
}

// Catalog describes the tables and columns available to panels.
type Catalog interface {
	Tables() []string
	Columns(table string) ([]Column, error)
}

// MapCatalog is an in-memory Catalog. Column order is the table's
// declaration order.
type MapCatalog struct {
	order  []string
	tables map[string][]Column
}

// NewMapCatalog returns an empty catalog.
func NewMapCatalog() *MapCatalog {
	return &MapCatalog{tables: make(map[string][]Column)}
}

// StaticCatalog builds a catalog from table -> column names.
func StaticCatalog(tables map[string][]string) *MapCatalog {
	c := NewMapCatalog()
	names := make([]string, 0, len(tables))
	for t := range tables {
		names = append(names, t)
	}
	sort.Strings(names)
	for _, t := range names {
		for _, col := range tables[t] {
			c.Add(t, Column{Name: col})
		}
	}
	return c
}

// Add appends columns to table, registering the table on first use.
func (c *MapCatalog) Add(table string, cols ...Column) {
	if _, ok := c.tables[table]; !ok {
		c.order = append(c.order, table)
		c.tables[table] = nil
	}
	c.tables[table] = append(c.tables[table], cols...)
}

// Tables returns table names in registration order.
func (c *MapCatalog) Tables() []string {
	return append([]string(nil), c.order...)
}

// Columns returns the columns of table.
func (c *MapCatalog) Columns(table string) ([]Column, error) {
	cols, ok := c.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return cols, nil
}

// ColumnNames returns just the names of table's columns.
func ColumnNames(cat Catalog, table string) ([]string, error) {
	cols, err := cat.Columns(table)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}
	return names, nil
}

// HasColumn reports whether table declares col.
func HasColumn(cat Catalog, table, col string) (bool, error) {
	cols, err := cat.Columns(table)
	if err != nil {
		return false, err
	}
	for _, c := range cols {
		if c.Name == col {
			return true, nil
		}
	}
	return false, nil
}

// DistinctColumn returns the column ordering revisions of a table: the
// first declared column.
func DistinctColumn(cat Catalog, table string) (string, error) {
	cols, err := cat.Columns(table)
	if err != nil {
		return "", err
	}
	if len(cols) == 0 {
		return "", fmt.Errorf("table %s has no columns", table)
	}
	return cols[0].Name, nil
}
