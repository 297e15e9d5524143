package sqlbuilder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wcatz/hgcdb-dashboards/internal/model"
	"github.com/wcatz/hgcdb-dashboards/internal/schema"
)

var (
	// ErrUnsupportedChart is returned for chart types with no SQL generator.
	ErrUnsupportedChart = errors.New("unsupported chart type")
	// ErrGroupByShape is returned when a panel's groupby does not fit its chart.
	ErrGroupByShape = errors.New("invalid groupby")
)

const (
	timeSuffix = "time"
	listPrefix = "list"
	textCast   = "::text"
)

// Builder turns panel specs into Postgres queries for Grafana.
type Builder struct {
	// TimeZone is the display zone time columns are converted to.
	TimeZone string
	// Catalog supplies the revision column of deduplicated tables.
	Catalog schema.Catalog
}

// New creates a builder.
func New(timeZone string, cat schema.Catalog) *Builder {
	return &Builder{TimeZone: timeZone, Catalog: cat}
}

// FilterArgument returns the WHERE predicate binding column of table to the
// dashboard template variable of the same name.
func (b *Builder) FilterArgument(column, table string) string {
	switch {
	case column == schema.ShippingStatus:
		return statusPredicate(column, table+".shipped_datetime", "shipped", "not shipped")
	case column == schema.WirebondStatus:
		return statusPredicate(column, table+".wb_front", "front bonded", "not front bonded")
	case schema.IsTimeColumn(column):
		return fmt.Sprintf("$__timeFilter(%s.%s AT TIME ZONE '%s')", table, column, b.TimeZone)
	default:
		param := variableRef(column)
		return fmt.Sprintf("('All' = ANY(ARRAY[%[1]s]) OR (%[2]s.%[3]s IS NULL AND 'NULL' = ANY(ARRAY[%[1]s])) OR %[2]s.%[3]s::text = ANY(ARRAY[%[1]s]))",
			param, table, column)
	}
}

// statusPredicate matches a derived set/unset label computed from a
// nullable timestamp.
func statusPredicate(variable, stamp, setLabel, unsetLabel string) string {
	param := variableRef(variable)
	return fmt.Sprintf("('All' = ANY(ARRAY[%[1]s]) OR (%[2]s IS NULL AND '%[4]s' = ANY(ARRAY[%[1]s])) OR (%[2]s IS NOT NULL AND '%[3]s' = ANY(ARRAY[%[1]s])))",
		param, stamp, setLabel, unsetLabel)
}

func variableRef(name string) string {
	return "${" + name + "}"
}

// query carries one panel through clause assembly.
type query struct {
	b     *Builder
	panel model.PanelSpec
}

// ref returns the name a table is addressed by: its temp_table alias when
// deduplicated, itself otherwise.
func (q *query) ref(table string) string {
	if i := q.panel.Distinct.Index(table); i >= 0 {
		return fmt.Sprintf("temp_table_%d", i)
	}
	return table
}

func (q *query) target() string {
	return q.ref(q.panel.Table)
}

// preClause emits the WITH block selecting the latest row per key of each
// deduplicated table.
func (q *query) preClause() (string, error) {
	if len(q.panel.Distinct) == 0 {
		return "", nil
	}
	if q.b.Catalog == nil {
		return "", errors.New("distinct tables need a schema catalog")
	}
	parts := make([]string, 0, len(q.panel.Distinct))
	for i, table := range q.panel.Distinct {
		id, err := schema.DistinctColumn(q.b.Catalog, table)
		if err != nil {
			return "", fmt.Errorf("distinct %s: %w", table, err)
		}
		key := schema.SortKey(table)
		parts = append(parts, fmt.Sprintf("temp_table_%d AS (\n    SELECT DISTINCT ON (%s) *\n    FROM %s\n    ORDER BY %s, %s DESC\n)",
			i, key, table, key, id))
	}
	return "WITH " + strings.Join(parts, ", ") + "\n", nil
}

// whereClause ANDs one predicate per filter column, then the free-form
// condition. Empty when there is nothing to filter.
func (q *query) whereClause() string {
	var preds []string
	for _, tf := range q.panel.Filters {
		ref := q.ref(tf.Table)
		for _, col := range tf.Columns {
			preds = append(preds, q.b.FilterArgument(col, ref))
		}
	}
	if cond := strings.TrimSpace(q.panel.Condition); cond != "" {
		preds = append(preds, cond)
	}
	if len(preds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(preds, "\n  AND ")
}

// joinClause left-joins every filter or groupby table other than the main
// one, keyed on the main table's prefix.
func (q *query) joinClause() string {
	main := q.target()
	prefix := schema.TablePrefix(q.panel.Table)

	tables := q.panel.Filters.Tables()
	for _, tc := range q.panel.GroupBy.Tables {
		tables = append(tables, tc.Table)
	}

	seen := make(map[string]bool)
	var joins []string
	for _, table := range tables {
		ref := q.ref(table)
		if table == q.panel.Table || ref == main || seen[ref] {
			continue
		}
		seen[ref] = true
		key := prefix + "_" + schema.JoinPostfix(table)
		joins = append(joins, fmt.Sprintf("LEFT JOIN %s ON %s.%s = %s.%s", ref, main, key, ref, key))
	}
	return strings.Join(joins, "\n")
}

type selectPair struct {
	table string
	ref   model.ColumnRef
}

// selectPairs resolves groupby entries to the table they are read from.
func (q *query) selectPairs() []selectPair {
	var pairs []selectPair
	if q.panel.GroupBy.IsByTable() {
		for _, tc := range q.panel.GroupBy.Tables {
			for _, c := range tc.Columns {
				pairs = append(pairs, selectPair{table: q.ref(tc.Table), ref: c})
			}
		}
		return pairs
	}
	for _, c := range q.panel.GroupBy.Columns {
		pairs = append(pairs, selectPair{table: q.target(), ref: c})
	}
	return pairs
}

// selectArgument renders one groupby entry. Columns ending in "time" are not
// selectable labels and yield "".
func selectArgument(table string, ref model.ColumnRef, cast string, alias bool) string {
	if !ref.IsCoalesce() {
		col := ref.Name()
		switch {
		case strings.HasSuffix(col, timeSuffix):
			return ""
		case strings.HasPrefix(col, listPrefix):
			return arrayLength(table, col) + cast
		default:
			return table + "." + col + cast
		}
	}
	parts := make([]string, len(ref.Names))
	for i, col := range ref.Names {
		if strings.HasPrefix(col, listPrefix) {
			parts[i] = arrayLength(table, col) + cast
		} else {
			parts[i] = table + "." + col + cast
		}
	}
	arg := "COALESCE(" + strings.Join(parts, ", ") + ")"
	if alias {
		arg += " AS " + ref.Name()
	}
	return arg
}

func arrayLength(table, col string) string {
	return fmt.Sprintf("COALESCE(array_length(%s.%s::int[], 1), 0)", table, col)
}

// statement assembles the full query around a select list.
func (q *query) statement(selectList []string, tail ...string) (string, error) {
	pre, err := q.preClause()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(pre)
	sb.WriteString("SELECT\n    ")
	sb.WriteString(strings.Join(selectList, ",\n    "))
	sb.WriteString("\nFROM ")
	sb.WriteString(q.target())
	for _, clause := range append([]string{q.joinClause(), q.whereClause()}, tail...) {
		if clause == "" {
			continue
		}
		sb.WriteString("\n")
		sb.WriteString(clause)
	}
	return sb.String(), nil
}
