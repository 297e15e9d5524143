package schema

import (
	"fmt"
	"io"
	"strings"

	"github.com/wcatz/hgcdb-dashboards/internal/model"
)

// Discovery inspects a catalog and proposes panel configs for its tables.
type Discovery struct {
	Catalog Catalog
}

// NewDiscovery creates a new discovery instance.
func NewDiscovery(cat Catalog) *Discovery {
	return &Discovery{Catalog: cat}
}

// FilterTables filters table names by include/exclude glob patterns,
// preserving input order.
func FilterTables(tables []string, include, exclude []string) []string {
	if len(include) == 0 {
		include = []string{"*"}
	}
	var filtered []string
	for _, t := range tables {
		included := false
		for _, p := range include {
			if globMatch(p, t) {
				included = true
				break
			}
		}
		excluded := false
		for _, p := range exclude {
			if globMatch(p, t) {
				excluded = true
				break
			}
		}
		if included && !excluded {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// globMatch implements simple glob matching (*, ?).
func globMatch(pattern, s string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			for i := 0; i <= len(s); i++ {
				if globMatch(pattern[1:], s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(s) == 0 {
				return false
			}
			pattern = pattern[1:]
			s = s[1:]
		default:
			if len(s) == 0 || pattern[0] != s[0] {
				return false
			}
			pattern = pattern[1:]
			s = s[1:]
		}
	}
	return len(s) == 0
}

// SuggestChartType returns a chart type for a column, or "" when the column
// is not worth a panel of its own. Only known time columns get timeseries
// panels; other timestamps, arrays and key columns are skipped.
func SuggestChartType(col Column) model.ChartType {
	if IsTimeColumn(col.Name) {
		return model.ChartTimeseries
	}
	if strings.HasSuffix(col.Name, "_no") || strings.HasSuffix(col.Name, "_name") {
		return ""
	}
	dt := strings.ToLower(col.DataType)
	switch {
	case dt == "array" || strings.HasSuffix(dt, "[]"):
		return ""
	case strings.Contains(dt, "timestamp") || dt == "date":
		return ""
	case dt == "integer", dt == "bigint", dt == "smallint", dt == "numeric",
		dt == "real", dt == "double precision":
		return model.ChartHistogram
	default:
		return model.ChartBar
	}
}

// SuggestPanel builds a panel config for one column of table.
func SuggestPanel(table string, col Column) (model.PanelSpec, bool) {
	chart := SuggestChartType(col)
	if chart == "" {
		return model.PanelSpec{}, false
	}
	p := model.PanelSpec{
		Title:     strings.ReplaceAll(col.Name, "_", " "),
		Table:     table,
		ChartType: chart,
		Filters:   model.Filters{{Table: table, Columns: []string{col.Name}}},
	}
	if chart == model.ChartTimeseries {
		p.GroupBy.Columns = []model.ColumnRef{model.Col(col.Name), model.Col(CountSentinel)}
	} else {
		p.GroupBy.Columns = []model.ColumnRef{model.Col(col.Name)}
	}
	return p, true
}

// Suggest proposes one dashboard per matching table.
func (d *Discovery) Suggest(include, exclude []string) ([]model.DashboardSpec, error) {
	var dashboards []model.DashboardSpec
	for _, table := range FilterTables(d.Catalog.Tables(), include, exclude) {
		cols, err := d.Catalog.Columns(table)
		if err != nil {
			return nil, err
		}
		dash := model.DashboardSpec{Title: table, Columns: 3}
		for _, col := range cols {
			if p, ok := SuggestPanel(table, col); ok {
				dash.Panels = append(dash.Panels, p)
			}
		}
		if len(dash.Panels) > 0 {
			dashboards = append(dashboards, dash)
		}
	}
	return dashboards, nil
}

// PrintDiscovery lists matching tables and prints a suggested YAML config.
func (d *Discovery) PrintDiscovery(w io.Writer, include, exclude []string) error {
	dashboards, err := d.Suggest(include, exclude)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\n=== Tables: %d with suggested panels ===\n\n", len(dashboards))
	for _, dash := range dashboards {
		fmt.Fprintf(w, "# %s (%d panels)\n", dash.Title, len(dash.Panels))
		for _, p := range dash.Panels {
			fmt.Fprintf(w, "  %-40s -> %s\n", p.GroupBy.Columns[0].Name(), p.ChartType)
		}
	}

	fmt.Fprint(w, "\n# --- suggested YAML config snippet ---\n\n")
	fmt.Fprintln(w, "dashboards:")
	for _, dash := range dashboards {
		fmt.Fprintf(w, "  - title: \"%s\"\n", dash.Title)
		fmt.Fprintf(w, "    columns: %d\n", dash.Columns)
		fmt.Fprintln(w, "    panels:")
		for _, p := range dash.Panels {
			groupby := make([]string, len(p.GroupBy.Columns))
			for i, c := range p.GroupBy.Columns {
				groupby[i] = c.Name()
			}
			fmt.Fprintf(w, "      - title: \"%s\"\n", p.Title)
			fmt.Fprintf(w, "        table: %s\n", p.Table)
			fmt.Fprintf(w, "        chart_type: %s\n", p.ChartType)
			fmt.Fprintf(w, "        groupby: [%s]\n", strings.Join(groupby, ", "))
			fmt.Fprintln(w, "        filters:")
			for _, f := range p.Filters {
				fmt.Fprintf(w, "          %s: [%s]\n", f.Table, strings.Join(f.Columns, ", "))
			}
		}
	}
	return nil
}
