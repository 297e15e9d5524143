package validate

import (
	"fmt"
	"strings"

	"github.com/wcatz/hgcdb-dashboards/internal/schema"
)

const (
	untitledDashboard = "<Untitled>"
	unnamedPanel      = "<Unnamed Panel>"
)

// columnFree lists chart types whose panels name no table columns.
var columnFree = map[string]bool{"text": true, "piechart": true}

// needsGroupBy lists chart types that select at least one column.
var needsGroupBy = map[string]bool{
	"barchart":   true,
	"histogram":  true,
	"timeseries": true,
	"table":      true,
	"gauge":      true,
}

// Dashboards checks the dashboards list of a config document. A nil cat
// skips the table and column checks.
func Dashboards(file string, doc map[string]interface{}, cat schema.Catalog) *Report {
	r := &Report{File: file}
	dashboards := mapsOf(doc["dashboards"])
	if len(dashboards) == 0 {
		r.add(Problem{Msg: "no dashboards defined"})
		return r
	}

	var cols *columnChecker
	if cat != nil {
		cols = newColumnChecker(cat)
	}

	seenDash := make(map[string]bool)
	for _, dash := range dashboards {
		dashTitle := str(dash, "title", untitledDashboard)
		if seenDash[dashTitle] {
			r.add(Problem{Dashboard: dashTitle, Msg: "duplicate dashboard title"})
		}
		seenDash[dashTitle] = true

		panels := mapsOf(dash["panels"])
		if len(panels) == 0 {
			r.add(Problem{Dashboard: dashTitle, Msg: "dashboard has no panels"})
			continue
		}

		seenPanel := make(map[string]bool)
		for _, panel := range panels {
			panelTitle := str(panel, "title", unnamedPanel)
			if seenPanel[panelTitle] {
				r.add(Problem{Dashboard: dashTitle, Panel: panelTitle, Msg: "duplicate panel title"})
			}
			seenPanel[panelTitle] = true

			for _, msg := range checkPanel(panel, cols) {
				r.add(Problem{Dashboard: dashTitle, Panel: panelTitle, Msg: msg})
			}
		}
	}
	return r
}

func checkPanel(panel map[string]interface{}, cols *columnChecker) []string {
	var msgs []string
	if err := checkType(panel, "chart_type", kindString); err != nil {
		return []string{err.Error()}
	}
	chart := strings.ToLower(strings.TrimSpace(panel["chart_type"].(string)))
	if columnFree[chart] {
		return nil
	}

	required := []string{"title", "table"}
	if chart == "xychart" {
		required = []string{"title"}
	}
	for _, key := range required {
		if err := checkType(panel, key, kindString); err != nil {
			msgs = append(msgs, err.Error())
		} else if strings.TrimSpace(panel[key].(string)) == "" {
			msgs = append(msgs, fmt.Sprintf("field %q is empty", key))
		}
	}

	optional := []struct {
		key     string
		allowed []kind
	}{
		{"condition", []kind{kindString, kindNull}},
		{"groupby", []kind{kindList, kindMap, kindNull}},
		{"filters", []kind{kindMap, kindNull}},
		{"distinct", []kind{kindBool, kindString, kindList, kindNull}},
	}
	for _, o := range optional {
		if _, ok := panel[o.key]; !ok {
			continue
		}
		if err := checkType(panel, o.key, o.allowed...); err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if needsGroupBy[chart] && isEmpty(panel["groupby"]) {
		msgs = append(msgs, `field "groupby" is empty or missing`)
	}

	if len(msgs) > 0 || cols == nil {
		return msgs
	}
	return append(msgs, checkColumns(panel, chart, cols)...)
}

func isEmpty(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case []interface{}:
		return len(x) == 0
	case map[string]interface{}:
		return len(x) == 0
	case string:
		return strings.TrimSpace(x) == ""
	}
	return false
}

func checkColumns(panel map[string]interface{}, chart string, cols *columnChecker) []string {
	var msgs []string
	check := func(kindName, table string, names []string) {
		valid, err := cols.columns(table)
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("%s: %v", kindName, err))
			return
		}
		for _, c := range names {
			if !valid[c] && !schema.IsDerivedColumn(c) {
				msgs = append(msgs, fmt.Sprintf("%s column %q not in %q", kindName, c, table))
			}
		}
	}

	table, _ := panel["table"].(string)
	switch g := panel["groupby"].(type) {
	case []interface{}:
		check("groupby", table, columnNames(g))
	case map[string]interface{}:
		for _, sub := range sortedKeys(g) {
			check("groupby", sub, columnNames(g[sub]))
		}
	default:
		if table != "" && chart != "xychart" {
			check("table", table, nil)
		}
	}

	if filters, ok := panel["filters"].(map[string]interface{}); ok {
		for _, ft := range sortedKeys(filters) {
			l, ok := filters[ft].([]interface{})
			if !ok {
				msgs = append(msgs, fmt.Sprintf("filters for %q must be a list", ft))
				continue
			}
			check("filter", ft, columnNames(l))
		}
	}
	return msgs
}

// columnNames flattens a column list whose entries may be nested lists of
// coalesced columns.
func columnNames(v interface{}) []string {
	switch x := v.(type) {
	case string:
		return []string{x}
	case []interface{}:
		var out []string
		for _, item := range x {
			out = append(out, columnNames(item)...)
		}
		return out
	}
	return nil
}
