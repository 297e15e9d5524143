package generator

import (
	"github.com/wcatz/hgcdb-dashboards/internal/model"
	"github.com/wcatz/hgcdb-dashboards/internal/schema"
	"github.com/wcatz/hgcdb-dashboards/internal/sqlbuilder"
)

// moduleShowDefault is how many modules an IV curve panel plots until the
// viewer changes it.
const moduleShowDefault = "15"

// BuildVariables creates the templating list of a dashboard: one
// multi-select query variable per filter column, first use wins. Time
// columns are filtered through the dashboard time range instead.
func (pf *PanelFactory) BuildVariables(spec model.DashboardSpec) []interface{} {
	vars := []interface{}{}
	seen := make(map[string]bool)
	ivCurve := false
	for _, p := range spec.Panels {
		if p.ChartType == model.ChartXY {
			ivCurve = true
		}
		for _, tf := range p.Filters {
			for _, col := range tf.Columns {
				if schema.IsTimeColumn(col) || seen[col] {
					continue
				}
				seen[col] = true
				vars = append(vars, pf.QueryVariable(col, tf.Table))
			}
		}
	}
	if ivCurve && !seen[sqlbuilder.ModuleShowVariable] {
		vars = append(vars, ModuleShowVariable())
	}
	return vars
}

// QueryVariable creates a multi-select variable listing the values of
// column in table, defaulting to All.
func (pf *PanelFactory) QueryVariable(column, table string) map[string]interface{} {
	query := sqlbuilder.VariableQuery(column, table)
	return map[string]interface{}{
		"current": map[string]interface{}{
			"text":  []interface{}{"All"},
			"value": []interface{}{"$__all"},
		},
		"datasource": pf.ds(),
		"definition": query,
		"includeAll": true,
		"multi":      true,
		"name":       column,
		"options":    []interface{}{},
		"query":      query,
		"refresh":    1,
		"type":       "query",
	}
}

// ModuleShowVariable creates the textbox bounding the IV curve panels.
func ModuleShowVariable() map[string]interface{} {
	return map[string]interface{}{
		"current": map[string]interface{}{
			"text":  moduleShowDefault,
			"value": moduleShowDefault,
		},
		"hide":    0,
		"label":   "Number of Modules to Show",
		"name":    sqlbuilder.ModuleShowVariable,
		"options": []interface{}{},
		"query":   moduleShowDefault,
		"refresh": 0,
		"type":    "textbox",
	}
}
