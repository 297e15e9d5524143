package generator

import (
	"fmt"

	"github.com/wcatz/hgcdb-dashboards/internal/model"
	"github.com/wcatz/hgcdb-dashboards/internal/sqlbuilder"
)

const (
	pluginVersion  = "12.0.0"
	datasourceType = "grafana-postgresql-datasource"
)

// PanelFactory creates Grafana panel JSON objects backed by the HGCDB
// Postgres datasource.
type PanelFactory struct {
	DatasourceUID string
	SQL           *sqlbuilder.Builder
	IDs           PanelIDs
}

// NewPanelFactory creates a new panel factory.
func NewPanelFactory(datasourceUID string, sql *sqlbuilder.Builder) *PanelFactory {
	return &PanelFactory{DatasourceUID: datasourceUID, SQL: sql}
}

// GridPos is a panel's place on the dashboard grid.
type GridPos struct {
	X, Y, W, H int
}

func (g GridPos) json() map[string]interface{} {
	return map[string]interface{}{"h": g.H, "w": g.W, "x": g.X, "y": g.Y}
}

func (pf *PanelFactory) ds() map[string]interface{} {
	return map[string]interface{}{"type": datasourceType, "uid": pf.DatasourceUID}
}

func (pf *PanelFactory) targets(rawSQL string) []interface{} {
	return []interface{}{
		map[string]interface{}{
			"datasource": pf.ds(),
			"editorMode": "code",
			"format":     "table",
			"rawQuery":   true,
			"rawSql":     rawSQL,
			"refId":      "A",
		},
	}
}

// SQLFor returns the query backing p. Text panels have none.
func (pf *PanelFactory) SQLFor(p model.PanelSpec) (string, error) {
	return pf.SQL.PanelSQL(p)
}

// FromSpec builds the panel JSON for p at pos.
func (pf *PanelFactory) FromSpec(p model.PanelSpec, pos GridPos) (map[string]interface{}, error) {
	rawSQL, err := pf.SQLFor(p)
	if err != nil {
		return nil, err
	}
	return pf.Panel(p, rawSQL, pos)
}

// Panel builds the panel JSON for p around an already built query.
func (pf *PanelFactory) Panel(p model.PanelSpec, rawSQL string, pos GridPos) (map[string]interface{}, error) {
	switch p.ChartType {
	case model.ChartBar:
		return pf.BarChart(p, rawSQL, pos), nil
	case model.ChartHistogram:
		return pf.Histogram(p, rawSQL, pos), nil
	case model.ChartTimeseries:
		return pf.Timeseries(p, rawSQL, pos), nil
	case model.ChartTable:
		return pf.Table(p, rawSQL, pos), nil
	case model.ChartGauge:
		return pf.Gauge(p, rawSQL, pos), nil
	case model.ChartStat:
		return pf.Stat(p, rawSQL, pos), nil
	case model.ChartPie:
		return pf.Piechart(p, rawSQL, pos), nil
	case model.ChartXY:
		return pf.IVCurve(p, rawSQL, pos), nil
	case model.ChartText:
		return pf.Text(p, pos), nil
	default:
		return nil, fmt.Errorf("%w: %q", sqlbuilder.ErrUnsupportedChart, p.ChartType)
	}
}

// base holds the keys shared by every query-backed panel.
func (pf *PanelFactory) base(p model.PanelSpec, chart string, rawSQL string, pos GridPos) map[string]interface{} {
	return map[string]interface{}{
		"datasource":    pf.ds(),
		"description":   p.Description,
		"gridPos":       pos.json(),
		"id":            pf.IDs.Next(),
		"pluginVersion": pluginVersion,
		"targets":       pf.targets(rawSQL),
		"title":         p.Title,
		"type":          chart,
	}
}

func unitOr(p model.PanelSpec, def string) string {
	if p.Unit != "" {
		return p.Unit
	}
	return def
}

func baseThresholds() map[string]interface{} {
	return map[string]interface{}{
		"mode": "absolute",
		"steps": []interface{}{
			map[string]interface{}{"color": "green", "value": nil},
		},
	}
}

func legend(placement string) map[string]interface{} {
	return map[string]interface{}{
		"calcs":       []interface{}{},
		"displayMode": "list",
		"placement":   placement,
		"showLegend":  true,
	}
}

func tooltip() map[string]interface{} {
	return map[string]interface{}{"hideZeros": false, "mode": "single", "sort": "none"}
}

func reduceOptions() map[string]interface{} {
	return map[string]interface{}{
		"calcs":  []interface{}{"lastNotNull"},
		"fields": "",
		"values": true,
	}
}

// BarChart creates a bar chart of label/count rows.
func (pf *PanelFactory) BarChart(p model.PanelSpec, rawSQL string, pos GridPos) map[string]interface{} {
	panel := pf.base(p, "barchart", rawSQL, pos)
	panel["fieldConfig"] = map[string]interface{}{
		"defaults": map[string]interface{}{
			"color": map[string]interface{}{"mode": "palette-classic"},
			"custom": map[string]interface{}{
				"axisBorderShow":    false,
				"axisCenteredZero":  false,
				"axisColorMode":     "text",
				"axisPlacement":     "auto",
				"fillOpacity":       80,
				"gradientMode":      "none",
				"hideFrom":          map[string]interface{}{"legend": false, "tooltip": false, "viz": false},
				"lineWidth":         1,
				"scaleDistribution": map[string]interface{}{"type": "linear"},
				"thresholdsStyle":   map[string]interface{}{"mode": "off"},
			},
			"mappings":   []interface{}{},
			"thresholds": baseThresholds(),
			"unit":       unitOr(p, "short"),
		},
		"overrides": []interface{}{},
	}
	panel["options"] = map[string]interface{}{
		"barRadius":          0,
		"barWidth":           0.97,
		"fullHighlight":      false,
		"groupWidth":         0.7,
		"legend":             legend("bottom"),
		"orientation":        "auto",
		"showValue":          "auto",
		"stacking":           "none",
		"tooltip":            tooltip(),
		"xTickLabelRotation": 0,
		"xTickLabelSpacing":  0,
	}
	return panel
}

// Histogram creates a histogram panel over one numeric column.
func (pf *PanelFactory) Histogram(p model.PanelSpec, rawSQL string, pos GridPos) map[string]interface{} {
	panel := pf.base(p, "histogram", rawSQL, pos)
	panel["fieldConfig"] = map[string]interface{}{
		"defaults": map[string]interface{}{
			"color": map[string]interface{}{"mode": "palette-classic"},
			"custom": map[string]interface{}{
				"fillOpacity":  80,
				"gradientMode": "none",
				"hideFrom":     map[string]interface{}{"legend": false, "tooltip": false, "viz": false},
				"lineWidth":    1,
			},
			"mappings":   []interface{}{},
			"thresholds": baseThresholds(),
			"unit":       unitOr(p, "short"),
		},
		"overrides": []interface{}{},
	}
	panel["options"] = map[string]interface{}{
		"combine": false,
		"legend":  legend("bottom"),
		"tooltip": tooltip(),
	}
	return panel
}

// Timeseries creates a timeseries panel.
func (pf *PanelFactory) Timeseries(p model.PanelSpec, rawSQL string, pos GridPos) map[string]interface{} {
	panel := pf.base(p, "timeseries", rawSQL, pos)
	panel["fieldConfig"] = map[string]interface{}{
		"defaults": map[string]interface{}{
			"color": map[string]interface{}{"mode": "palette-classic"},
			"custom": map[string]interface{}{
				"axisBorderShow":    false,
				"axisCenteredZero":  false,
				"axisColorMode":     "text",
				"axisLabel":         "",
				"axisPlacement":     "auto",
				"barAlignment":      0,
				"drawStyle":         "line",
				"fillOpacity":       0,
				"gradientMode":      "none",
				"hideFrom":          map[string]interface{}{"legend": false, "tooltip": false, "viz": false},
				"insertNulls":       false,
				"lineInterpolation": "linear",
				"lineWidth":         1,
				"pointSize":         5,
				"scaleDistribution": map[string]interface{}{"type": "linear"},
				"showPoints":        "auto",
				"spanNulls":         false,
				"stacking":          map[string]interface{}{"group": "A", "mode": "none"},
				"thresholdsStyle":   map[string]interface{}{"mode": "off"},
			},
			"mappings":   []interface{}{},
			"thresholds": baseThresholds(),
			"unit":       unitOr(p, "short"),
		},
		"overrides": []interface{}{},
	}
	panel["options"] = map[string]interface{}{
		"legend":  legend("bottom"),
		"tooltip": tooltip(),
	}
	return panel
}

// Table creates a table panel.
func (pf *PanelFactory) Table(p model.PanelSpec, rawSQL string, pos GridPos) map[string]interface{} {
	panel := pf.base(p, "table", rawSQL, pos)
	panel["fieldConfig"] = map[string]interface{}{
		"defaults": map[string]interface{}{
			"color": map[string]interface{}{"mode": "thresholds"},
			"custom": map[string]interface{}{
				"align":       "auto",
				"cellOptions": map[string]interface{}{"type": "auto"},
				"filterable":  true,
				"inspect":     true,
			},
			"mappings":   []interface{}{},
			"thresholds": baseThresholds(),
		},
		"overrides": []interface{}{},
	}
	panel["options"] = map[string]interface{}{
		"cellHeight": "sm",
		"footer": map[string]interface{}{
			"countRows": false,
			"fields":    "",
			"reducer":   []interface{}{"sum"},
			"show":      false,
		},
		"showHeader": true,
	}
	return panel
}

// Gauge creates a gauge panel.
func (pf *PanelFactory) Gauge(p model.PanelSpec, rawSQL string, pos GridPos) map[string]interface{} {
	panel := pf.base(p, "gauge", rawSQL, pos)
	panel["fieldConfig"] = map[string]interface{}{
		"defaults": map[string]interface{}{
			"color":      map[string]interface{}{"mode": "thresholds"},
			"mappings":   []interface{}{},
			"thresholds": baseThresholds(),
			"unit":       unitOr(p, "short"),
		},
		"overrides": []interface{}{},
	}
	panel["options"] = map[string]interface{}{
		"minVizHeight":         75,
		"minVizWidth":          75,
		"orientation":          "auto",
		"reduceOptions":        reduceOptions(),
		"showThresholdLabels":  false,
		"showThresholdMarkers": true,
		"sizing":               "auto",
	}
	return panel
}

// Stat creates a stat panel.
func (pf *PanelFactory) Stat(p model.PanelSpec, rawSQL string, pos GridPos) map[string]interface{} {
	panel := pf.base(p, "stat", rawSQL, pos)
	panel["fieldConfig"] = map[string]interface{}{
		"defaults": map[string]interface{}{
			"color":      map[string]interface{}{"mode": "thresholds"},
			"mappings":   []interface{}{},
			"thresholds": baseThresholds(),
			"unit":       unitOr(p, "none"),
		},
		"overrides": []interface{}{},
	}
	panel["options"] = map[string]interface{}{
		"colorMode":         "value",
		"graphMode":         "none",
		"justifyMode":       "auto",
		"orientation":       "auto",
		"reduceOptions":     reduceOptions(),
		"showPercentChange": false,
		"textMode":          "auto",
		"wideLayout":        true,
	}
	return panel
}

// Piechart creates a shipped / not shipped pie chart.
func (pf *PanelFactory) Piechart(p model.PanelSpec, rawSQL string, pos GridPos) map[string]interface{} {
	panel := pf.base(p, "piechart", rawSQL, pos)
	panel["fieldConfig"] = map[string]interface{}{
		"defaults": map[string]interface{}{
			"color": map[string]interface{}{"mode": "palette-classic"},
			"custom": map[string]interface{}{
				"hideFrom": map[string]interface{}{"legend": false, "tooltip": false, "viz": false},
			},
			"mappings": []interface{}{},
			"unit":     unitOr(p, "short"),
		},
		"overrides": []interface{}{},
	}
	panel["options"] = map[string]interface{}{
		"displayLabels": []interface{}{"percent"},
		"legend":        legend("right"),
		"pieType":       "pie",
		"reduceOptions": reduceOptions(),
		"tooltip":       tooltip(),
	}
	return panel
}

// IVCurve creates the xychart scatter of leakage current against reverse
// bias, one series per module.
func (pf *PanelFactory) IVCurve(p model.PanelSpec, rawSQL string, pos GridPos) map[string]interface{} {
	panel := pf.base(p, "xychart", rawSQL, pos)
	panel["fieldConfig"] = map[string]interface{}{
		"defaults": map[string]interface{}{
			"color": map[string]interface{}{"mode": "palette-classic"},
			"custom": map[string]interface{}{
				"axisBorderShow":    false,
				"axisCenteredZero":  false,
				"axisColorMode":     "text",
				"axisPlacement":     "auto",
				"fillOpacity":       50,
				"hideFrom":          map[string]interface{}{"legend": false, "tooltip": false, "viz": false},
				"lineStyle":         map[string]interface{}{"fill": "solid"},
				"lineWidth":         1,
				"pointShape":        "circle",
				"pointSize":         map[string]interface{}{"fixed": 5},
				"pointStrokeWidth":  1,
				"scaleDistribution": map[string]interface{}{"type": "linear"},
				"show":              "lines",
			},
			"mappings":   []interface{}{},
			"thresholds": baseThresholds(),
		},
		"overrides": []interface{}{
			fieldOverride("i", map[string]interface{}{
				"custom.axisPlacement":     "left",
				"custom.scaleDistribution": map[string]interface{}{"log": 10, "type": "log"},
				"max":                      1e-3,
				"min":                      1e-9,
				"unit":                     "sci",
				"custom.axisLabel":         "Leakage Current [A]",
			}),
			fieldOverride("v", map[string]interface{}{
				"max":              500,
				"min":              0,
				"custom.axisLabel": "Reverse Bias [V]",
			}),
		},
	}
	panel["options"] = map[string]interface{}{
		"legend":  legend("right"),
		"mapping": "manual",
		"series": []interface{}{
			map[string]interface{}{
				"frame": map[string]interface{}{"matcher": map[string]interface{}{"id": "byIndex", "options": 0}},
				"x":     map[string]interface{}{"matcher": map[string]interface{}{"id": "byName", "options": "v"}},
				"y":     map[string]interface{}{"matcher": map[string]interface{}{"id": "byName", "options": "i"}},
			},
		},
		"tooltip": tooltip(),
	}
	panel["transformations"] = []interface{}{
		map[string]interface{}{
			"id": "partitionByValues",
			"options": map[string]interface{}{
				"fields":     []interface{}{"module_name"},
				"keepFields": false,
			},
		},
	}
	return panel
}

// fieldOverride sets properties on the field matched by name, listed in
// property id order.
func fieldOverride(field string, props map[string]interface{}) map[string]interface{} {
	var list []interface{}
	for _, id := range sortedKeys(props) {
		list = append(list, map[string]interface{}{"id": id, "value": props[id]})
	}
	return map[string]interface{}{
		"matcher":    map[string]interface{}{"id": "byName", "options": field},
		"properties": list,
	}
}

// Text creates a markdown text panel.
func (pf *PanelFactory) Text(p model.PanelSpec, pos GridPos) map[string]interface{} {
	return map[string]interface{}{
		"description": p.Description,
		"gridPos":     pos.json(),
		"id":          pf.IDs.Next(),
		"options": map[string]interface{}{
			"code": map[string]interface{}{
				"language":        "plaintext",
				"showLineNumbers": false,
				"showMiniMap":     false,
			},
			"content": p.Content,
			"mode":    "markdown",
		},
		"pluginVersion": pluginVersion,
		"title":         p.Title,
		"type":          "text",
	}
}
