package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDecodeConfigFile(t *testing.T) {
	src := `
dashboards:
  - title: Module Overview
    columns: 2
    panels:
      - title: Status
        table: module_info
        chart_type: BarChart
        groupby: [status_desc, [bp_name, module_name]]
        filters:
          module_info: [status_desc, shipping_status]
          baseplate: [bp_material]
        distinct: true
      - title: Parts
        table: module_info
        chart_type: table
        groupby:
          module_info: [module_name]
          baseplate: bp_name
        distinct: [baseplate]
alert:
  - title: Temperature
    table: temp_humidity
    panelID: "3"
    parameter: temp_c
    threshold: [30]
    logicType: gt
    duration: 5m
    interval: 1m
    summary: too hot
    labels: {severity: warning}
    dashboard: Module Overview
`
	var cfg ConfigFile
	require.NoError(t, yaml.Unmarshal([]byte(src), &cfg))
	require.Len(t, cfg.Dashboards, 1)

	dash := cfg.Dashboards[0]
	assert.Equal(t, 2, dash.Columns)
	require.Len(t, dash.Panels, 2)

	status := dash.Panels[0]
	assert.Equal(t, ChartBar, status.ChartType)
	require.Len(t, status.GroupBy.Columns, 2)
	assert.Equal(t, "status_desc", status.GroupBy.Columns[0].Name())
	assert.True(t, status.GroupBy.Columns[1].IsCoalesce())
	assert.Equal(t, "bp_name", status.GroupBy.Columns[1].Name())
	assert.Equal(t, []string{"module_info", "baseplate"}, status.Filters.Tables())
	assert.Equal(t, Distinct{"module_info"}, status.Distinct)

	parts := dash.Panels[1]
	require.True(t, parts.GroupBy.IsByTable())
	assert.Equal(t, "module_info", parts.GroupBy.Tables[0].Table)
	assert.Equal(t, "baseplate", parts.GroupBy.Tables[1].Table)
	assert.Equal(t, "bp_name", parts.GroupBy.Tables[1].Columns[0].Name())
	assert.Equal(t, 2, parts.GroupBy.Len())
	assert.Equal(t, 0, parts.Distinct.Index("baseplate"))
	assert.Equal(t, -1, parts.Distinct.Index("module_info"))

	require.Len(t, cfg.Alerts, 1)
	alert := cfg.Alerts[0]
	assert.Equal(t, []float64{30}, alert.Threshold)
	assert.Equal(t, "warning", alert.Labels["severity"])
	assert.Equal(t, "3", alert.PanelID)
}

func TestFiltersKeepOrder(t *testing.T) {
	var f Filters
	require.NoError(t, yaml.Unmarshal([]byte("zeta: [a]\nalpha: [b]\nmid: [c, d]\n"), &f))
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, f.Tables())
	assert.Equal(t, []string{"c", "d"}, f[2].Columns)
}

func TestDistinctFalse(t *testing.T) {
	var p PanelSpec
	require.NoError(t, yaml.Unmarshal([]byte("table: module_info\ndistinct: false\n"), &p))
	assert.Empty(t, p.Distinct)
}

func TestColumnRefRejectsMapping(t *testing.T) {
	var g GroupBy
	err := yaml.Unmarshal([]byte("- {a: b}\n"), &g)
	assert.Error(t, err)
}
