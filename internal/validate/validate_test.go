package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/wcatz/hgcdb-dashboards/internal/schema"
)

func parse(t *testing.T, src string) map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	return doc
}

func testCatalog() schema.Catalog {
	return schema.StaticCatalog(map[string][]string{
		"module_info":   {"module_no", "module_name", "status_desc", "shipped_datetime", "bp_name"},
		"baseplate":     {"bp_no", "bp_name", "thickness"},
		"temp_humidity": {"log_no", "time", "temp_c", "rel_hum"},
	})
}

func messages(r *Report) string {
	var msgs []string
	for _, p := range r.Problems {
		msgs = append(msgs, p.String())
	}
	return strings.Join(msgs, "\n")
}

const goodConfig = `
dashboards:
  - title: Module Assembly
    panels:
      - title: Status
        table: module_info
        chart_type: barchart
        condition: null
        groupby: [status_desc, [bp_name, module_name]]
        filters:
          module_info: [status_desc, shipping_status]
          baseplate: [thickness]
        distinct: false
      - title: Shipped
        table: module_info
        chart_type: piechart
      - title: Notes
        chart_type: text
        content: "# hello"
      - title: Count
        table: module_info
        chart_type: stat
      - title: By Table
        table: module_info
        chart_type: table
        groupby:
          module_info: [module_name]
          baseplate: bp_name
      - title: IV
        chart_type: xychart
        filters:
          module_info: [status_desc]
`

func TestDashboardsValid(t *testing.T) {
	r := Dashboards("Module_Assembly.yaml", parse(t, goodConfig), testCatalog())
	assert.True(t, r.OK(), messages(r))
	assert.NoError(t, r.Err())
}

func TestDashboardsProblems(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"no dashboards", "alert: []\n", "no dashboards defined"},
		{"no panels", "dashboards:\n  - title: Empty\n", "dashboard has no panels"},
		{"duplicate dashboard", `
dashboards:
  - title: A
    panels: [{title: x, chart_type: text}]
  - title: A
    panels: [{title: y, chart_type: text}]
`, "duplicate dashboard title"},
		{"duplicate panel", `
dashboards:
  - title: A
    panels:
      - {title: x, chart_type: text}
      - {title: x, chart_type: text}
`, "duplicate panel title"},
		{"missing chart type", `
dashboards:
  - title: A
    panels:
      - {title: x, table: module_info}
`, `missing key "chart_type"`},
		{"wrong filters type", `
dashboards:
  - title: A
    panels:
      - {title: x, table: module_info, chart_type: barchart, groupby: [status_desc], filters: [status_desc]}
`, `key "filters" should be mapping or null, got list`},
		{"empty table", `
dashboards:
  - title: A
    panels:
      - {title: x, table: "", chart_type: barchart, groupby: [status_desc]}
`, `field "table" is empty`},
		{"missing groupby", `
dashboards:
  - title: A
    panels:
      - {title: x, table: module_info, chart_type: histogram}
`, `field "groupby" is empty or missing`},
		{"unknown table", `
dashboards:
  - title: A
    panels:
      - {title: x, table: sensor, chart_type: barchart, groupby: [sen_name]}
`, `table "sensor" not found`},
		{"unknown column", `
dashboards:
  - title: A
    panels:
      - {title: x, table: module_info, chart_type: barchart, groupby: [colour]}
`, `groupby column "colour" not in "module_info"`},
		{"unknown filter column", `
dashboards:
  - title: A
    panels:
      - title: x
        table: module_info
        chart_type: barchart
        groupby: [status_desc]
        filters: {baseplate: [weight]}
`, `filter column "weight" not in "baseplate"`},
		{"filter not a list", `
dashboards:
  - title: A
    panels:
      - title: x
        table: module_info
        chart_type: barchart
        groupby: [status_desc]
        filters: {baseplate: thickness}
`, `filters for "baseplate" must be a list`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Dashboards("f.yaml", parse(t, tt.src), testCatalog())
			require.False(t, r.OK())
			assert.Contains(t, messages(r), tt.want)
			assert.Error(t, r.Err())
		})
	}
}

func TestDashboardsWithoutCatalog(t *testing.T) {
	src := `
dashboards:
  - title: A
    panels:
      - {title: x, table: anything, chart_type: barchart, groupby: [whatever]}
`
	r := Dashboards("f.yaml", parse(t, src), nil)
	assert.True(t, r.OK(), messages(r))
}

func TestDashboardsProblemOrder(t *testing.T) {
	src := `
dashboards:
  - title: A
    panels:
      - title: x
        table: module_info
        chart_type: table
        groupby:
          temp_humidity: [t1]
          module_info: [m1]
          baseplate: [b1]
        filters:
          temp_humidity: [t2]
          module_info: [m2]
          baseplate: [b2]
`
	want := []string{
		`groupby column "b1" not in "baseplate"`,
		`groupby column "m1" not in "module_info"`,
		`groupby column "t1" not in "temp_humidity"`,
		`filter column "b2" not in "baseplate"`,
		`filter column "m2" not in "module_info"`,
		`filter column "t2" not in "temp_humidity"`,
	}
	for i := 0; i < 20; i++ {
		r := Dashboards("f.yaml", parse(t, src), testCatalog())
		var got []string
		for _, p := range r.Problems {
			got = append(got, p.Msg)
		}
		require.Equal(t, want, got)
	}
}

const alertConfig = `
dashboards:
  - title: Cleanroom
    panels:
      - {title: Temperature, table: temp_humidity, chart_type: timeseries, groupby: [time, temp_c]}
      - {title: Logs, table: temp_humidity, chart_type: table, groupby: [temp_c]}
alert:
  - title: Cleanroom Temperature
    table: temp_humidity
    dashboard: Cleanroom
    panelID: "1"
    parameter: temp_c
    threshold: [18, 25.5]
    logicType: outside_range
    duration: 5m
    interval: 1m
    summary: temperature out of range
    labels: {severity: critical}
`

func TestAlertsValid(t *testing.T) {
	r := Alerts("Cleanroom.yaml", parse(t, alertConfig), testCatalog())
	assert.True(t, r.OK(), messages(r))
}

func TestAlertsProblems(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
		want    string
	}{
		{"logic type", [2]string{"logicType: outside_range", "logicType: above"}, `invalid logicType "above"`},
		{"threshold scalar", [2]string{"threshold: [18, 25.5]", "threshold: 18"}, `key "threshold" should be list`},
		{"threshold text", [2]string{"threshold: [18, 25.5]", "threshold: [low]"}, "threshold low is not a number"},
		{"panel id text", [2]string{`panelID: "1"`, "panelID: first"}, "invalid panelID first"},
		{"panel id range", [2]string{`panelID: "1"`, "panelID: 3"}, "panelID 3 is out of range"},
		{"panel type", [2]string{`panelID: "1"`, `panelID: "2"`}, `panel 2 is "table", must be timeseries`},
		{"dashboard", [2]string{"dashboard: Cleanroom", "dashboard: Nowhere"}, `dashboard "Nowhere" not found`},
		{"missing key", [2]string{"    interval: 1m\n", ""}, `missing key "interval"`},
		{"table", [2]string{"table: temp_humidity\n    dashboard", "table: weather\n    dashboard"}, `table "weather" not found`},
		{"parameter", [2]string{"parameter: temp_c", "parameter: dew_point"}, `parameter "dew_point" not in "temp_humidity"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := strings.Replace(alertConfig, tt.replace[0], tt.replace[1], 1)
			require.NotEqual(t, alertConfig, src)
			r := Alerts("Cleanroom.yaml", parse(t, src), testCatalog())
			require.False(t, r.OK())
			assert.Contains(t, messages(r), tt.want)
		})
	}
}

func TestAlertsNone(t *testing.T) {
	r := Alerts("f.yaml", parse(t, "dashboards: []\n"), nil)
	assert.Contains(t, messages(r), "no alerts defined")
}
