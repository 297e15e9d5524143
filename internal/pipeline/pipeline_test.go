package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wcatz/hgcdb-dashboards/internal/config"
	"github.com/wcatz/hgcdb-dashboards/internal/generator"
	"github.com/wcatz/hgcdb-dashboards/internal/grafana"
	"github.com/wcatz/hgcdb-dashboards/internal/schema"
)

const testURL = "http://grafana.test"

const assemblyConfig = `
dashboards:
  - title: Module Assembly
    panels:
      - title: Status
        table: module_info
        chart_type: barchart
        groupby: [status_desc]
        filters:
          module_info: [status_desc]
      - title: Assembled Over Time
        table: module_info
        chart_type: timeseries
        groupby: [assembled, count]
`

const brokenConfig = `
dashboards:
  - title: Broken
    panels:
      - title: Colour
        table: module_info
        chart_type: barchart
        groupby: [colour]
`

const cleanroomConfig = `
alert:
  - title: Cleanroom Temperature
    table: temp_humidity
    panelID: "1"
    parameter: temp_c
    threshold: [18, 25]
    logicType: outside_range
    duration: 5m
    interval: 1m
    summary: temperature out of range
    labels: {severity: critical}
  - title: Cleanroom Humidity
    table: temp_humidity
    panelID: "2"
    parameter: rel_hum
    threshold: [40]
    logicType: gt
    duration: 5m
    interval: 1m
    summary: humidity too high
    labels: {}
`

type fixture struct {
	p        *Pipeline
	mock     *httpmock.MockTransport
	settings string
	work     string
}

func newFixture(t *testing.T, gfConn string, files map[string]string) *fixture {
	t.Helper()
	root := t.TempDir()
	settingsDir := filepath.Join(root, "settings")
	configDir := filepath.Join(root, "config_folders")
	workDir := filepath.Join(root, "work")
	for _, dir := range []string{settingsDir, configDir, workDir} {
		require.NoError(t, os.MkdirAll(dir, 0755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(settingsDir, config.GrafanaFile), []byte(gfConn), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(settingsDir, config.DatabaseFile), []byte(
		"dbname: hgcdb\nport: \"5432\"\ndb_hostname: localhost\ninstitution_abbr: CMU\nuser: viewer\npassword: pw\n"), 0644))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(configDir, name), []byte(content), 0644))
	}

	settings, err := config.Load(settingsDir)
	require.NoError(t, err)

	cat := schema.StaticCatalog(map[string][]string{
		"module_info":   {"module_no", "module_name", "status_desc", "assembled", "shipped_datetime"},
		"temp_humidity": {"log_no", "time", "temp_c", "rel_hum"},
	})
	mock := httpmock.NewMockTransport()
	client := grafana.NewClient(testURL, settings.Grafana.User, settings.Grafana.Pass, settings.Grafana.APIKey)
	client.HTTP.Transport = mock

	p, err := New(settings, cat, client, configDir, workDir)
	require.NoError(t, err)
	return &fixture{p: p, mock: mock, settings: settingsDir, work: workDir}
}

const bootstrappedConn = `GF_USER: admin
GF_PASS: admin
GF_API_KEY: glsa_abc
GF_DATA_SOURCE_UID: hgcdb-postgres
GF_FOLDER_UIDS:
  Module Assembly: module-assembly
GF_RUN_TIMES: 1
`

func reload(t *testing.T, f *fixture) *config.Settings {
	t.Helper()
	s, err := config.Load(f.settings)
	require.NoError(t, err)
	return s
}

func TestFolders(t *testing.T) {
	f := newFixture(t, bootstrappedConn, map[string]string{
		"Module_Assembly.yaml": assemblyConfig,
		"Cleanroom.yaml":       cleanroomConfig,
		"General.yaml":         "dashboards: []\n",
	})
	f.mock.RegisterResponder("GET", testURL+"/api/folders/module-assembly",
		httpmock.NewStringResponder(200, `{"uid": "module-assembly"}`))
	f.mock.RegisterResponder("GET", testURL+"/api/folders/cleanroom",
		httpmock.NewStringResponder(404, `{"message": "not found"}`))
	f.mock.RegisterResponder("POST", testURL+"/api/folders",
		httpmock.NewStringResponder(200, `{"uid": "cleanroom"}`))

	sum, err := f.p.Folders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Files)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 2, sum.Uploaded)

	calls := f.mock.GetCallCountInfo()
	assert.Equal(t, 1, calls["POST "+testURL+"/api/folders"])

	saved := reload(t, f)
	assert.Equal(t, map[string]string{
		"Module Assembly": "module-assembly",
		"Cleanroom":       "cleanroom",
	}, saved.Grafana.FolderUIDs)
}

func TestDashboards(t *testing.T) {
	f := newFixture(t, bootstrappedConn, map[string]string{
		"Module_Assembly.yaml": assemblyConfig,
		"Broken.yaml":          brokenConfig,
		"Notes.yaml":           "dashboards: [unclosed",
	})
	var uploaded []map[string]interface{}
	f.mock.RegisterResponder("POST", testURL+"/api/dashboards/db",
		func(req *http.Request) (*http.Response, error) {
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			uploaded = append(uploaded, body)
			return httpmock.NewStringResponse(200, `{"status": "success"}`), nil
		})

	sum, err := f.p.Dashboards(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Files)
	assert.Equal(t, 2, sum.Skipped)
	assert.Equal(t, 1, sum.Generated)
	assert.Equal(t, 1, sum.Uploaded)
	assert.Equal(t, 0, sum.Failed)

	require.Len(t, uploaded, 1)
	assert.Equal(t, "module-assembly", uploaded[0]["folderUid"])
	assert.Equal(t, true, uploaded[0]["overwrite"])
	dash := uploaded[0]["dashboard"].(map[string]interface{})
	assert.Equal(t, "Module Assembly", dash["title"])
	assert.Len(t, dash["panels"], 2)

	_, err = os.Stat(filepath.Join(f.work, generator.DashboardsDir))
	assert.True(t, os.IsNotExist(err), "generated files removed after upload")
}

func TestDashboardsKeepFilesOnFailure(t *testing.T) {
	f := newFixture(t, bootstrappedConn, map[string]string{"Module_Assembly.yaml": assemblyConfig})
	f.mock.RegisterResponder("POST", testURL+"/api/dashboards/db",
		httpmock.NewStringResponder(500, `{"message": "boom"}`))

	sum, err := f.p.Dashboards(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.FileExists(t, filepath.Join(f.work, "Dashboards", "Module Assembly", "Module_Assembly.json"))
}

func TestAlertsConflictRetryThenNextFile(t *testing.T) {
	f := newFixture(t, bootstrappedConn, map[string]string{"Cleanroom.yaml": cleanroomConfig})
	f.p.Settings.Grafana.FolderUIDs["Cleanroom"] = "cleanroom"

	var order []string
	f.mock.RegisterResponder("POST", testURL+"/api/v1/provisioning/alert-rules",
		func(req *http.Request) (*http.Response, error) {
			var rule map[string]interface{}
			require.NoError(t, json.NewDecoder(req.Body).Decode(&rule))
			uid := rule["uid"].(string)
			order = append(order, "POST "+uid)
			assert.Equal(t, "cleanroom", rule["folderUID"])
			if uid == "alert-cleanroom-temperature" {
				return httpmock.NewStringResponse(409, `{"message": "conflict"}`), nil
			}
			return httpmock.NewStringResponse(201, `{}`), nil
		})
	f.mock.RegisterResponder("DELETE", testURL+"/api/v1/provisioning/alert-rules/alert-cleanroom-temperature",
		func(req *http.Request) (*http.Response, error) {
			order = append(order, "DELETE alert-cleanroom-temperature")
			return httpmock.NewStringResponse(204, ""), nil
		})

	sum, err := f.p.Alerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Generated)
	assert.Equal(t, 1, sum.Uploaded)
	assert.Equal(t, 1, sum.Failed)

	// files are uploaded in name order: Humidity before Temperature
	assert.Equal(t, []string{
		"POST alert-cleanroom-humidity",
		"POST alert-cleanroom-temperature",
		"DELETE alert-cleanroom-temperature",
		"POST alert-cleanroom-temperature",
	}, order)

	assert.Empty(t, reload(t, f).Grafana.FolderUIDs)
	assert.DirExists(t, filepath.Join(f.work, generator.AlertsDir, "Cleanroom"))
}

func TestGenerateDryRun(t *testing.T) {
	f := newFixture(t, bootstrappedConn, map[string]string{
		"Module_Assembly.yaml": assemblyConfig,
		"Cleanroom.yaml":       cleanroomConfig,
	})
	sum, err := f.p.Generate(true)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Files)
	assert.Equal(t, 3, sum.Generated)

	entries, err := os.ReadDir(f.work)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 0, f.mock.GetTotalCallCount())
}

func TestGenerateWritesFiles(t *testing.T) {
	f := newFixture(t, bootstrappedConn, map[string]string{
		"Module_Assembly.yaml": assemblyConfig,
		"Cleanroom.yaml":       cleanroomConfig,
	})
	_, err := f.p.Generate(false)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(f.work, "Dashboards", "Module Assembly", "Module_Assembly.json"))
	assert.FileExists(t, filepath.Join(f.work, "Alerts", "Cleanroom", "Cleanroom_Humidity.json"))

	body, err := generator.ReadJSON(filepath.Join(f.work, "Alerts", "Cleanroom", "Cleanroom_Temperature.json"))
	require.NoError(t, err)
	var rule map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &rule))
	assert.Equal(t, "cleanroom", rule["folderUID"])
	assert.Equal(t, "ALERT: Cleanroom Temperature", rule["title"])
}

func TestValidate(t *testing.T) {
	f := newFixture(t, bootstrappedConn, map[string]string{
		"Module_Assembly.yaml": assemblyConfig,
		"Broken.yaml":          brokenConfig,
		"Cleanroom.yaml":       cleanroomConfig,
	})
	sum, failed, err := f.p.Validate()
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Files)
	assert.Equal(t, 2, sum.Generated)
	assert.Equal(t, 1, sum.Skipped)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Err().Error(), `groupby column "colour" not in "module_info"`)
}

func TestRunBootstrapsOnce(t *testing.T) {
	f := newFixture(t, "GF_USER: admin\nGF_PASS: admin\nGF_RUN_TIMES: 0\n", map[string]string{
		"Module_Assembly.yaml": assemblyConfig,
	})
	f.mock.RegisterResponder("POST", testURL+"/api/serviceaccounts",
		httpmock.NewStringResponder(201, `{"id": 3}`))
	f.mock.RegisterResponder("POST", testURL+"/api/serviceaccounts/3/tokens",
		httpmock.NewStringResponder(200, `{"key": "glsa_new"}`))
	f.mock.RegisterResponder("POST", testURL+"/api/datasources",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer glsa_new", req.Header.Get("Authorization"))
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, "CMU-HGCDB", body["name"])
			return httpmock.NewStringResponse(200, `{}`), nil
		})
	f.mock.RegisterResponder("GET", testURL+"/api/folders/module-assembly",
		httpmock.NewStringResponder(404, `{}`))
	f.mock.RegisterResponder("POST", testURL+"/api/folders",
		httpmock.NewStringResponder(200, `{"uid": "module-assembly"}`))
	f.mock.RegisterResponder("POST", testURL+"/api/dashboards/db",
		httpmock.NewStringResponder(200, `{"status": "success"}`))

	ctx := context.Background()
	require.NoError(t, f.p.Run(ctx))

	saved := reload(t, f)
	assert.Equal(t, 1, saved.Grafana.RunTimes)
	assert.Equal(t, "glsa_new", saved.Grafana.APIKey)
	assert.Equal(t, "cmu-service-account", saved.Grafana.SAName)
	assert.Equal(t, "3", saved.Grafana.SAID)
	assert.Equal(t, "CMU-HGCDB", saved.Grafana.DataSourceName)
	assert.Len(t, saved.Grafana.DataSourceUID, 36)
	assert.Empty(t, saved.Grafana.FolderUIDs)

	require.NoError(t, f.p.Run(ctx))
	calls := f.mock.GetCallCountInfo()
	assert.Equal(t, 1, calls["POST "+testURL+"/api/serviceaccounts"])
	assert.Equal(t, 2, calls["POST "+testURL+"/api/dashboards/db"])
	assert.Equal(t, 2, reload(t, f).Grafana.RunTimes)
}

func TestRunAfterBootstrap(t *testing.T) {
	f := newFixture(t, "GF_USER: admin\nGF_PASS: admin\nGF_RUN_TIMES: 0\n", map[string]string{
		"Module_Assembly.yaml": assemblyConfig,
	})
	f.mock.RegisterResponder("POST", testURL+"/api/serviceaccounts",
		httpmock.NewStringResponder(201, `{"id": 3}`).Then(
			httpmock.NewStringResponder(409, `{"message": "service account already exists"}`)))
	f.mock.RegisterResponder("POST", testURL+"/api/serviceaccounts/3/tokens",
		httpmock.NewStringResponder(200, `{"key": "glsa_new"}`))
	f.mock.RegisterResponder("POST", testURL+"/api/datasources",
		httpmock.NewStringResponder(200, `{}`))
	f.mock.RegisterResponder("GET", testURL+"/api/folders/module-assembly",
		httpmock.NewStringResponder(200, `{"uid": "module-assembly"}`))
	f.mock.RegisterResponder("POST", testURL+"/api/dashboards/db",
		httpmock.NewStringResponder(200, `{"status": "success"}`))

	ctx := context.Background()
	require.NoError(t, f.p.Bootstrap(ctx))
	assert.Equal(t, 0, reload(t, f).Grafana.RunTimes)

	require.NoError(t, f.p.Run(ctx))
	calls := f.mock.GetCallCountInfo()
	assert.Equal(t, 1, calls["POST "+testURL+"/api/serviceaccounts"])
	assert.Equal(t, 1, calls["POST "+testURL+"/api/datasources"])
	assert.Equal(t, 1, reload(t, f).Grafana.RunTimes)
}

func TestRunSkipsBootstrapWhenConnected(t *testing.T) {
	// state left behind by a run that bootstrapped and then failed
	f := newFixture(t, "GF_USER: admin\nGF_PASS: admin\nGF_API_KEY: glsa_abc\nGF_DATA_SOURCE_UID: hgcdb-postgres\nGF_RUN_TIMES: 0\n",
		map[string]string{"Module_Assembly.yaml": assemblyConfig})
	f.mock.RegisterResponder("GET", testURL+"/api/folders/module-assembly",
		httpmock.NewStringResponder(200, `{"uid": "module-assembly"}`))
	f.mock.RegisterResponder("POST", testURL+"/api/dashboards/db",
		httpmock.NewStringResponder(200, `{"status": "success"}`))

	require.NoError(t, f.p.Run(context.Background()))
	calls := f.mock.GetCallCountInfo()
	assert.Zero(t, calls["POST "+testURL+"/api/serviceaccounts"])
	assert.Zero(t, calls["POST "+testURL+"/api/datasources"])
	assert.Equal(t, 1, reload(t, f).Grafana.RunTimes)
}

func TestDeleteAlerts(t *testing.T) {
	f := newFixture(t, bootstrappedConn, nil)
	f.mock.RegisterResponder("GET", testURL+"/api/v1/provisioning/alert-rules",
		httpmock.NewStringResponder(200, `[{"uid": "a"}, {"uid": "b"}]`))
	f.mock.RegisterResponder("DELETE", testURL+"/api/v1/provisioning/alert-rules/a",
		httpmock.NewStringResponder(204, ""))
	f.mock.RegisterResponder("DELETE", testURL+"/api/v1/provisioning/alert-rules/b",
		httpmock.NewStringResponder(404, `{}`))

	sum, err := f.p.DeleteAlerts(context.Background(), nil, true)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Deleted)
	assert.Equal(t, 0, sum.Uploaded)
	assert.Equal(t, 1, sum.Failed)
}
