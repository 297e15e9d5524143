package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const testGrafanaConn = `# keep me
GF_PORT: "3001"
GF_USER: admin
GF_PASS: secret
GF_API_KEY: file-key
GF_DATA_SOURCE_UID: hgcdb-postgres
GF_FOLDER_UIDS:
  Module Assembly: module-assembly
GF_RUN_TIMES: 2
CUSTOM_KEY: untouched
`

const testDatabaseConn = `dbname: hgcdb
port: 5432
db_hostname: db.example.org
institution_abbr: ntu
user: viewer
password: pw
`

func writeSettings(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, GrafanaFile, testGrafanaConn)
	writeTestFile(t, dir, DatabaseFile, testDatabaseConn)
	return dir
}

func TestLoadSettings(t *testing.T) {
	s, err := Load(writeSettings(t))
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:3001", s.Grafana.BaseURL())
	assert.Equal(t, "file-key", s.Grafana.APIKey)
	assert.Equal(t, 2, s.Grafana.RunTimes)
	assert.Equal(t, "module-assembly", s.Grafana.FolderUIDs["Module Assembly"])
	assert.Equal(t, "5432", s.Database.Port)
	assert.NoError(t, s.Validate())

	tz, err := s.Database.TimeZone()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Taipei", tz)

	assert.Equal(t, "postgres://viewer:pw@db.example.org:5432/hgcdb?sslmode=disable", s.Database.DSN())
}

func TestLoadSettingsMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GF_URL", "https://grafana.example.org/")
	t.Setenv("GF_API_KEY", "env-key")
	t.Setenv("DB_PASSWORD", "env-pw")

	dir := writeSettings(t)
	s, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://grafana.example.org", s.Grafana.BaseURL())
	assert.Equal(t, "env-key", s.Grafana.APIKey)
	assert.Equal(t, "env-pw", s.Database.Password)

	// an env-supplied key is never written to disk
	require.NoError(t, s.SaveGrafana())
	data, err := os.ReadFile(filepath.Join(dir, GrafanaFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "file-key")
	assert.NotContains(t, string(data), "env-key")
}

func TestSaveGrafanaPreservesFile(t *testing.T) {
	dir := writeSettings(t)
	s, err := Load(dir)
	require.NoError(t, err)

	s.Grafana.FolderUIDs["Module Testing"] = "module-testing"
	s.Grafana.RunTimes++
	s.Grafana.SAID = "7"
	require.NoError(t, s.SaveGrafana())

	data, err := os.ReadFile(filepath.Join(dir, GrafanaFile))
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.HasPrefix(out, "# keep me"), "leading comment preserved")
	assert.Contains(t, out, "CUSTOM_KEY: untouched")
	assert.Contains(t, out, "GF_RUN_TIMES: 3")

	reloaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "7", reloaded.Grafana.SAID)
	assert.Equal(t, map[string]string{
		"Module Assembly": "module-assembly",
		"Module Testing":  "module-testing",
	}, reloaded.Grafana.FolderUIDs)
}

func TestYAMLEditor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conn.yaml")

	ed := NewYAMLEditor(path)
	require.NoError(t, ed.SetString("GF_API_KEY", "abc"))
	require.NoError(t, ed.SetString("GF_SA_NAME", "cmu-service-account"))
	require.NoError(t, ed.SetString("GF_API_KEY", "def"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "GF_API_KEY: def\nGF_SA_NAME: cmu-service-account\n", string(data))

	require.NoError(t, ed.DeleteKey("GF_SA_NAME"))
	assert.Error(t, ed.DeleteKey("GF_SA_NAME"))

	writeTestFile(t, dir, "list.yaml", "- a\n- b\n")
	assert.Error(t, NewYAMLEditor(filepath.Join(dir, "list.yaml")).SetString("k", "v"))
}

func TestTimeZoneFor(t *testing.T) {
	tests := []struct {
		abbr, want string
	}{
		{"CMU", "America/New_York"},
		{"ihep", "Asia/Shanghai"},
		{"TTU", "America/Chicago"},
		{" TIFR ", "Asia/Kolkata"},
		{"UCSB", "America/Los_Angeles"},
	}
	for _, tt := range tests {
		got, err := TimeZoneFor(tt.abbr)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	_, err := TimeZoneFor("MIT")
	assert.Error(t, err)
}

func TestListConfigFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "Module_Testing.yaml", "dashboards: []\n")
	writeTestFile(t, dir, "Components.yml", "dashboards: []\n")
	writeTestFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "contact_configs"), 0755))

	paths, err := ListConfigFiles(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "Components", FolderName(paths[0]))
	assert.Equal(t, "Module Testing", FolderName(paths[1]))
}

func TestParsePanelConfig(t *testing.T) {
	pc, err := ParsePanelConfig("config_folders/Module_Assembly.yaml", []byte(`
dashboards:
  - title: Assembly
    panels:
      - title: Status
        table: module_info
        chart_type: barchart
        groupby: [status_desc]
`))
	require.NoError(t, err)
	assert.Equal(t, "Module Assembly", pc.Folder)
	require.Len(t, pc.Spec.Dashboards, 1)
	assert.Equal(t, "Status", pc.Spec.Dashboards[0].Panels[0].Title)
	assert.Contains(t, pc.Raw, "dashboards")

	_, err = ParsePanelConfig("bad.yaml", []byte("dashboards: [unclosed"))
	assert.Error(t, err)
}

func TestWriteTemplates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "settings")
	created, err := WriteTemplates(dir)
	require.NoError(t, err)
	assert.Len(t, created, 2)

	s, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "viewer", s.Database.User)
	assert.Equal(t, 0, s.Grafana.RunTimes)
	assert.Error(t, s.Validate())

	created, err = WriteTemplates(dir)
	require.NoError(t, err)
	assert.Empty(t, created)
}
