package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const grafanaTemplate = `# Grafana connection.
# Change these to match your Grafana server:
GF_PORT: "3000"
GF_PROTOCOL: http
GF_USER: admin
GF_PASS: admin

# Filled in by bootstrap and folder creation:
GF_SA_NAME: ""
GF_SA_ID: ""
GF_API_KEY: ""
GF_DATA_SOURCE_NAME: ""
GF_DATA_SOURCE_UID: ""
GF_FOLDER_UIDS: {}
GF_RUN_TIMES: 0
`

const databaseTemplate = `# HGCDB connection. Should match the local database settings.
dbname: hgcdb
port: "5432"
db_hostname: localhost
# one of: CMU, IHEP, NTU, TTU, TIFR, UCSB
institution_abbr: CMU
user: viewer
password: ""
`

// WriteTemplates creates template connection files in dir. Existing files
// are never overwritten. It returns the paths it created.
func WriteTemplates(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating settings dir: %w", err)
	}
	var created []string
	for _, f := range []struct{ name, content string }{
		{GrafanaFile, grafanaTemplate},
		{DatabaseFile, databaseTemplate},
	} {
		path := filepath.Join(dir, f.name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(f.content), 0600); err != nil {
			return created, fmt.Errorf("writing %s: %w", path, err)
		}
		created = append(created, path)
	}
	return created, nil
}
