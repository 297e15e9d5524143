package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wcatz/hgcdb-dashboards/internal/model"
)

// PanelConfig is one parsed config_folders/*.yaml file. Raw keeps the
// untyped document for validation.
type PanelConfig struct {
	Path   string
	Folder string
	Raw    map[string]interface{}
	Spec   model.ConfigFile
}

// ListConfigFiles returns the .yaml files of dir in name order.
func ListConfigFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing config dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// FolderName derives the Grafana folder title of a config file:
// "Module_Assembly.yaml" becomes "Module Assembly".
func FolderName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return strings.ReplaceAll(base, "_", " ")
}

// LoadPanelConfig reads and parses one config file.
func LoadPanelConfig(path string) (*PanelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return ParsePanelConfig(path, data)
}

// ParsePanelConfig parses config file content read from path.
func ParsePanelConfig(path string, data []byte) (*PanelConfig, error) {
	pc := &PanelConfig{Path: path, Folder: FolderName(path)}
	if err := yaml.Unmarshal(data, &pc.Raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if pc.Raw == nil {
		pc.Raw = make(map[string]interface{})
	}
	if err := yaml.Unmarshal(data, &pc.Spec); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return pc, nil
}
