package generator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Output tree roots under the work dir.
const (
	DashboardsDir = "Dashboards"
	AlertsDir     = "Alerts"
)

// OutputPath returns where the JSON for title is written:
// <workDir>/<kind>/<folder>/<title_with_underscores>.json.
func OutputPath(workDir, kind, folder, title string) string {
	name := strings.NewReplacer(" ", "_", "/", "_").Replace(title)
	return filepath.Join(workDir, kind, folder, name+".json")
}

// Marshal renders a dashboard or alert document as written to disk.
func Marshal(doc map[string]interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", docTitle(doc), err)
	}
	return append(data, '\n'), nil
}

// WriteJSON writes doc to fpath, creating parent directories, and returns
// the size written. With dryRun nothing touches the disk.
func WriteJSON(doc map[string]interface{}, fpath string, dryRun bool) (int, error) {
	data, err := Marshal(doc)
	if err != nil {
		return 0, err
	}
	size := len(data)
	filename := filepath.Base(fpath)

	if !dryRun {
		if err := os.MkdirAll(filepath.Dir(fpath), 0755); err != nil {
			return 0, fmt.Errorf("creating %s: %w", filepath.Dir(fpath), err)
		}
		if err := os.WriteFile(fpath, data, 0644); err != nil {
			return 0, fmt.Errorf("writing %s: %w", fpath, err)
		}
	}

	if _, ok := doc["panels"]; ok {
		fmt.Printf("  %s: %d panels, %s bytes\n", filename, countPanels(doc), formatSize(size))
	} else {
		fmt.Printf("  %s: %s bytes\n", filename, formatSize(size))
	}
	return size, nil
}

// ReadJSON returns the bytes of a written document unchanged for upload.
func ReadJSON(fpath string) (json.RawMessage, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", fpath, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("reading %s: invalid JSON", fpath)
	}
	return json.RawMessage(data), nil
}

// ListJSON returns the .json files directly under dir in name order. A
// missing dir has none.
func ListJSON(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// RemoveTree deletes a generated output tree such as <workDir>/Dashboards.
func RemoveTree(workDir, kind string) error {
	if err := os.RemoveAll(filepath.Join(workDir, kind)); err != nil {
		return fmt.Errorf("removing %s output: %w", kind, err)
	}
	return nil
}

func docTitle(doc map[string]interface{}) string {
	if t, ok := doc["title"].(string); ok {
		return t
	}
	return "document"
}

func countPanels(dashboard map[string]interface{}) int {
	panels, ok := dashboard["panels"].([]interface{})
	if !ok {
		return 0
	}
	return len(panels)
}

func formatSize(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	s := fmt.Sprintf("%d", n)
	// insert commas
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}
