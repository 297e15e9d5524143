package generator

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/wcatz/hgcdb-dashboards/internal/logging"
	"github.com/wcatz/hgcdb-dashboards/internal/model"
)

// maxUIDLength is the longest uid Grafana accepts.
const maxUIDLength = 40

var uidStrip = regexp.MustCompile(`[^a-zA-Z0-9_ ]`)

// CreateUID derives a stable Grafana uid from a title: punctuation is
// dropped, letters lowered and spaces turned into dashes.
func CreateUID(title string) string {
	uid := strings.ToLower(uidStrip.ReplaceAllString(title, ""))
	uid = strings.ReplaceAll(uid, " ", "-")
	if len(uid) > maxUIDLength {
		uid = uid[:maxUIDLength]
	}
	return uid
}

// DashboardBuilder assembles complete Grafana dashboard JSON.
type DashboardBuilder struct {
	Factory *PanelFactory
	Layout  *LayoutEngine
}

// NewDashboardBuilder creates a new dashboard builder.
func NewDashboardBuilder(factory *PanelFactory) *DashboardBuilder {
	return &DashboardBuilder{Factory: factory, Layout: NewLayoutEngine(0)}
}

// BuildPanels creates the panels of spec. A panel whose query cannot be
// built is logged and left out; the count of such panels is returned.
func (db *DashboardBuilder) BuildPanels(spec model.DashboardSpec) ([]interface{}, int) {
	columns := spec.Columns
	if columns < 1 {
		columns = 3
	}
	w, h := PanelSize(columns, len(spec.Panels))
	db.Layout.PerRow = columns

	panels := []interface{}{}
	skipped := 0
	for _, p := range spec.Panels {
		rawSQL, err := db.Factory.SQLFor(p)
		if err != nil {
			logging.Skipped(err, "panel", p.Title)
			skipped++
			continue
		}
		x, y := db.Layout.Place(w, h)
		panel, err := db.Factory.Panel(p, rawSQL, GridPos{X: x, Y: y, W: w, H: h})
		if err != nil {
			logging.Skipped(err, "panel", p.Title)
			skipped++
			continue
		}
		panels = append(panels, panel)
	}
	return panels, skipped
}

// Build assembles a complete Grafana dashboard and reports how many panels
// were skipped.
func (db *DashboardBuilder) Build(spec model.DashboardSpec) (map[string]interface{}, int) {
	db.Factory.IDs.Reset()
	db.Layout.Reset()

	panels, skipped := db.BuildPanels(spec)
	log.Debug().Str("dashboard", spec.Title).Int("panels", db.Factory.IDs.Issued()).Int("skipped", skipped).Msg("panels built")

	from := spec.TimeFrom
	if from == "" {
		from = "now-1y"
	}
	refresh := spec.Refresh
	if refresh == "" {
		refresh = "5m"
	}

	return map[string]interface{}{
		"annotations": map[string]interface{}{
			"list": []interface{}{
				map[string]interface{}{
					"builtIn":    1,
					"datasource": map[string]interface{}{"type": "grafana", "uid": "-- Grafana --"},
					"enable":     true,
					"hide":       true,
					"iconColor":  "rgba(0, 211, 255, 1)",
					"name":       "Annotations & Alerts",
					"type":       "dashboard",
				},
			},
		},
		"editable":             true,
		"fiscalYearStartMonth": 0,
		"graphTooltip":         0,
		"id":                   nil,
		"links":                []interface{}{},
		"panels":               panels,
		"refresh":              refresh,
		"schemaVersion":        41,
		"tags":                 toInterfaceSlice(spec.Tags),
		"templating":           map[string]interface{}{"list": db.Factory.BuildVariables(spec)},
		"time":                 map[string]interface{}{"from": from, "to": "now"},
		"timepicker":           map[string]interface{}{},
		"timezone":             "browser",
		"title":                spec.Title,
		"uid":                  CreateUID(spec.Title),
		"version":              1,
	}, skipped
}

func toInterfaceSlice(ss []string) []interface{} {
	result := make([]interface{}, len(ss))
	for i, s := range ss {
		result[i] = s
	}
	return result
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
