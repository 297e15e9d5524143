package validate

import (
	"fmt"

	"github.com/wcatz/hgcdb-dashboards/internal/schema"
)

var alertKeys = []struct {
	key     string
	allowed []kind
}{
	{"title", []kind{kindString}},
	{"table", []kind{kindString}},
	{"panelID", []kind{kindString, kindInt}},
	{"parameter", []kind{kindString}},
	{"threshold", []kind{kindList}},
	{"logicType", []kind{kindString}},
	{"duration", []kind{kindString}},
	{"interval", []kind{kindString}},
	{"summary", []kind{kindString, kindNull}},
	{"labels", []kind{kindMap, kindNull}},
}

// Alerts checks the alert list of a config document. A referenced
// dashboard is resolved against the dashboards of the same document when
// it defines any. A nil cat skips the table check.
func Alerts(file string, doc map[string]interface{}, cat schema.Catalog) *Report {
	r := &Report{File: file}
	alerts := listOf(doc["alert"])
	if len(alerts) == 0 {
		r.add(Problem{Msg: "no alerts defined"})
		return r
	}

	dashPanels := make(map[string][]map[string]interface{})
	for _, dash := range mapsOf(doc["dashboards"]) {
		dashPanels[str(dash, "title", untitledDashboard)] = mapsOf(dash["panels"])
	}

	var cols *columnChecker
	if cat != nil {
		cols = newColumnChecker(cat)
	}

	for i, item := range alerts {
		alert, ok := item.(map[string]interface{})
		if !ok {
			r.add(Problem{Alert: fmt.Sprintf("<Alert %d>", i+1), Msg: "alert must be a mapping"})
			continue
		}
		title := str(alert, "title", fmt.Sprintf("<Alert %d>", i+1))
		for _, msg := range checkAlert(alert, dashPanels, cols) {
			r.add(Problem{Alert: title, Dashboard: str(alert, "dashboard", ""), Msg: msg})
		}
	}
	return r
}

func checkAlert(alert map[string]interface{}, dashPanels map[string][]map[string]interface{}, cols *columnChecker) []string {
	var msgs []string
	for _, k := range alertKeys {
		if err := checkType(alert, k.key, k.allowed...); err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if len(msgs) > 0 {
		return msgs
	}

	for _, t := range alert["threshold"].([]interface{}) {
		switch t.(type) {
		case int, int64, uint64, float64:
		default:
			msgs = append(msgs, fmt.Sprintf("threshold %v is not a number", t))
		}
	}

	logic := alert["logicType"].(string)
	if !contains(ValidLogicTypes, logic) {
		msgs = append(msgs, fmt.Sprintf("invalid logicType %q, must be one of %v", logic, ValidLogicTypes))
	}

	if !isInteger(alert["panelID"]) {
		msgs = append(msgs, fmt.Sprintf("invalid panelID %v, must be an integer", alert["panelID"]))
	} else if dash := str(alert, "dashboard", ""); dash != "" && len(dashPanels) > 0 {
		msgs = append(msgs, checkAlertPanel(dash, toInt(alert["panelID"]), dashPanels)...)
	}

	if cols != nil {
		table := alert["table"].(string)
		valid, err := cols.columns(table)
		if err != nil {
			msgs = append(msgs, err.Error())
		} else if param := alert["parameter"].(string); !valid[param] {
			msgs = append(msgs, fmt.Sprintf("parameter %q not in %q", param, table))
		}
	}
	return msgs
}

// checkAlertPanel checks that panelID, counted from 1, names a timeseries
// panel of dash.
func checkAlertPanel(dash string, panelID int, dashPanels map[string][]map[string]interface{}) []string {
	panels, ok := dashPanels[dash]
	if !ok {
		return []string{fmt.Sprintf("dashboard %q not found", dash)}
	}
	if panelID < 1 || panelID > len(panels) {
		return []string{fmt.Sprintf("panelID %d is out of range, dashboard has %d panel(s)", panelID, len(panels))}
	}
	if chart := str(panels[panelID-1], "chart_type", ""); chart != "timeseries" {
		return []string{fmt.Sprintf("panel %d is %q, must be timeseries", panelID, chart)}
	}
	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
