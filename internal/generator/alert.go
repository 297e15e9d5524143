package generator

import (
	"github.com/wcatz/hgcdb-dashboards/internal/model"
	"github.com/wcatz/hgcdb-dashboards/internal/sqlbuilder"
)

// AlertBuilder assembles Grafana alert rule provisioning JSON.
type AlertBuilder struct {
	DatasourceUID string
}

// NewAlertBuilder creates a new alert builder.
func NewAlertBuilder(datasourceUID string) *AlertBuilder {
	return &AlertBuilder{DatasourceUID: datasourceUID}
}

// AlertUID derives the rule uid of an alert from its title.
func AlertUID(a model.AlertSpec) string {
	return CreateUID("alert " + a.Title)
}

// Build creates the alert rule for a in the folder with folderUID. The rule
// queries the parameter as refId A and fires through a classic condition B
// on its last value.
func (ab *AlertBuilder) Build(a model.AlertSpec, folderUID string) map[string]interface{} {
	annotations := map[string]interface{}{"summary": a.Summary}
	if a.Dashboard != "" {
		annotations["__dashboardUid__"] = CreateUID(a.Dashboard)
	}
	if a.PanelID != "" {
		annotations["__panelId__"] = a.PanelID
	}

	labels := map[string]interface{}{}
	for k, v := range a.Labels {
		labels[k] = v
	}

	params := make([]interface{}, len(a.Threshold))
	for i, t := range a.Threshold {
		params[i] = t
	}

	return map[string]interface{}{
		"annotations":  annotations,
		"condition":    "B",
		"data":         []interface{}{ab.queryStage(a), conditionStage(a.LogicType, params)},
		"execErrState": "Alerting",
		"folderUID":    folderUID,
		"for":          a.Duration,
		"labels":       labels,
		"noDataState":  "Alerting",
		"orgId":        1,
		"ruleGroup":    a.Title,
		"title":        "ALERT: " + a.Title,
		"uid":          AlertUID(a),
	}
}

func (ab *AlertBuilder) queryStage(a model.AlertSpec) map[string]interface{} {
	return map[string]interface{}{
		"datasourceUid": ab.DatasourceUID,
		"model": map[string]interface{}{
			"format":        "table",
			"hide":          false,
			"intervalMs":    1000,
			"maxDataPoints": 43200,
			"rawSql":        sqlbuilder.AlertSQL(a),
			"refId":         "A",
		},
		"queryType":         "",
		"refId":             "A",
		"relativeTimeRange": map[string]interface{}{"from": 600, "to": 0},
	}
}

func conditionStage(logicType string, params []interface{}) map[string]interface{} {
	return map[string]interface{}{
		"datasourceUid": "__expr__",
		"model": map[string]interface{}{
			"conditions": []interface{}{
				map[string]interface{}{
					"evaluator": map[string]interface{}{"params": params, "type": logicType},
					"operator":  map[string]interface{}{"type": "and"},
					"query":     map[string]interface{}{"params": []interface{}{"A"}},
					"reducer":   map[string]interface{}{"params": []interface{}{}, "type": "last"},
					"type":      "query",
				},
			},
			"refId": "B",
			"type":  "classic_conditions",
		},
		"queryType":         "",
		"refId":             "B",
		"relativeTimeRange": map[string]interface{}{"from": 0, "to": 0},
	}
}
