package sqlbuilder

import (
	"fmt"
	"strings"

	"github.com/wcatz/hgcdb-dashboards/internal/model"
)

// ModuleShowVariable limits how many modules an IV curve panel plots.
const ModuleShowVariable = "N_MODULE_SHOW"

const numericPattern = `'^[-+]?[0-9]+(\.[0-9]+)?$'`

const ivCurveTemplate = `WITH latest_qc_summary AS (
    SELECT DISTINCT ON (module_name) *
    FROM module_qc_summary
    ORDER BY module_name, mod_qc_no DESC
),
selected_modules AS (
    SELECT module_info.module_name
    FROM module_info
    LEFT JOIN latest_qc_summary ON module_info.module_name = latest_qc_summary.module_name
    WHERE %s
    ORDER BY module_info.module_no DESC
    LIMIT %s
),
filtered_iv AS (
    SELECT *,
        meas_i[array_length(meas_i, 1)] AS i_last
    FROM module_iv_test
    WHERE %s
),
best_per_module AS (
    SELECT DISTINCT ON (filtered_iv.module_name) *
    FROM filtered_iv
    ORDER BY filtered_iv.module_name, i_last ASC
),
unnested AS (
    SELECT module_name, v, i
    FROM best_per_module,
    UNNEST(meas_v, meas_i) AS t(v, i)
)
SELECT *
FROM unnested
ORDER BY module_name ASC`

// IVCurveSQL builds the query for an IV curve scatter panel: the latest QC
// summary per module, the modules matching the dashboard filters, and for
// each the measured curve with the lowest final current under the requested
// temperature and humidity, unnested into (module_name, v, i) rows.
//
// Filters may reference module_info and module_qc_summary only.
func (b *Builder) IVCurveSQL(panel model.PanelSpec) (string, error) {
	var modulePreds []string
	for _, tf := range panel.Filters {
		table := tf.Table
		switch table {
		case "module_info":
		case "module_qc_summary":
			table = "latest_qc_summary"
		default:
			return "", fmt.Errorf("iv curve filters cannot reference table %s", tf.Table)
		}
		for _, col := range tf.Columns {
			modulePreds = append(modulePreds, b.FilterArgument(col, table))
		}
	}
	if cond := strings.TrimSpace(panel.Condition); cond != "" {
		modulePreds = append(modulePreds, cond)
	}
	modulePreds = append(modulePreds,
		"$__timeFilter(module_info.test_iv)",
		"module_info.test_iv IS NOT NULL",
	)

	ivPreds := []string{
		"module_name IN (SELECT module_name FROM selected_modules)",
		"meas_v IS NOT NULL AND meas_i IS NOT NULL",
	}
	for _, cond := range []string{panel.TempCondition, panel.RelHumCondition} {
		if cond = strings.TrimSpace(cond); cond != "" {
			ivPreds = append(ivPreds, cond)
		}
	}
	ivPreds = append(ivPreds,
		"temp_c ~ "+numericPattern,
		"rel_hum ~ "+numericPattern,
		"(status_desc = 'Completely Encapsulated' OR status_desc = 'Frontside Encapsulated')",
		"array_length(meas_v, 1) = array_length(meas_i, 1)",
	)

	return fmt.Sprintf(ivCurveTemplate,
		strings.Join(modulePreds, "\n        AND "),
		variableRef(ModuleShowVariable),
		strings.Join(ivPreds, "\n        AND "),
	), nil
}
