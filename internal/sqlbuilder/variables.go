package sqlbuilder

import (
	"fmt"
	"strings"

	"github.com/wcatz/hgcdb-dashboards/internal/model"
	"github.com/wcatz/hgcdb-dashboards/internal/schema"
)

// VariableQuery returns the query listing the choices of the template
// variable for column of table.
func VariableQuery(column, table string) string {
	switch column {
	case schema.ShippingStatus:
		return fmt.Sprintf("SELECT DISTINCT CASE WHEN shipped_datetime IS NULL THEN 'not shipped' ELSE 'shipped' END AS shipping_status FROM %s ORDER BY shipping_status", table)
	case schema.WirebondStatus:
		return fmt.Sprintf("SELECT DISTINCT CASE WHEN wb_front IS NULL THEN 'not front bonded' ELSE 'front bonded' END AS wirebond_status FROM %s ORDER BY wirebond_status", table)
	case "iv_grade":
		return "SELECT DISTINCT iv_grade FROM module_qc_summary UNION SELECT 'NULL' ORDER BY iv_grade"
	default:
		return fmt.Sprintf("SELECT DISTINCT COALESCE(%[1]s::text, 'NULL') AS %[1]s FROM %[2]s ORDER BY %[1]s", column, table)
	}
}

// AlertSQL returns the query an alert rule evaluates: the parameter as a
// time series, ignoring NULL readings.
func AlertSQL(alert model.AlertSpec) string {
	return strings.Join([]string{
		"SELECT",
		"    $__time(time) AS time,",
		fmt.Sprintf("    %s AS value", alert.Parameter),
		"FROM " + alert.Table,
		"WHERE $__timeFilter(time)",
		fmt.Sprintf("  AND %s IS NOT NULL", alert.Parameter),
	}, "\n")
}
