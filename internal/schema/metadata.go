package schema

import "strings"

// timeColumnList holds the HGCDB columns storing timestamps. They filter
// through Grafana's time picker instead of a template variable.
var timeColumnList = []string{
	"date_encap", "time_encap",
	"date_bond", "time_bond",
	"date_inspect", "time_inspect",
	"bp_received", "bp_inspected",
	"hxb_received", "hxb_inspected", "hxb_tested",
	"sen_received",
	"date_verify_received",
	"xml_gen_datetime",
	"date_test", "time_test",
	"ass_run_date", "ass_time_begin", "ass_time_end", "cure_date_end", "cure_time_end",
	"assembled", "inspected", "wb_front", "wb_back", "encap_front", "encap_back",
	"inspect_sec", "test_iv", "test_ped", "packed_datetime", "shipped_datetime",
	"log_timestamp",
}

var timeColumns = func() map[string]bool {
	m := make(map[string]bool, len(timeColumnList))
	for _, c := range timeColumnList {
		m[c] = true
	}
	return m
}()

// tablePrefixes overrides the first-segment rule for part tables.
var tablePrefixes = map[string]string{
	"baseplate": "bp",
	"hexaboard": "hxb",
	"sensor":    "sen",
}

// noPostfixTables join on <prefix>_no instead of <prefix>_name.
var noPostfixTables = map[string]bool{
	"baseplate": true,
	"sensor":    true,
}

// Derived filter columns computed from a timestamp instead of read directly.
const (
	ShippingStatus = "shipping_status"
	WirebondStatus = "wirebond_status"
	CountSentinel  = "count"
)

// IsTimeColumn reports whether col is one of the known timestamp columns.
func IsTimeColumn(col string) bool {
	return timeColumns[col]
}

// TimeColumns returns the known timestamp columns in declaration order.
func TimeColumns() []string {
	return append([]string(nil), timeColumnList...)
}

// IsDerivedColumn reports whether col is computed in SQL rather than stored.
func IsDerivedColumn(col string) bool {
	return col == ShippingStatus || col == WirebondStatus || col == CountSentinel
}

// TablePrefix returns the column prefix used for keys of table.
func TablePrefix(table string) string {
	if p, ok := tablePrefixes[table]; ok {
		return p
	}
	if i := strings.IndexByte(table, '_'); i >= 0 {
		return table[:i]
	}
	return table
}

// JoinPostfix returns the key suffix ("no" or "name") table joins on.
func JoinPostfix(table string) string {
	if noPostfixTables[table] {
		return "no"
	}
	return "name"
}

// SortKey is the DISTINCT ON key for latest-row selection.
func SortKey(table string) string {
	return TablePrefix(table) + "_name"
}
