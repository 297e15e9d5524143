// Package validate checks panel config files before anything is generated
// from them. Checks run on the untyped YAML document so type mistakes are
// reported by key instead of as decode errors.
package validate

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/wcatz/hgcdb-dashboards/internal/schema"
)

// Problem is one failed check.
type Problem struct {
	Dashboard string
	Panel     string
	Alert     string
	Msg       string
}

func (p Problem) String() string {
	var where []string
	if p.Alert != "" {
		where = append(where, fmt.Sprintf("alert %q", p.Alert))
	}
	if p.Dashboard != "" {
		where = append(where, fmt.Sprintf("dashboard %q", p.Dashboard))
	}
	if p.Panel != "" {
		where = append(where, fmt.Sprintf("panel %q", p.Panel))
	}
	if len(where) == 0 {
		return p.Msg
	}
	return strings.Join(where, ", ") + ": " + p.Msg
}

// Report collects the problems found in one file.
type Report struct {
	File     string
	Problems []Problem
}

// OK reports whether every check passed.
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

// Err returns nil when every check passed, otherwise one error listing
// every problem.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	msgs := make([]string, len(r.Problems))
	for i, p := range r.Problems {
		msgs[i] = p.String()
	}
	return fmt.Errorf("%s: %d problem(s): %s", r.File, len(r.Problems), strings.Join(msgs, "; "))
}

func (r *Report) add(p Problem) {
	r.Problems = append(r.Problems, p)
}

// ValidLogicTypes are the evaluator types an alert may use.
var ValidLogicTypes = []string{"gt", "lt", "eq", "nq", "within_range", "outside_range"}

type kind int

const (
	kindString kind = iota
	kindList
	kindMap
	kindBool
	kindNull
	kindInt
)

func (k kind) String() string {
	return [...]string{"string", "list", "mapping", "bool", "null", "integer"}[k]
}

func kindOf(v interface{}) (kind, bool) {
	switch v.(type) {
	case string:
		return kindString, true
	case []interface{}:
		return kindList, true
	case map[string]interface{}:
		return kindMap, true
	case bool:
		return kindBool, true
	case nil:
		return kindNull, true
	case int, int64, uint64:
		return kindInt, true
	}
	return 0, false
}

func describe(v interface{}) string {
	if k, ok := kindOf(v); ok {
		return k.String()
	}
	return fmt.Sprintf("%T", v)
}

// checkType reports whether m[key] is present with one of the allowed kinds.
func checkType(m map[string]interface{}, key string, allowed ...kind) error {
	v, ok := m[key]
	if !ok {
		return fmt.Errorf("missing key %q", key)
	}
	k, known := kindOf(v)
	if known {
		for _, a := range allowed {
			if a == k {
				return nil
			}
		}
	}
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = a.String()
	}
	return fmt.Errorf("key %q should be %s, got %s", key, strings.Join(names, " or "), describe(v))
}

func str(m map[string]interface{}, key, def string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return def
}

func listOf(v interface{}) []interface{} {
	l, _ := v.([]interface{})
	return l
}

func mapsOf(v interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	for _, item := range listOf(v) {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

// columnChecker resolves table columns once per table.
type columnChecker struct {
	cat   schema.Catalog
	cache map[string]map[string]bool
}

func newColumnChecker(cat schema.Catalog) *columnChecker {
	return &columnChecker{cat: cat, cache: make(map[string]map[string]bool)}
}

// columns returns the column set of table, or an error if it is unknown.
func (c *columnChecker) columns(table string) (map[string]bool, error) {
	if cols, ok := c.cache[table]; ok {
		return cols, nil
	}
	names, err := schema.ColumnNames(c.cat, table)
	if err != nil {
		if errors.Is(err, schema.ErrUnknownTable) {
			return nil, fmt.Errorf("table %q not found", table)
		}
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("table %q not found", table)
	}
	cols := make(map[string]bool, len(names))
	for _, n := range names {
		cols[n] = true
	}
	c.cache[table] = cols
	return cols, nil
}

func isInteger(v interface{}) bool {
	switch x := v.(type) {
	case int, int64, uint64:
		return true
	case string:
		_, err := strconv.Atoi(strings.TrimSpace(x))
		return err == nil
	}
	return false
}

func toInt(v interface{}) int {
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case uint64:
		return int(x)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(x))
		return n
	}
	return 0
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
