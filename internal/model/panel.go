package model

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ChartType names a Grafana visualization a panel renders as.
type ChartType string

const (
	ChartBar        ChartType = "barchart"
	ChartHistogram  ChartType = "histogram"
	ChartTimeseries ChartType = "timeseries"
	ChartTable      ChartType = "table"
	ChartGauge      ChartType = "gauge"
	ChartStat       ChartType = "stat"
	ChartPie        ChartType = "piechart"
	ChartXY         ChartType = "xychart"
	ChartText       ChartType = "text"
)

// ColumnRef is a group-by entry: one column, or several columns collapsed
// into one output column with COALESCE.
type ColumnRef struct {
	Names []string
}

// Col returns a single-column reference.
func Col(name string) ColumnRef {
	return ColumnRef{Names: []string{name}}
}

// Coalesce returns a multi-column reference.
func Coalesce(names ...string) ColumnRef {
	return ColumnRef{Names: names}
}

// Name is the output name of the reference (its first column).
func (c ColumnRef) Name() string {
	if len(c.Names) == 0 {
		return ""
	}
	return c.Names[0]
}

// IsCoalesce reports whether the reference merges more than one column.
func (c ColumnRef) IsCoalesce() bool {
	return len(c.Names) > 1
}

func (c ColumnRef) String() string {
	if c.IsCoalesce() {
		return "[" + strings.Join(c.Names, ", ") + "]"
	}
	return c.Name()
}

// UnmarshalYAML accepts either a scalar column name or a sequence of names.
func (c *ColumnRef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		c.Names = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return fmt.Errorf("line %d: column list: %w", node.Line, err)
		}
		if len(names) == 0 {
			return fmt.Errorf("line %d: empty column list", node.Line)
		}
		c.Names = names
		return nil
	default:
		return fmt.Errorf("line %d: column must be a name or a list of names", node.Line)
	}
}

// TableColumns is one entry of a table-keyed group-by.
type TableColumns struct {
	Table   string
	Columns []ColumnRef
}

// GroupBy is either a flat column list on the panel's table, or an ordered
// table -> columns mapping used by multi-table panels.
type GroupBy struct {
	Columns []ColumnRef
	Tables  []TableColumns
}

// IsByTable reports whether the group-by was given as a table mapping.
func (g GroupBy) IsByTable() bool {
	return len(g.Tables) > 0
}

// Len is the total number of column references.
func (g GroupBy) Len() int {
	n := len(g.Columns)
	for _, t := range g.Tables {
		n += len(t.Columns)
	}
	return n
}

// UnmarshalYAML keeps mapping order so generated SQL is deterministic.
func (g *GroupBy) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		return node.Decode(&g.Columns)
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			var cols []ColumnRef
			val := node.Content[i+1]
			if val.Kind == yaml.ScalarNode {
				cols = []ColumnRef{Col(val.Value)}
			} else if err := val.Decode(&cols); err != nil {
				return err
			}
			g.Tables = append(g.Tables, TableColumns{Table: node.Content[i].Value, Columns: cols})
		}
		return nil
	case yaml.ScalarNode:
		if node.ShortTag() == "!!null" {
			return nil
		}
		g.Columns = []ColumnRef{Col(node.Value)}
		return nil
	}
	return fmt.Errorf("line %d: groupby must be a list or a table mapping", node.Line)
}

// TableFilter lists the template-variable filter columns owned by one table.
type TableFilter struct {
	Table   string
	Columns []string
}

// Filters is an ordered table -> columns mapping.
type Filters []TableFilter

// Tables returns the filter tables in declaration order.
func (f Filters) Tables() []string {
	tables := make([]string, 0, len(f))
	for _, tf := range f {
		tables = append(tables, tf.Table)
	}
	return tables
}

// UnmarshalYAML keeps mapping order so generated SQL is deterministic.
func (f *Filters) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: filters must be a table mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var cols []string
		if err := node.Content[i+1].Decode(&cols); err != nil {
			return fmt.Errorf("filters for %q: %w", node.Content[i].Value, err)
		}
		*f = append(*f, TableFilter{Table: node.Content[i].Value, Columns: cols})
	}
	return nil
}

// Distinct lists tables reduced to their latest row per key before use.
type Distinct []string

// Index returns the position of table in the list, or -1.
func (d Distinct) Index(table string) int {
	for i, t := range d {
		if t == table {
			return i
		}
	}
	return -1
}

// UnmarshalYAML accepts a list of tables, a single table name, or a bool.
// A bare `true` is resolved against the panel table by PanelSpec.
func (d *Distinct) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var tables []string
		if err := node.Decode(&tables); err != nil {
			return err
		}
		*d = tables
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!null":
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return err
			}
			if b {
				*d = Distinct{distinctSelf}
			}
		default:
			*d = Distinct{node.Value}
		}
	default:
		return fmt.Errorf("line %d: distinct must be a table list", node.Line)
	}
	return nil
}

const distinctSelf = "\x00self"

// PanelSpec is one declarative panel from a dashboard config file.
type PanelSpec struct {
	Title           string    `yaml:"title"`
	Description     string    `yaml:"description"`
	Table           string    `yaml:"table"`
	ChartType       ChartType `yaml:"chart_type"`
	Condition       string    `yaml:"condition"`
	GroupBy         GroupBy   `yaml:"groupby"`
	Filters         Filters   `yaml:"filters"`
	Distinct        Distinct  `yaml:"distinct"`
	Inputs          []string  `yaml:"inputs"`
	TempCondition   string    `yaml:"temp_condition"`
	RelHumCondition string    `yaml:"rel_hum_condition"`
	Content         string    `yaml:"content"`
	Unit            string    `yaml:"unit"`
}

// UnmarshalYAML resolves `distinct: true` to the panel's own table.
func (p *PanelSpec) UnmarshalYAML(node *yaml.Node) error {
	type plain PanelSpec
	var raw plain
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*p = PanelSpec(raw)
	p.ChartType = ChartType(strings.ToLower(strings.TrimSpace(string(p.ChartType))))
	for i, t := range p.Distinct {
		if t == distinctSelf {
			p.Distinct[i] = p.Table
		}
	}
	return nil
}

// DashboardSpec is one dashboard inside a config file.
type DashboardSpec struct {
	Title    string      `yaml:"title"`
	Tags     []string    `yaml:"tags"`
	Columns  int         `yaml:"columns"`
	TimeFrom string      `yaml:"time_from"`
	Refresh  string      `yaml:"refresh"`
	Panels   []PanelSpec `yaml:"panels"`
}

// ConfigFile is the content of one config_folders/*.yaml file. Each file
// maps to one Grafana folder.
type ConfigFile struct {
	Dashboards []DashboardSpec `yaml:"dashboards"`
	Alerts     []AlertSpec     `yaml:"alert"`
}
