package sqlbuilder

import (
	"fmt"
	"strings"

	"github.com/wcatz/hgcdb-dashboards/internal/model"
	"github.com/wcatz/hgcdb-dashboards/internal/schema"
)

// Generator produces the query for one chart type.
type Generator interface {
	GenerateSQL(b *Builder, panel model.PanelSpec) (string, error)
}

type generatorFunc func(q *query) (string, error)

func (f generatorFunc) GenerateSQL(b *Builder, panel model.PanelSpec) (string, error) {
	return f(&query{b: b, panel: panel})
}

var generators = map[model.ChartType]generatorFunc{
	model.ChartBar:        barChartSQL,
	model.ChartHistogram:  histogramSQL,
	model.ChartTimeseries: timeseriesSQL,
	model.ChartTable:      tableSQL,
	model.ChartGauge:      gaugeSQL,
	model.ChartStat:       statSQL,
	model.ChartPie:        pieChartSQL,
}

// GetGenerator returns the generator registered for chartType.
func GetGenerator(chartType model.ChartType) (Generator, error) {
	gen, ok := generators[chartType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedChart, chartType)
	}
	return gen, nil
}

// PanelSQL returns the query backing a panel. Text panels have none; IV
// curve panels are built by IVCurveSQL.
func (b *Builder) PanelSQL(panel model.PanelSpec) (string, error) {
	switch panel.ChartType {
	case model.ChartText:
		return "", nil
	case model.ChartXY:
		return b.IVCurveSQL(panel)
	}
	gen, err := GetGenerator(panel.ChartType)
	if err != nil {
		return "", err
	}
	return gen.GenerateSQL(b, panel)
}

func barChartSQL(q *query) (string, error) {
	var fields []string
	for _, p := range q.selectPairs() {
		if arg := selectArgument(p.table, p.ref, textCast, false); arg != "" {
			fields = append(fields, arg)
		}
	}
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: barchart needs at least one non-time column", ErrGroupByShape)
	}
	label := strings.Join(fields, " || '/' || ") + " AS label"
	return q.statement([]string{label, "COUNT(*) AS count"}, "GROUP BY label", "ORDER BY label")
}

func histogramSQL(q *query) (string, error) {
	pairs := q.selectPairs()
	if len(pairs) != 1 {
		return "", fmt.Errorf("%w: histogram needs exactly 1 column, got %d", ErrGroupByShape, len(pairs))
	}
	p := pairs[0]
	arg := selectArgument(p.table, p.ref, "", true)
	if arg == "" {
		arg = p.table + "." + p.ref.Name()
	}
	return q.statement([]string{arg})
}

func timeseriesSQL(q *query) (string, error) {
	g := q.panel.GroupBy
	if g.IsByTable() || len(g.Columns) != 2 {
		return "", fmt.Errorf("%w: timeseries needs exactly 2 columns, got %d", ErrGroupByShape, g.Len())
	}
	for _, c := range g.Columns {
		if c.IsCoalesce() {
			return "", fmt.Errorf("%w: timeseries does not support coalesced column %s", ErrGroupByShape, c)
		}
	}
	first, second := g.Columns[0].Name(), g.Columns[1].Name()
	if schema.IsTimeColumn(first) == schema.IsTimeColumn(second) {
		return "", fmt.Errorf("%w: timeseries needs exactly one time column, got %s and %s", ErrGroupByShape, first, second)
	}
	timeCol, valueCol := first, second
	if schema.IsTimeColumn(second) {
		timeCol, valueCol = second, first
	}

	t := q.target()
	timeRef := t + "." + timeCol
	selectList := []string{fmt.Sprintf("%s AT TIME ZONE '%s' AS date", timeRef, q.b.TimeZone)}
	var tail []string
	switch {
	case valueCol == schema.CountSentinel:
		selectList = append(selectList, "COUNT(*) AS count")
		tail = append(tail, "GROUP BY "+timeRef)
	case strings.HasPrefix(valueCol, listPrefix):
		selectList = append(selectList, arrayLength(t, valueCol)+" AS "+valueCol)
	default:
		selectList = append(selectList, t+"."+valueCol+" AS "+valueCol)
	}
	tail = append(tail, "ORDER BY "+timeRef)
	return q.statement(selectList, tail...)
}

func tableSQL(q *query) (string, error) {
	fields := selectFields(q, textCast)
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: table needs at least one non-time column", ErrGroupByShape)
	}
	return q.statement(fields)
}

func gaugeSQL(q *query) (string, error) {
	fields := selectFields(q, "")
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: gauge needs at least one non-time column", ErrGroupByShape)
	}
	return q.statement(fields)
}

func selectFields(q *query, cast string) []string {
	var fields []string
	for _, p := range q.selectPairs() {
		if arg := selectArgument(p.table, p.ref, cast, true); arg != "" {
			fields = append(fields, arg)
		}
	}
	return fields
}

func statSQL(q *query) (string, error) {
	return q.statement([]string{"COUNT(*) AS count"})
}

func pieChartSQL(q *query) (string, error) {
	shipped := q.target() + ".shipped_datetime"
	return q.statement([]string{
		fmt.Sprintf("COUNT(*) FILTER (WHERE %s IS NULL) AS not_shipped", shipped),
		fmt.Sprintf("COUNT(*) FILTER (WHERE %s IS NOT NULL) AS shipped", shipped),
	})
}
