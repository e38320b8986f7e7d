package templates

import (
	"context"
	"html/template"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"sales-dashboard/internal/models"
)

// MaxTableRows caps the data table shown under each chart.
const MaxTableRows = 50

var chartGridTemplate = template.Must(template.New("chartGrid").Parse(`
<div id="graphs-container">
{{if not .Charts}}<p class="empty-state">Nothing to display</p>{{end}}
{{range .Charts}}<section class="chart-card" id="card-{{.ID}}">
<h3>{{.Title}}</h3>
<div class="chart" id="{{.ID}}"></div>
<details>
<summary>Data ({{.Total}} rows{{if .Truncated}}, first {{len .Rows}} shown{{end}})</summary>
<table class="modern-table">
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
</details>
</section>
{{end}}</div>`))

var noticeTemplate = template.Must(template.New("notice").Parse(`
<div id="graphs-container"><p class="notice">{{.}}</p></div>`))

type chartView struct {
	ID        string
	Title     string
	Columns   []string
	Rows      [][]string
	Total     int
	Truncated bool
}

type chartGridData struct {
	Charts []chartView
}

// ChartGrid renders the chart container: one card per non-empty chart with a
// target element for the client-side plot and a data table. When nothing has
// rows it shows "Nothing to display".
func ChartGrid(charts []models.ChartSpec) templ.Component {
	data := chartGridData{}
	for _, c := range charts {
		if c.Empty() {
			continue
		}
		data.Charts = append(data.Charts, newChartView(c))
	}

	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return chartGridTemplate.Execute(w, data)
	})
}

// Notice replaces the chart container with a single message.
func Notice(message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return noticeTemplate.Execute(w, message)
	})
}

type column struct {
	title string
	value func(models.Row) string
}

var keyColumns = []struct {
	column
	present func(models.Row) bool
}{
	{column{"Year", func(r models.Row) string { return strconv.Itoa(r.Year) }}, func(r models.Row) bool { return r.Year != 0 }},
	{column{"Month", func(r models.Row) string { return strconv.Itoa(r.Month) }}, func(r models.Row) bool { return r.Month != 0 }},
	{column{"Product", func(r models.Row) string { return r.Product }}, func(r models.Row) bool { return r.Product != "" }},
	{column{"City", func(r models.Row) string { return r.City }}, func(r models.Row) bool { return r.City != "" }},
	{column{"State", func(r models.Row) string { return r.State }}, func(r models.Row) bool { return r.State != "" }},
}

var measureColumns = []struct {
	measure models.Measure
	title   string
	format  func(float64) string
}{
	{models.MeasureOrders, "Orders", formatCount},
	{models.MeasureQuantity, "Quantity Ordered", formatCount},
	{models.MeasureRevenue, "Revenue", formatMoney},
	{models.MeasureRevenueShare, "Percentage Revenue", formatPercent},
	{models.MeasureQuantityShare, "Percentage Quantity", formatPercent},
}

func newChartView(c models.ChartSpec) chartView {
	var cols []column
	for _, k := range keyColumns {
		for _, r := range c.Rows {
			if k.present(r) {
				cols = append(cols, k.column)
				break
			}
		}
	}
	for _, m := range measureColumns {
		if _, ok := c.Rows[0].Values[m.measure]; !ok {
			continue
		}
		cols = append(cols, column{m.title, func(r models.Row) string { return m.format(r.Values[m.measure]) }})
	}

	view := chartView{
		ID:        c.ID,
		Title:     c.Title,
		Total:     len(c.Rows),
		Truncated: len(c.Rows) > MaxTableRows,
	}
	for _, col := range cols {
		view.Columns = append(view.Columns, col.title)
	}

	rows := c.Rows
	if view.Truncated {
		rows = rows[:MaxTableRows]
	}
	for _, r := range rows {
		cells := make([]string, len(cols))
		for i, col := range cols {
			cells[i] = col.value(r)
		}
		view.Rows = append(view.Rows, cells)
	}
	return view
}

func formatCount(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}

func formatMoney(v float64) string {
	return "$" + strconv.FormatFloat(v, 'f', 2, 64)
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}
