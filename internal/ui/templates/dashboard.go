package templates

import (
	"context"
	"encoding/json"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"sales-dashboard/internal/models"
)

type Choice struct {
	Value    string
	Label    string
	Selected bool
}

type DashboardData struct {
	Metrics     []Choice
	Periods     []Choice
	RecordCount int
}

// signals is the initial Datastar store: the selected filter values plus the
// local _charts signal the SSE endpoint fills in.
func (d DashboardData) signals() (string, error) {
	store := map[string]any{
		"metrics": selectedValues(d.Metrics),
		"periods": selectedValues(d.Periods),
		"_charts": []models.ChartSpec{},
	}
	b, err := json.Marshal(store)
	return string(b), err
}

func selectedValues(choices []Choice) []string {
	values := make([]string, 0, len(choices))
	for _, c := range choices {
		if c.Selected {
			values = append(values, c.Value)
		}
	}
	return values
}

// NewDashboardData builds the filter options. Every metric option is offered
// with the defaults preselected; every period in the dataset is offered and
// preselected.
func NewDashboardData(periods []models.Period, recordCount int) DashboardData {
	defaults := make(map[string]bool)
	for _, v := range models.DefaultMetricOptions {
		defaults[v] = true
	}

	data := DashboardData{RecordCount: recordCount}
	for _, m := range models.MetricOptions {
		data.Metrics = append(data.Metrics, Choice{Value: m.Value, Label: m.Label, Selected: defaults[m.Value]})
	}
	for _, p := range periods {
		data.Periods = append(data.Periods, Choice{Value: p.Token(), Label: p.Label(), Selected: true})
	}
	return data
}

type dashboardView struct {
	DashboardData
	Signals string
}

func Dashboard(data DashboardData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		signals, err := data.signals()
		if err != nil {
			return err
		}
		return dashboardTemplate.Execute(w, dashboardView{DashboardData: data, Signals: signals})
	})
}

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Sales Analysis</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"></script>
<script src="https://cdn.jsdelivr.net/npm/plotly.js-dist-min@2.35.2/plotly.min.js"></script>
<style>
body { font-family: Roboto, "Helvetica Neue", Arial, sans-serif; margin: 0; background: #fafafa; color: #212121; }
.layout { display: grid; grid-template-columns: minmax(260px, 1fr) 2fr; gap: 24px; padding: 20px; }
.filters h2 { margin: 20px 0; }
.filters p { margin: 20px 0 5px; }
.filters select { width: 100%; min-height: 9em; }
.periods label { display: block; }
.chart-card { background: #fff; border-radius: 4px; box-shadow: 0 1px 3px rgba(0,0,0,.2); margin-bottom: 20px; padding: 12px 16px; }
.chart { min-height: 420px; }
.modern-table { border-collapse: collapse; width: 100%; font-size: 0.85em; }
.modern-table th, .modern-table td { border-bottom: 1px solid #e0e0e0; padding: 4px 8px; text-align: left; }
.empty-state, .notice { color: #757575; font-style: italic; }
.subtitle { color: #757575; font-size: 0.9em; }
</style>
</head>
<body>
<div class="layout" data-signals="{{.Signals}}" data-effect="window.renderCharts($_charts)">
<div class="filters" data-on:change="@get('/sse/charts')" data-init="@get('/sse/charts')">
<h2>Sales Analysis</h2>
<p class="subtitle">{{.RecordCount}} orders loaded</p>
<p>Select the metrics to analyze:</p>
<select id="metrics-dropdown" multiple data-bind="metrics">
{{range .Metrics}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>
{{end}}</select>
<p>Select the months to analyze:</p>
<div id="months-years-checklist" class="periods">
{{range .Periods}}<label><input type="checkbox" value="{{.Value}}" data-bind="periods"{{if .Selected}} checked{{end}}> {{.Label}}</label>
{{end}}</div>
</div>
<div>
<div id="graphs-container"><p class="empty-state">Loading…</p></div>
</div>
</div>
<script>
window.renderCharts = function (charts) {
  if (!window.Plotly || !Array.isArray(charts)) return;
  const month = r => r.month;
  const col = (rows, key) => rows.map(r => key in r ? r[key] : (r.values || {})[key]);
  const bySeries = (rows, field) => rows.reduce((acc, r) => { (acc[r[field]] = acc[r[field]] || []).push(r); return acc; }, {});
  const topojsonURL = "https://cdn.jsdelivr.net/npm/sane-topojson@4.0.0/dist/";
  for (const c of charts) {
    const el = document.getElementById(c.id);
    if (!el) continue;
    const e = c.encoding, rows = c.rows;
    let traces = [], layout = { title: { text: c.title }, xaxis: { title: { text: e.x_title || "" } }, yaxis: { title: { text: e.y_title || "" } } };
    switch (c.kind) {
    case "dual_axis":
      traces = [
        { type: "bar", name: "Number of Orders", x: rows.map(month), y: col(rows, e.y) },
        { type: "scatter", mode: "lines+markers", name: "Monthly Revenue", x: rows.map(month), y: col(rows, e.y2), yaxis: "y2" },
      ];
      layout.yaxis2 = { title: { text: e.y2_title || "" }, overlaying: "y", side: "right" };
      break;
    case "line":
    case "grouped_bar":
      for (const [name, group] of Object.entries(bySeries(rows, e.series))) {
        traces.push(c.kind === "line"
          ? { type: "scatter", mode: "lines", name, x: col(group, e.x), y: col(group, e.y) }
          : { type: "bar", name, x: col(group, e.x), y: col(group, e.y) });
      }
      if (c.kind === "grouped_bar") layout.barmode = "group";
      break;
    case "bar":
      traces = [{ type: "bar", x: col(rows, e.x), y: col(rows, e.y) }];
      break;
    case "geo_scatter":
      const size = col(rows, e.size), max = Math.max(1, ...size);
      traces = [{
        type: "scattergeo", locationmode: e.location_mode, locations: col(rows, e.location),
        text: col(rows, e.hover), hoverinfo: "text",
        marker: { color: col(rows, e.color), colorscale: "Plasma", showscale: true, size: size.map(s => 6 + 34 * s / max) },
      }];
      layout.geo = { scope: "usa" };
      break;
    }
    Plotly.react(el, traces, layout, { responsive: true, topojsonURL });
  }
};
</script>
</body>
</html>
`))
