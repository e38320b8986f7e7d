package services

import (
	"cmp"
	"slices"

	"sales-dashboard/internal/models"
)

// metricHandler builds one chart from rows already restricted to the window.
type metricHandler func(rows []models.DerivedRecord, window models.Window) models.ChartSpec

var metricHandlers = map[models.MetricKind]metricHandler{
	models.OrdersAndRevenue:   ordersAndRevenue,
	models.RevenueByProduct:   revenueByProduct,
	models.OrdersRevenueByGeo: ordersRevenueByGeo,
	models.UnitsSold:          unitsSold,
	models.PercentageSales:    percentageSales,
}

// Aggregate filters data to the selection's window and produces one chart per
// selected metric, in MetricKinds order. It never fails: an empty window
// yields charts with no rows and an empty metric set yields no charts.
func Aggregate(data []models.DerivedRecord, sel models.Selection) []models.ChartSpec {
	filtered := filterWindow(data, sel.Window)

	charts := make([]models.ChartSpec, 0, len(sel.Metrics))
	for _, kind := range models.MetricKinds {
		if !sel.Metrics.Has(kind) {
			continue
		}
		handler, ok := metricHandlers[kind]
		if !ok {
			continue
		}
		charts = append(charts, handler(filtered, sel.Window))
	}
	return charts
}

func filterWindow(data []models.DerivedRecord, window models.Window) []models.DerivedRecord {
	if len(window) == 0 {
		return nil
	}
	out := make([]models.DerivedRecord, 0, len(data))
	for _, r := range data {
		if window.Contains(r.Period()) {
			out = append(out, r)
		}
	}
	return out
}

func ordersAndRevenue(rows []models.DerivedRecord, _ models.Window) models.ChartSpec {
	groups := groupBy(rows, func(r models.DerivedRecord) groupKey {
		return groupKey{Year: r.Year, Month: r.Month}
	})

	return models.ChartSpec{
		ID:     "orders-revenue-graph",
		Metric: models.OrdersAndRevenue,
		Kind:   models.ChartDualAxis,
		Title:  "Number of Orders and Revenue per Month",
		Encoding: models.Encoding{
			X:       "month",
			Y:       models.MeasureOrders,
			Y2:      models.MeasureRevenue,
			XTitle:  "Month",
			YTitle:  "Number of Orders",
			Y2Title: "Monthly Revenue",
		},
		Rows: groups.rows(func(a *accumulator) map[models.Measure]float64 {
			return map[models.Measure]float64{
				models.MeasureOrders:  float64(a.orders),
				models.MeasureRevenue: a.revenue,
			}
		}),
	}
}

func revenueByProduct(rows []models.DerivedRecord, _ models.Window) models.ChartSpec {
	groups := groupBy(rows, func(r models.DerivedRecord) groupKey {
		return groupKey{Year: r.Year, Month: r.Month, Product: r.Product}
	})

	return models.ChartSpec{
		ID:     "revenue-by-product-graph",
		Metric: models.RevenueByProduct,
		Kind:   models.ChartLine,
		Title:  "Monthly Revenue by Product",
		Encoding: models.Encoding{
			X:      "month",
			Y:      models.MeasureRevenue,
			Series: "product",
			XTitle: "Month",
			YTitle: "Revenue",
		},
		Rows: groups.rows(func(a *accumulator) map[models.Measure]float64 {
			return map[models.Measure]float64{models.MeasureRevenue: a.revenue}
		}),
	}
}

func ordersRevenueByGeo(rows []models.DerivedRecord, _ models.Window) models.ChartSpec {
	groups := groupBy(rows, func(r models.DerivedRecord) groupKey {
		return groupKey{Year: r.Year, Month: r.Month, City: r.City, State: r.State}
	})

	return models.ChartSpec{
		ID:     "orders-revenue-by-city-state-graph",
		Metric: models.OrdersRevenueByGeo,
		Kind:   models.ChartGeoScatter,
		Title:  "Orders & Revenue by City & State",
		Encoding: models.Encoding{
			Location:     "state",
			LocationMode: "USA-states",
			Color:        models.MeasureRevenue,
			Size:         models.MeasureOrders,
			Hover:        "city",
		},
		Rows: groups.rows(func(a *accumulator) map[models.Measure]float64 {
			return map[models.Measure]float64{
				models.MeasureOrders:  float64(a.orders),
				models.MeasureRevenue: a.revenue,
			}
		}),
	}
}

// unitsSold collapses to a per-product bar chart when the window is a single
// period and otherwise plots one line per product across months.
func unitsSold(rows []models.DerivedRecord, window models.Window) models.ChartSpec {
	quantity := func(a *accumulator) map[models.Measure]float64 {
		return map[models.Measure]float64{models.MeasureQuantity: float64(a.quantity)}
	}

	if period, ok := window.Single(); ok {
		groups := groupBy(rows, func(r models.DerivedRecord) groupKey {
			return groupKey{Product: r.Product}
		})
		return models.ChartSpec{
			ID:     "units-sold-graph",
			Metric: models.UnitsSold,
			Kind:   models.ChartBar,
			Title:  "Units Sold for " + period.Label(),
			Encoding: models.Encoding{
				X:      "product",
				Y:      models.MeasureQuantity,
				XTitle: "Product",
				YTitle: "Quantity Ordered",
			},
			Rows: groups.rows(quantity),
		}
	}

	groups := groupBy(rows, func(r models.DerivedRecord) groupKey {
		return groupKey{Year: r.Year, Month: r.Month, Product: r.Product}
	})
	return models.ChartSpec{
		ID:     "units-sold-graph",
		Metric: models.UnitsSold,
		Kind:   models.ChartLine,
		Title:  "Units Sold per Month by Product",
		Encoding: models.Encoding{
			X:      "month",
			Y:      models.MeasureQuantity,
			Series: "product",
			XTitle: "Month",
			YTitle: "Quantity Ordered",
		},
		Rows: groups.rows(quantity),
	}
}

// percentageSales reports each product's share of its month's revenue and
// quantity. A month whose total is zero gets 0% for every product.
func percentageSales(rows []models.DerivedRecord, _ models.Window) models.ChartSpec {
	groups := groupBy(rows, func(r models.DerivedRecord) groupKey {
		return groupKey{Year: r.Year, Month: r.Month, Product: r.Product}
	})

	type monthTotal struct {
		revenue  float64
		quantity int
	}
	totals := make(map[models.Period]*monthTotal)
	for k, a := range groups {
		p := models.Period{Month: k.Month, Year: k.Year}
		t := totals[p]
		if t == nil {
			t = &monthTotal{}
			totals[p] = t
		}
		t.revenue += a.revenue
		t.quantity += a.quantity
	}

	out := make([]models.Row, 0, len(groups))
	for k, a := range groups {
		t := totals[models.Period{Month: k.Month, Year: k.Year}]
		row := k.row()
		row.Values = map[models.Measure]float64{
			models.MeasureRevenue:       a.revenue,
			models.MeasureQuantity:      float64(a.quantity),
			models.MeasureRevenueShare:  share(a.revenue, t.revenue),
			models.MeasureQuantityShare: share(float64(a.quantity), float64(t.quantity)),
		}
		out = append(out, row)
	}
	slices.SortFunc(out, compareRows)

	return models.ChartSpec{
		ID:     "percentage-sales-graph",
		Metric: models.PercentageSales,
		Kind:   models.ChartGroupedBar,
		Title:  "Percentage of Product Sales by Revenue",
		Encoding: models.Encoding{
			X:      "month",
			Y:      models.MeasureRevenueShare,
			Series: "product",
			XTitle: "Month",
			YTitle: "Percentage Revenue",
		},
		Rows: out,
	}
}

func share(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}

type groupKey struct {
	Year    int
	Month   int
	Product string
	City    string
	State   string
}

func (k groupKey) row() models.Row {
	return models.Row{
		Year:    k.Year,
		Month:   k.Month,
		Product: k.Product,
		City:    k.City,
		State:   k.State,
	}
}

type accumulator struct {
	orders   int
	revenue  float64
	quantity int
}

type groupTable map[groupKey]*accumulator

func groupBy(rows []models.DerivedRecord, key func(models.DerivedRecord) groupKey) groupTable {
	g := make(groupTable)
	for _, r := range rows {
		k := key(r)
		a := g[k]
		if a == nil {
			a = &accumulator{}
			g[k] = a
		}
		a.orders++
		a.revenue += r.Revenue
		a.quantity += r.Quantity
	}
	return g
}

// rows flattens the groups into a table sorted by its keys.
func (g groupTable) rows(measures func(*accumulator) map[models.Measure]float64) []models.Row {
	out := make([]models.Row, 0, len(g))
	for k, a := range g {
		row := k.row()
		row.Values = measures(a)
		out = append(out, row)
	}
	slices.SortFunc(out, compareRows)
	return out
}

func compareRows(a, b models.Row) int {
	return cmp.Or(
		cmp.Compare(a.Year, b.Year),
		cmp.Compare(a.Month, b.Month),
		cmp.Compare(a.Product, b.Product),
		cmp.Compare(a.State, b.State),
		cmp.Compare(a.City, b.City),
	)
}
