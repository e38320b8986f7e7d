package models

// MetricKind identifies one chart the aggregator can produce. The declaration
// order is the order in which charts are emitted.
type MetricKind int

const (
	OrdersAndRevenue MetricKind = iota
	RevenueByProduct
	OrdersRevenueByGeo
	UnitsSold
	PercentageSales
)

var MetricKinds = []MetricKind{
	OrdersAndRevenue,
	RevenueByProduct,
	OrdersRevenueByGeo,
	UnitsSold,
	PercentageSales,
}

func (k MetricKind) String() string {
	switch k {
	case OrdersAndRevenue:
		return "orders_and_revenue"
	case RevenueByProduct:
		return "revenue_by_product"
	case OrdersRevenueByGeo:
		return "orders_revenue_by_city_state"
	case UnitsSold:
		return "units_sold"
	case PercentageSales:
		return "percentage_sales"
	default:
		return "unknown"
	}
}

func (k MetricKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Metric option identifiers offered by the dashboard's multi-select.
const (
	OptionOrders                   = "orders"
	OptionRevenue                  = "revenue"
	OptionRevenueByProduct         = "revenue_by_product"
	OptionOrdersRevenueByCityState = "orders_revenue_by_city_state"
	OptionUnitsSold                = "units_sold"
	OptionPercentageSales          = "percentage_sales"
)

type MetricOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var MetricOptions = []MetricOption{
	{Value: OptionOrders, Label: "Number of Orders"},
	{Value: OptionRevenue, Label: "Revenue"},
	{Value: OptionRevenueByProduct, Label: "Revenue by Product"},
	{Value: OptionOrdersRevenueByCityState, Label: "Orders & Revenue by City & State"},
	{Value: OptionUnitsSold, Label: "Units Sold by Product"},
	{Value: OptionPercentageSales, Label: "Percentage of Product Sales"},
}

var DefaultMetricOptions = []string{OptionOrders, OptionRevenue}

// MetricSet is the set of metric kinds a selection activates.
type MetricSet map[MetricKind]struct{}

func (s MetricSet) Has(k MetricKind) bool {
	_, ok := s[k]
	return ok
}

// MetricsFromOptions maps UI option identifiers onto metric kinds. "orders"
// and "revenue" only count when selected together; unknown identifiers are
// dropped.
func MetricsFromOptions(options []string) MetricSet {
	picked := make(map[string]bool, len(options))
	for _, o := range options {
		picked[o] = true
	}

	set := make(MetricSet)
	if picked[OptionOrders] && picked[OptionRevenue] {
		set[OrdersAndRevenue] = struct{}{}
	}
	if picked[OptionRevenueByProduct] {
		set[RevenueByProduct] = struct{}{}
	}
	if picked[OptionOrdersRevenueByCityState] {
		set[OrdersRevenueByGeo] = struct{}{}
	}
	if picked[OptionUnitsSold] {
		set[UnitsSold] = struct{}{}
	}
	if picked[OptionPercentageSales] {
		set[PercentageSales] = struct{}{}
	}
	return set
}

// Selection is what the user picked: metrics to chart and the window to
// include. Either may be empty.
type Selection struct {
	Metrics MetricSet
	Window  Window
}
