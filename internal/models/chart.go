package models

type ChartKind string

const (
	ChartDualAxis   ChartKind = "dual_axis"
	ChartLine       ChartKind = "line"
	ChartGeoScatter ChartKind = "geo_scatter"
	ChartBar        ChartKind = "bar"
	ChartGroupedBar ChartKind = "grouped_bar"
)

// Measure names a numeric column of an aggregated row.
type Measure string

const (
	MeasureOrders        Measure = "orders"
	MeasureRevenue       Measure = "revenue"
	MeasureQuantity      Measure = "quantity"
	MeasureRevenueShare  Measure = "revenue_pct"
	MeasureQuantityShare Measure = "quantity_pct"
)

// Row is one group of an aggregated table. Key fields a chart does not group
// on are left zero.
type Row struct {
	Year    int                 `json:"year,omitempty"`
	Month   int                 `json:"month,omitempty"`
	Product string              `json:"product,omitempty"`
	City    string              `json:"city,omitempty"`
	State   string              `json:"state,omitempty"`
	Values  map[Measure]float64 `json:"values"`
}

// Encoding maps row fields onto visual channels.
type Encoding struct {
	X            string  `json:"x,omitempty"`
	Y            Measure `json:"y,omitempty"`
	Y2           Measure `json:"y2,omitempty"`
	Series       string  `json:"series,omitempty"`
	Location     string  `json:"location,omitempty"`
	LocationMode string  `json:"location_mode,omitempty"`
	Color        Measure `json:"color,omitempty"`
	Size         Measure `json:"size,omitempty"`
	Hover        string  `json:"hover,omitempty"`
	XTitle       string  `json:"x_title,omitempty"`
	YTitle       string  `json:"y_title,omitempty"`
	Y2Title      string  `json:"y2_title,omitempty"`
}

// ChartSpec is one renderable visualization: an aggregated table, a chart
// hint and a title.
type ChartSpec struct {
	ID       string     `json:"id"`
	Metric   MetricKind `json:"metric"`
	Kind     ChartKind  `json:"kind"`
	Title    string     `json:"title"`
	Encoding Encoding   `json:"encoding"`
	Rows     []Row      `json:"rows"`
}

func (c ChartSpec) Empty() bool {
	return len(c.Rows) == 0
}
