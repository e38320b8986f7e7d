package services

import (
	"slices"
	"time"

	"sales-dashboard/internal/models"
)

// Dataset is the prepared, read-only order table the dashboard aggregates
// over. It is built once at startup and shared by every request.
type Dataset struct {
	records  []models.DerivedRecord
	periods  []models.Period
	products []string
	cities   int
	loadedAt time.Time
	source   string
}

func NewDataset(records []models.DerivedRecord) *Dataset {
	periodSet := make(map[models.Period]struct{})
	productSet := make(map[string]struct{})
	citySet := make(map[string]struct{})

	for _, r := range records {
		periodSet[r.Period()] = struct{}{}
		productSet[r.Product] = struct{}{}
		citySet[r.City+"|"+r.State] = struct{}{}
	}

	periods := make([]models.Period, 0, len(periodSet))
	for p := range periodSet {
		periods = append(periods, p)
	}
	slices.SortFunc(periods, models.Period.Compare)

	products := make([]string, 0, len(productSet))
	for p := range productSet {
		products = append(products, p)
	}
	slices.Sort(products)

	return &Dataset{
		records:  slices.Clone(records),
		periods:  periods,
		products: products,
		cities:   len(citySet),
		loadedAt: time.Now(),
	}
}

// Records returns the prepared rows. Callers must not modify the slice.
func (d *Dataset) Records() []models.DerivedRecord {
	return d.records
}

func (d *Dataset) Len() int {
	return len(d.records)
}

// Periods lists the distinct (month, year) pairs present, oldest first.
func (d *Dataset) Periods() []models.Period {
	return slices.Clone(d.periods)
}

func (d *Dataset) Products() []string {
	return slices.Clone(d.products)
}

func (d *Dataset) LoadedAt() time.Time {
	return d.loadedAt
}

func (d *Dataset) Source() string {
	return d.source
}

// Aggregate runs the metric aggregator over the whole dataset.
func (d *Dataset) Aggregate(sel models.Selection) []models.ChartSpec {
	return Aggregate(d.records, sel)
}

// Utility method for monitoring
func (d *Dataset) Stats() map[string]any {
	stats := map[string]any{
		"record_count": len(d.records),
		"products":     len(d.products),
		"cities":       d.cities,
		"periods":      len(d.periods),
		"loaded_at":    d.loadedAt,
		"source":       d.source,
	}
	if len(d.periods) > 0 {
		stats["first_period"] = d.periods[0].Label()
		stats["last_period"] = d.periods[len(d.periods)-1].Label()
	}
	return stats
}
