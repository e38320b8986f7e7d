package models

import "time"

type OrderRecord struct {
	OrderID         string
	Product         string
	Quantity        int
	UnitPrice       float64
	OrderTimestamp  string
	PurchaseAddress string
}

// DerivedRecord is an OrderRecord plus the fields every aggregation groups on.
type DerivedRecord struct {
	OrderRecord
	OrderDate time.Time
	Month     int
	Year      int
	Revenue   float64
	City      string
	State     string
}

func (r DerivedRecord) Period() Period {
	return Period{Month: r.Month, Year: r.Year}
}
