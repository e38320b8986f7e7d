package services

import (
	"fmt"
	"strings"
	"time"

	"sales-dashboard/internal/models"
)

const orderDateLayout = "2006-01-02 15:04:05"

// MalformedInputError reports a CSV row that cannot be turned into a derived
// record. Row is 1-based with the header counted as row 1 when the error comes
// from LoadCSV, and the 0-based slice index when it comes from Prepare.
type MalformedInputError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input at row %d: %s %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// Prepare derives month, year, revenue, city and state for every record. The
// input is not modified and the output has the same length and order.
func Prepare(records []models.OrderRecord) ([]models.DerivedRecord, error) {
	out := make([]models.DerivedRecord, len(records))
	for i, rec := range records {
		d, err := derive(rec)
		if err != nil {
			err.Row = i
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func derive(rec models.OrderRecord) (models.DerivedRecord, *MalformedInputError) {
	date, err := time.Parse(orderDateLayout, rec.OrderTimestamp)
	if err != nil {
		return models.DerivedRecord{}, &MalformedInputError{Field: "order_timestamp", Value: rec.OrderTimestamp, Err: err}
	}

	city, state, err := parseAddress(rec.PurchaseAddress)
	if err != nil {
		return models.DerivedRecord{}, &MalformedInputError{Field: "purchase_address", Value: rec.PurchaseAddress, Err: err}
	}

	return models.DerivedRecord{
		OrderRecord: rec,
		OrderDate:   date,
		Month:       int(date.Month()),
		Year:        date.Year(),
		Revenue:     float64(rec.Quantity) * rec.UnitPrice,
		City:        city,
		State:       state,
	}, nil
}

// parseAddress reads "street, city, ST zip": the city is the second
// comma-separated segment, the state the second space-separated token of the
// third.
func parseAddress(address string) (city, state string, err error) {
	segments := strings.Split(address, ",")
	if len(segments) < 3 {
		return "", "", fmt.Errorf("expected at least 3 comma-separated segments, got %d", len(segments))
	}

	city = strings.TrimSpace(segments[1])
	if city == "" {
		return "", "", fmt.Errorf("empty city")
	}

	tokens := strings.Split(segments[2], " ")
	if len(tokens) < 2 {
		return "", "", fmt.Errorf("missing state code")
	}
	state = tokens[1]
	if !isStateCode(state) {
		return "", "", fmt.Errorf("state code %q is not two letters", state)
	}

	return city, state, nil
}

func isStateCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, c := range s {
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}
