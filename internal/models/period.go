package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is one (month, year) entry of a window.
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// ParsePeriod reads the "<month>_<year>" token used by the UI, e.g. "1_2019".
func ParsePeriod(token string) (Period, error) {
	m, y, ok := strings.Cut(strings.TrimSpace(token), "_")
	if !ok {
		return Period{}, fmt.Errorf("period %q: expected <month>_<year>", token)
	}

	month, err := strconv.Atoi(m)
	if err != nil {
		return Period{}, fmt.Errorf("period %q: month: %w", token, err)
	}
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("period %q: month must be between 1 and 12", token)
	}

	year, err := strconv.Atoi(y)
	if err != nil {
		return Period{}, fmt.Errorf("period %q: year: %w", token, err)
	}

	return Period{Month: month, Year: year}, nil
}

func (p Period) Token() string {
	return fmt.Sprintf("%d_%d", p.Month, p.Year)
}

func (p Period) Label() string {
	return fmt.Sprintf("%s %d", time.Month(p.Month), p.Year)
}

// Compare orders periods chronologically.
func (p Period) Compare(o Period) int {
	if p.Year != o.Year {
		return p.Year - o.Year
	}
	return p.Month - o.Month
}

// Window is the set of periods a selection restricts aggregation to.
type Window map[Period]struct{}

func NewWindow(periods ...Period) Window {
	w := make(Window, len(periods))
	for _, p := range periods {
		w[p] = struct{}{}
	}
	return w
}

func (w Window) Contains(p Period) bool {
	_, ok := w[p]
	return ok
}

// Single returns the only period of a one-entry window.
func (w Window) Single() (Period, bool) {
	if len(w) != 1 {
		return Period{}, false
	}
	for p := range w {
		return p, true
	}
	return Period{}, false
}
