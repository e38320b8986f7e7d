package handlers

import (
	"errors"
	"strings"

	"sales-dashboard/internal/models"
)

// chartSignals is the Datastar signal store the dashboard sends with every
// filter change.
type chartSignals struct {
	Metrics []string `json:"metrics"`
	Periods []string `json:"periods"`
}

// parseSelection turns UI identifiers into a selection. Unknown metrics are
// dropped; malformed period tokens are an error.
func parseSelection(metrics, periods []string) (models.Selection, error) {
	window := make(models.Window, len(periods))
	var errs []error
	for _, token := range periods {
		if strings.TrimSpace(token) == "" {
			continue
		}
		p, err := models.ParsePeriod(token)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		window[p] = struct{}{}
	}
	if len(errs) > 0 {
		return models.Selection{}, errors.Join(errs...)
	}

	return models.Selection{
		Metrics: models.MetricsFromOptions(metrics),
		Window:  window,
	}, nil
}

// splitList accepts both repeated and comma-separated query values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func periodTokens(periods []models.Period) []string {
	tokens := make([]string, len(periods))
	for i, p := range periods {
		tokens[i] = p.Token()
	}
	return tokens
}
