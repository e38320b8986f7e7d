package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

const cacheControl = "public, max-age=300"

type APIHandlers struct {
	dataset *services.Dataset
	logger  *slog.Logger
}

func NewAPIHandlers(dataset *services.Dataset, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		dataset: dataset,
		logger:  logger,
	}
}

type periodOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Month int    `json:"month"`
	Year  int    `json:"year"`
}

// HandleCharts aggregates for ?metrics=...&periods=.... A missing parameter
// falls back to the dashboard defaults; a present but empty one means an
// empty selection.
func (h *APIHandlers) HandleCharts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	metrics := models.DefaultMetricOptions
	if query.Has("metrics") {
		metrics = splitList(query["metrics"])
	}

	periods := periodTokens(h.dataset.Periods())
	if query.Has("periods") {
		periods = splitList(query["periods"])
	}

	requestID := observability.GetRequestID(r.Context())
	sel, err := parseSelection(metrics, periods)
	if err != nil {
		errors.WriteError(w, h.logger, errors.ValidationWrap(err, "invalid periods"), requestID)
		return
	}

	_, span := observability.StartSpan(r.Context(), "aggregate")
	charts := h.dataset.Aggregate(sel)
	span.SetTag("metrics", strconv.Itoa(len(sel.Metrics)))
	span.SetTag("periods", strconv.Itoa(len(sel.Window)))
	span.SetTag("charts", strconv.Itoa(len(charts)))
	span.Finish()
	observability.RequestLogger(r.Context(), h.logger).Debug("charts aggregated", span.Attrs()...)

	errors.WriteSuccessWithHeaders(w, charts, map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, models.MetricOptions, map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandlePeriods(w http.ResponseWriter, r *http.Request) {
	periods := h.dataset.Periods()
	options := make([]periodOption, len(periods))
	for i, p := range periods {
		options[i] = periodOption{
			Value: p.Token(),
			Label: p.Label(),
			Month: p.Month,
			Year:  p.Year,
		}
	}

	errors.WriteSuccessWithHeaders(w, options, map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
		"records":   h.dataset.Len(),
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.dataset.Stats())
}
