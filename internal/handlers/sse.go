package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

// chartsSignal is local to the page (leading underscore) so it is not sent
// back with every request.
const chartsSignal = "_charts"

type SSEHandlers struct {
	dataset *services.Dataset
	logger  *slog.Logger
}

func NewSSEHandlers(dataset *services.Dataset, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		dataset: dataset,
		logger:  logger,
	}
}

func (h *SSEHandlers) render(r *http.Request, c templ.Component) (string, error) {
	var buf strings.Builder
	err := c.Render(r.Context(), &buf)
	return strings.TrimSpace(buf.String()), err
}

// HandleCharts recomputes every selected chart for the signals the page sent
// and patches the chart container plus the _charts signal.
func (h *SSEHandlers) HandleCharts(w http.ResponseWriter, r *http.Request) {
	logger := observability.RequestLogger(r.Context(), h.logger)

	var signals chartSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		logger.Warn("read signals", "error", err)
		http.Error(w, "invalid signals", http.StatusBadRequest)
		return
	}

	sse := datastar.NewSSE(w, r)

	sel, err := parseSelection(signals.Metrics, signals.Periods)
	if err != nil {
		logger.Warn("invalid selection", "error", err)
		html, renderErr := h.render(r, templates.Notice("Invalid month selection: "+err.Error()))
		if renderErr != nil {
			logger.Error("render notice", "error", renderErr)
			return
		}
		sse.PatchElements(html)
		return
	}

	_, span := observability.StartSpan(r.Context(), "aggregate")
	charts := h.dataset.Aggregate(sel)
	span.SetTag("metrics", strconv.Itoa(len(sel.Metrics)))
	span.SetTag("periods", strconv.Itoa(len(sel.Window)))
	span.SetTag("charts", strconv.Itoa(len(charts)))
	span.Finish()
	logger.Debug("charts aggregated", span.Attrs()...)

	html, err := h.render(r, templates.ChartGrid(charts))
	if err != nil {
		logger.Error("render chart grid", "error", err)
		return
	}
	sse.PatchElements(html)

	jsonData, err := json.Marshal(map[string]any{
		chartsSignal: nonEmpty(charts),
	})
	if err != nil {
		logger.Error("marshal charts signal", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// nonEmpty drops charts with no rows; the page has no element to draw them in.
func nonEmpty(charts []models.ChartSpec) []models.ChartSpec {
	out := make([]models.ChartSpec, 0, len(charts))
	for _, c := range charts {
		if !c.Empty() {
			out = append(out, c)
		}
	}
	return out
}
