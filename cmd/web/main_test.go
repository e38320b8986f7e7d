package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

func newTestDataset(t *testing.T) *services.Dataset {
	t.Helper()

	orders := []models.OrderRecord{
		{OrderID: "176558", Product: "USB-C Charging Cable", Quantity: 2, UnitPrice: 11.95, OrderTimestamp: "2019-04-19 08:46:00", PurchaseAddress: "917 1st St, Dallas, TX 75001"},
		{OrderID: "176559", Product: "Bose SoundSport Headphones", Quantity: 1, UnitPrice: 99.99, OrderTimestamp: "2019-04-07 22:30:00", PurchaseAddress: "682 Chestnut St, Boston, MA 02215"},
		{OrderID: "176560", Product: "Google Phone", Quantity: 1, UnitPrice: 600, OrderTimestamp: "2019-05-12 14:38:00", PurchaseAddress: "669 Spruce St, Los Angeles, CA 90001"},
	}

	records, err := services.Prepare(orders)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	return services.NewDataset(records)
}

func testConfig(rateLimit bool) *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			EnableRateLimit: rateLimit,
			RateLimitRPS:    1,
			RateLimitBurst:  2,
			AllowedOrigins:  []string{"http://localhost:8050"},
			TrustedProxies:  []string{"127.0.0.1"},
		},
	}
}

func testHandler(t *testing.T, rateLimit bool) http.Handler {
	t.Helper()
	cfg := testConfig(rateLimit)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newHandler(cfg, newTestDataset(t), middleware.NewRateLimiter(cfg.Security), logger)
}

// Integration tests for HTTP routes
func TestServer_Routes(t *testing.T) {
	handler := testHandler(t, false)

	tests := []struct {
		path           string
		expectedStatus int
		contentType    string
	}{
		{"/", http.StatusOK, "text/html"},
		{"/health", http.StatusOK, "application/json"},
		{"/admin/stats", http.StatusOK, "application/json"},
		{"/api/charts", http.StatusOK, "application/json"},
		{"/api/metrics", http.StatusOK, "application/json"},
		{"/api/periods", http.StatusOK, "application/json"},
		{"/sse/charts", http.StatusOK, "text/event-stream"},
		{"/api/charts?periods=13_2019", http.StatusBadRequest, "application/json"},
		{"/nonexistent", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			ct := w.Header().Get("Content-Type")
			if tt.contentType != "" && !strings.Contains(ct, tt.contentType) {
				t.Errorf("expected content-type %q, got %q", tt.contentType, ct)
			}

			if w.Header().Get("X-Request-ID") == "" {
				t.Error("expected X-Request-ID header")
			}
			if w.Header().Get("Content-Security-Policy") == "" {
				t.Error("expected security headers")
			}
		})
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	handler := testHandler(t, false)

	for _, path := range []string{"/", "/api/charts", "/sse/charts"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("expected status 405, got %d", w.Code)
			}
		})
	}
}

func TestServer_ChartsJSON(t *testing.T) {
	handler := testHandler(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/charts?metrics=orders,revenue,orders_revenue_by_city_state&periods=4_2019", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var resp struct {
		Success bool `json:"success"`
		Data    []struct {
			ID   string       `json:"id"`
			Rows []models.Row `json:"rows"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	if len(resp.Data) != 2 {
		t.Fatalf("expected 2 charts, got %d", len(resp.Data))
	}

	monthly := resp.Data[0].Rows
	if len(monthly) != 1 || monthly[0].Values[models.MeasureOrders] != 2 {
		t.Errorf("unexpected monthly rows %+v", monthly)
	}

	geo := resp.Data[1].Rows
	if len(geo) != 2 || geo[0].State != "MA" || geo[1].City != "Dallas" {
		t.Errorf("unexpected geo rows %+v", geo)
	}
}

func TestServer_Dashboard(t *testing.T) {
	handler := testHandler(t, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	body := w.Body.String()
	for _, want := range []string{
		"Sales Analysis",
		"Number of Orders",
		"Percentage of Product Sales",
		"April 2019",
		"May 2019",
		"3 orders loaded",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in dashboard", want)
		}
	}

	if cc := w.Header().Get("Cache-Control"); cc != cacheMaxAge {
		t.Errorf("expected cache-control %q, got %q", cacheMaxAge, cc)
	}
}

func TestServer_RateLimit(t *testing.T) {
	handler := testHandler(t, true)

	var last int
	for range 5 {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		last = w.Code
	}

	if last != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst, got %d", last)
	}
}

func TestLoadDataset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.csv")
	content := "Order ID,Product,Quantity Ordered,Price Each,Order Date,Purchase Address\n" +
		`176558,USB-C Charging Cable,2,11.95,2019-04-19 08:46:00,"917 1st St, Dallas, TX 75001"` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ds, err := loadDataset(config.DataConfig{CSVFile: path, Workers: 2, BatchSize: 10}, logger)
	if err != nil {
		t.Fatalf("loadDataset() error = %v", err)
	}
	if ds.Len() != 1 {
		t.Errorf("expected 1 record, got %d", ds.Len())
	}

	if _, err := loadDataset(config.DataConfig{CSVFile: filepath.Join(dir, "missing.csv")}, logger); err == nil {
		t.Error("expected error for missing file")
	}
}
