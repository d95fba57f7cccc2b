package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sieapi/gateway/internal/metrics"
)

func TestMetrics_RecordsRoutePatternAndRenderedStatus(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		_ = c.JSON(http.StatusTeapot, map[string]string{"error": err.Error()})
	}
	e.Use(Metrics())
	e.GET("/things/:id", func(c echo.Context) error {
		if c.Param("id") == "bad" {
			return errors.New("boom")
		}
		return c.NoContent(http.StatusOK)
	})

	okCounter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/things/:id", "200")
	errCounter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/things/:id", "418")
	okBefore := testutil.ToFloat64(okCounter)
	errBefore := testutil.ToFloat64(errCounter)

	for _, path := range []string{"/things/1", "/things/2", "/things/bad"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if path == "/things/bad" && rec.Code != http.StatusTeapot {
			t.Fatalf("error must be rendered once by the error handler, got %d", rec.Code)
		}
	}

	if got := testutil.ToFloat64(okCounter) - okBefore; got != 2 {
		t.Fatalf("expected 2 ok requests, got %v", got)
	}
	if got := testutil.ToFloat64(errCounter) - errBefore; got != 1 {
		t.Fatalf("expected 1 failed request, got %v", got)
	}
}
