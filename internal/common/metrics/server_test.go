package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ztfalerts/internal/testutil"

	"github.com/gin-gonic/gin"
)

func TestRouterHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	testutil.AssertEqual(t, rec.Code, http.StatusOK)
	testutil.AssertTrue(t, strings.Contains(rec.Body.String(), `"ok"`), "unexpected body: "+rec.Body.String())
	testutil.AssertTrue(t, rec.Header().Get("X-Request-Id") != "", "request id header should be set")
}

func TestRouterMetricsExposesCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	AlertsTotal.WithLabelValues("ztf_test", OutcomeProcessed).Inc()

	rec := httptest.NewRecorder()
	NewRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	testutil.AssertEqual(t, rec.Code, http.StatusOK)
	testutil.AssertTrue(t, strings.Contains(rec.Body.String(), `ztf_alerts_total{outcome="processed",topic="ztf_test"}`), "alerts counter missing")
}

func TestServeDisabledWithoutAddr(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	testutil.AssertNil(t, Serve(ctx, ServerConfig{}))
}
