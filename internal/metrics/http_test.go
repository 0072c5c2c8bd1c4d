package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Success_RecordHTTPMetrics", func(t *testing.T) {
		provider, err := NewProvider("auditchain")
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, provider.Shutdown(context.Background()))
		}()

		router := gin.New()
		router.Use(HTTPMetricsMiddleware(provider.MeterProvider(), "auditchain"))
		router.GET("/v1/chains/:chain_id/state", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"chain_id": c.Param("chain_id")})
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/chains/patient-42/state", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		output := scrape(t, provider)
		// Route pattern, not the concrete path, keeps cardinality bounded.
		assertMetricLine(t, output, "auditchain_http_requests_total",
			`method="GET",path="/v1/chains/:chain_id/state",status_code="200"`, "1")
	})

	t.Run("Success_UnmatchedRouteLabeledUnknown", func(t *testing.T) {
		provider, err := NewProvider("auditchain")
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, provider.Shutdown(context.Background()))
		}()

		router := gin.New()
		router.Use(HTTPMetricsMiddleware(provider.MeterProvider(), "auditchain"))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/nope", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)

		output := scrape(t, provider)
		assertMetricLine(t, output, "auditchain_http_requests_total",
			`method="GET",path="unknown",status_code="404"`, "1")
	})
}

func TestRoutePattern(t *testing.T) {
	assert.Equal(t, "unknown", routePattern(""))
	assert.Equal(t, "/v1/chains/:chain_id/events", routePattern("/v1/chains/:chain_id/events"))
}
