package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertMetricLine checks that the Prometheus output contains a metric matching
// the given name, partial label pattern, and value. Uses a regex so the extra
// OTel scope labels injected by the exporter don't break the match.
func assertMetricLine(t *testing.T, output, name, labels, value string) {
	t.Helper()
	pattern := name + `\{[^}]*` + labels + `[^}]*\} ` + value
	assert.Regexp(t, pattern, output)
}

func scrape(t *testing.T, provider *Provider) string {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	provider.Handler().ServeHTTP(w, req)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNewBusinessMetrics(t *testing.T) {
	provider, err := NewProvider("auditchain")
	require.NoError(t, err)

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "auditchain")

	require.NoError(t, err)
	assert.NotNil(t, bm)
}

func TestBusinessMetrics_RecordOperation(t *testing.T) {
	provider, err := NewProvider("auditchain")
	require.NoError(t, err)

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "auditchain")
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordOperation(ctx, "audit", "event_record", "success")
	bm.RecordOperation(ctx, "audit", "event_record", "success")
	bm.RecordOperation(ctx, "audit", "chain_verify", "invalid")
	bm.RecordOperation(ctx, "retention", "purge_run", "error")

	output := scrape(t, provider)
	assertMetricLine(t, output, "auditchain_operations_total",
		`domain="audit",operation="event_record",status="success"`, "2")
	assertMetricLine(t, output, "auditchain_operations_total",
		`domain="audit",operation="chain_verify",status="invalid"`, "1")
	assertMetricLine(t, output, "auditchain_operations_total",
		`domain="retention",operation="purge_run",status="error"`, "1")
}

func TestBusinessMetrics_RecordDuration(t *testing.T) {
	provider, err := NewProvider("auditchain")
	require.NoError(t, err)

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "auditchain")
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordDuration(ctx, "audit", "event_record", 25*time.Millisecond, "success")
	bm.RecordDuration(ctx, "audit", "chain_verify", 2*time.Second, "success")

	output := scrape(t, provider)
	assert.Contains(t, output, "auditchain_operation_duration_seconds")
}

func TestNoOpBusinessMetrics(t *testing.T) {
	bm := NewNoOpBusinessMetrics()
	ctx := context.Background()

	// Must be safe to call with no provider configured.
	bm.RecordOperation(ctx, "audit", "event_record", "success")
	bm.RecordDuration(ctx, "audit", "event_record", time.Millisecond, "success")
}
