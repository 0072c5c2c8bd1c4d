// Package integration provides end-to-end integration tests for the audit
// chain API. Tests all endpoints against both PostgreSQL and MySQL databases.
package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/auditchain/internal/app"
	auditDTO "github.com/allisson/auditchain/internal/audit/http/dto"
	"github.com/allisson/auditchain/internal/config"
	retentionDTO "github.com/allisson/auditchain/internal/retention/http/dto"
	"github.com/allisson/auditchain/internal/testutil"
)

// integrationTestContext holds all dependencies and state for integration testing.
type integrationTestContext struct {
	container *app.Container
	db        *sql.DB
	server    *httptest.Server
	dbDriver  string
}

// makeRequest performs an HTTP request and returns the response and body. An
// actorID, when set, travels in the X-Actor-Id header used by the retention
// administration endpoints.
func (ctx *integrationTestContext) makeRequest(
	t *testing.T,
	method, path string,
	body interface{},
	actorID string,
) (*http.Response, []byte) {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ctx.server.URL+path, bodyReader)
	require.NoError(t, err, "failed to create request")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if actorID != "" {
		req.Header.Set("X-Actor-Id", actorID)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err, "failed to perform request")

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")
	if closeErr := resp.Body.Close(); closeErr != nil {
		t.Logf("Warning: failed to close response body: %v", closeErr)
	}

	return resp, respBody
}

// integrationTestConfig returns a configuration suitable for integration runs.
func integrationTestConfig(dbDriver, dsn string) *config.Config {
	return &config.Config{
		DBDriver:             dbDriver,
		DBConnectionString:   dsn,
		DBMaxOpenConnections: 10,
		DBMaxIdleConnections: 5,
		DBConnMaxLifetime:    time.Hour,
		ServerHost:           "localhost",
		ServerPort:           8080,
		LogLevel:             "error",
		AppendMaxRetries:     5,
		AppendRetryBaseDelay: 10 * time.Millisecond,
		VerifyBatchSize:      100,
		PurgeInterval:        time.Hour,
		PurgeBatchSize:       100,
	}
}

// setupIntegrationTest initializes all components for integration testing.
func setupIntegrationTest(t *testing.T, dbDriver string) *integrationTestContext {
	t.Helper()

	gin.SetMode(gin.TestMode)

	var db *sql.DB
	var dsn string
	if dbDriver == "postgres" {
		db = testutil.SetupPostgresDB(t)
		dsn = testutil.GetPostgresTestDSN()
	} else {
		db = testutil.SetupMySQLDB(t)
		dsn = testutil.GetMySQLTestDSN()
	}

	container := app.NewContainer(integrationTestConfig(dbDriver, dsn))

	httpSrv, err := container.HTTPServer(context.Background())
	require.NoError(t, err, "failed to get HTTP server")

	handler := httpSrv.GetHandler()
	require.NotNil(t, handler, "handler should not be nil")

	testServer := httptest.NewServer(handler)

	t.Logf("Integration test setup complete for %s", dbDriver)

	return &integrationTestContext{
		container: container,
		db:        db,
		server:    testServer,
		dbDriver:  dbDriver,
	}
}

// teardownIntegrationTest cleans up all resources.
func teardownIntegrationTest(t *testing.T, ctx *integrationTestContext) {
	t.Helper()

	if ctx.server != nil {
		ctx.server.Close()
	}

	if ctx.container != nil {
		if err := ctx.container.Shutdown(context.Background()); err != nil {
			t.Logf("Warning: container shutdown error: %v", err)
		}
	}

	if ctx.db != nil {
		testutil.TeardownDB(t, ctx.db)
	}

	t.Logf("Integration test teardown complete for %s", ctx.dbDriver)
}

// TestIntegration_Health_BasicChecks validates infrastructure health and readiness
// endpoints against both PostgreSQL and MySQL.
func TestIntegration_Health_BasicChecks(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testCases := []struct {
		name     string
		dbDriver string
	}{
		{"PostgreSQL", "postgres"},
		{"MySQL", "mysql"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			t.Run("01_HealthCheck", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/health", nil, "")
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response map[string]string
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "healthy", response["status"])
			})

			t.Run("02_ReadinessCheck", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/ready", nil, "")
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response struct {
					Status string `json:"status"`
				}
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "ready", response.Status)
			})
		})
	}
}

// TestIntegration_Chain_CompleteFlow tests the audit chain lifecycle end to end:
// appending events, reading the tail, verifying integrity, and exporting.
func TestIntegration_Chain_CompleteFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testCases := []struct {
		name     string
		dbDriver string
	}{
		{"PostgreSQL", "postgres"},
		{"MySQL", "mysql"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			var (
				chainID          = "patient-42"
				basePath         = "/v1/chains/" + chainID
				payload          = []byte(`{"diagnosis":"redacted"}`)
				payloadBase64    = base64.StdEncoding.EncodeToString(payload)
				lastCurrentHash  string
				zeroGenesisHash  = strings.Repeat("0", 64)
				recordedOutcomes = []string{"success", "success", "denied"}
			)

			// [1/6] Append three events and check block assignment and hash linkage.
			t.Run("01_RecordEvents", func(t *testing.T) {
				previousHash := zeroGenesisHash

				for i, outcome := range recordedOutcomes {
					requestBody := auditDTO.RecordEventRequest{
						EventType:    "phi_accessed",
						ActorID:      "clinician-7",
						ResourceType: "medical_record",
						ResourceID:   "rec-42",
						Action:       "view",
						Outcome:      outcome,
					}
					if i == 0 {
						requestBody.SensitivePayload = payloadBase64
					}

					resp, body := ctx.makeRequest(t, http.MethodPost, basePath+"/events", requestBody, "")
					assert.Equal(t, http.StatusCreated, resp.StatusCode)

					var response auditDTO.EventResponse
					err := json.Unmarshal(body, &response)
					require.NoError(t, err)
					assert.Equal(t, chainID, response.ChainID)
					assert.Equal(t, int64(i), response.BlockNumber)
					assert.Equal(t, previousHash, response.PreviousHash,
						"each block must link to the previous block's hash")
					assert.NotEmpty(t, response.CurrentHash)

					_, err = hex.DecodeString(response.CurrentHash)
					require.NoError(t, err, "current hash should be hex encoded")

					previousHash = response.CurrentHash
					lastCurrentHash = response.CurrentHash
				}
			})

			// [2/6] List events newest-first.
			t.Run("02_ListEvents", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, basePath+"/events", nil, "")
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response auditDTO.ListEventsResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				require.Len(t, response.Data, 3)
				assert.Equal(t, int64(2), response.Data[0].BlockNumber, "list should be newest-first")
				assert.Equal(t, int64(0), response.Data[2].BlockNumber)
			})

			// [3/6] Chain state reflects the latest append.
			t.Run("03_ChainState", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, basePath+"/state", nil, "")
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response auditDTO.ChainStateResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, chainID, response.ChainID)
				assert.Equal(t, int64(2), response.LastBlockNumber)
				assert.Equal(t, lastCurrentHash, response.LastHash)
			})

			// [4/6] Verification over the full range passes.
			t.Run("04_VerifyChain", func(t *testing.T) {
				resp, body := ctx.makeRequest(
					t, http.MethodGet, basePath+"/verify?from_block=0&to_block=2", nil, "")
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response auditDTO.VerificationReportResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.True(t, response.Valid)
				assert.Equal(t, int64(3), response.BlocksChecked)
				assert.Empty(t, response.BrokenBlocks)
			})

			// [5/6] Export streams NDJSON without the encrypted payload.
			t.Run("05_ExportChain", func(t *testing.T) {
				resp, body := ctx.makeRequest(
					t, http.MethodGet, basePath+"/export?from_block=0&to_block=2", nil, "")
				assert.Equal(t, http.StatusOK, resp.StatusCode)
				assert.Contains(t, resp.Header.Get("Content-Type"), "application/x-ndjson")

				lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
				require.Len(t, lines, 3)

				for _, line := range lines {
					var row map[string]any
					require.NoError(t, json.Unmarshal([]byte(line), &row))
					assert.NotContains(t, row, "encrypted_payload",
						"payload ciphertext must never leave the database")
					assert.NotContains(t, row, "sensitive_payload")
				}
				assert.NotContains(t, string(body), payloadBase64)
			})

			// [6/6] Unknown chains return 404.
			t.Run("06_UnknownChainState", func(t *testing.T) {
				resp, _ := ctx.makeRequest(t, http.MethodGet, "/v1/chains/no-such-chain/state", nil, "")
				assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			})
		})
	}
}

// TestIntegration_Retention_CompleteFlow tests retention policy and legal hold
// administration plus a purge dry run, all through the HTTP API.
func TestIntegration_Retention_CompleteFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testCases := []struct {
		name     string
		dbDriver string
	}{
		{"PostgreSQL", "postgres"},
		{"MySQL", "mysql"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			const actorID = "compliance-admin"

			// [1/7] Set a retention policy.
			t.Run("01_SetPolicy", func(t *testing.T) {
				requestBody := retentionDTO.SetPolicyRequest{
					MinRetentionSeconds: 30 * 24 * 3600,
				}

				resp, body := ctx.makeRequest(
					t, http.MethodPut, "/v1/retention-policies/phi_accessed", requestBody, actorID)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response retentionDTO.PolicyResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "phi_accessed", response.EventType)
				assert.Equal(t, int64(30*24*3600), response.MinRetentionSeconds)
				assert.False(t, response.LegalHold)
			})

			// [2/7] Policy mutations require an acting administrator.
			t.Run("02_SetPolicyWithoutActor", func(t *testing.T) {
				requestBody := retentionDTO.SetPolicyRequest{
					MinRetentionSeconds: 3600,
				}

				resp, _ := ctx.makeRequest(
					t, http.MethodPut, "/v1/retention-policies/login", requestBody, "")
				assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			})

			// [3/7] Read the policy back.
			t.Run("03_GetPolicy", func(t *testing.T) {
				resp, body := ctx.makeRequest(
					t, http.MethodGet, "/v1/retention-policies/phi_accessed", nil, "")
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response retentionDTO.PolicyResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "phi_accessed", response.EventType)
			})

			// [4/7] List policies.
			t.Run("04_ListPolicies", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/retention-policies", nil, "")
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response retentionDTO.ListPoliciesResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.NotEmpty(t, response.Data)
			})

			// [5/7] Place and release a legal hold.
			t.Run("05_LegalHoldLifecycle", func(t *testing.T) {
				requestBody := retentionDTO.SetLegalHoldRequest{
					Reason: "litigation case 2026-0142",
				}

				resp, body := ctx.makeRequest(
					t, http.MethodPut, "/v1/legal-holds/rec-42", requestBody, actorID)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response retentionDTO.LegalHoldResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "rec-42", response.ResourceID)
				assert.Equal(t, "litigation case 2026-0142", response.Reason)

				resp, respBody := ctx.makeRequest(
					t, http.MethodDelete, "/v1/legal-holds/rec-42", nil, actorID)
				assert.Equal(t, http.StatusNoContent, resp.StatusCode)
				assert.Empty(t, respBody)
			})

			// [6/7] Releasing a hold that does not exist returns 404.
			t.Run("06_ReleaseUnknownHold", func(t *testing.T) {
				resp, _ := ctx.makeRequest(
					t, http.MethodDelete, "/v1/legal-holds/no-such-resource", nil, actorID)
				assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			})

			// [7/7] A purge dry run reports eligibility without deleting anything.
			t.Run("07_PurgeDryRun", func(t *testing.T) {
				requestBody := retentionDTO.RunPurgeRequest{DryRun: true}

				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/purge-runs", requestBody, actorID)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response retentionDTO.PurgeResultResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.True(t, response.DryRun)
				assert.Empty(t, response.RunID, "dry runs are not persisted")
			})
		})
	}
}
