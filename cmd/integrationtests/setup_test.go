package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	bidding "bidwar/internal/biddingService"
	"bidwar/internal/metrics"
	"bidwar/internal/repository"
	"bidwar/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// t0 is the instant every test environment starts at
var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// TestEnv bundles a router with the service and fake clock behind it
type TestEnv struct {
	Router  *gin.Engine
	Service *bidding.BiddingService
	Clock   clockwork.FakeClock
}

// SetupTestEnv initializes the router on top of repo, driven by a fake clock.
// A nil repo selects the in-memory repository.
func SetupTestEnv(t *testing.T, repo repository.AuctionDB) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if repo == nil {
		repo = repository.NewMemoryRepo()
	}

	clock := clockwork.NewFakeClockAt(t0)
	registry := prometheus.NewRegistry()
	service := bidding.NewBiddingService(repo,
		bidding.WithClock(clock),
		bidding.WithMetrics(metrics.New(registry)),
	)
	t.Cleanup(service.Close)

	return &TestEnv{
		Router:  server.SetupRouter(service, registry),
		Service: service,
		Clock:   clock,
	}
}

// ExecuteRequest executes an HTTP request and returns the response recorder.
func ExecuteRequest(t *testing.T, router *gin.Engine, method, url string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ExecuteRequestAndParse executes an HTTP request on the given router and
// parses the JSON envelope of the response
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := ExecuteRequest(t, router, method, url, reqBody)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		err := json.Unmarshal(w.Body.Bytes(), &resp)
		if err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}

	return resp, w
}

// Data returns the data object of a parsed envelope
func Data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok, "response carries no data object: %v", resp)
	return data
}

// WaitForState polls the state endpoint until the project reaches want
func WaitForState(t *testing.T, router *gin.Engine, projectID, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		resp, w := ExecuteRequestAndParse(t, router, http.MethodGet, "/projects/"+projectID+"/state", nil)
		if w.Code != http.StatusOK {
			return false
		}
		return Data(t, resp)["state"] == want
	}, 2*time.Second, 5*time.Millisecond, "project %s never reached %s", projectID, want)
}
