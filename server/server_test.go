package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"genai-gateway/gateway"
	"genai-gateway/gateway/response"
	"genai-gateway/gateway/upstream"
	"genai-gateway/middleware/ratelimit"
	"genai-gateway/middleware/ratelimit/infra"
	"genai-gateway/telemetry/metrics"
)

type harness struct {
	handler  http.Handler
	clock    *time.Time
	upstream *atomic.Int32
}

func newHarness(t *testing.T, upstreamStatus int, upstreamBody, credential string) *harness {
	t.Helper()

	calls := &atomic.Int32{}
	fake := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(upstreamStatus)
		_, _ = w.Write([]byte(upstreamBody))
	}))
	t.Cleanup(fake.Close)

	client := upstream.NewClient(fake.URL, "test-model", time.Second)
	client.HTTPClient = fake.Client()

	tr, err := response.NewTranslator("en", time.Minute)
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	h := &harness{clock: &now, upstream: calls}

	collector := metrics.NewCollector(prometheus.NewRegistry())
	srv := New(Options{
		GatewayPath: "/",
		Translator:  tr,
		Gateway: &gateway.Handler{
			Upstream:   client,
			Credential: credential,
			Translator: tr,
			Observer:   collector,
		},
		RateLimit: ratelimit.Options{
			Store: infra.NewStore(30, time.Minute),
			Stats: collector,
			Clock: func() time.Time { return *h.clock },
		},
		Metrics:     collector.Handler(),
		MetricsPath: "/metrics",
	})
	h.handler = srv.Handler()
	return h
}

func (h *harness) advance(d time.Duration) { *h.clock = h.clock.Add(d) }

func (h *harness) send(method, ip, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

const okBody = `{"contents": []}`

func TestThirtyFirstRequestInWindowIsRejected(t *testing.T) {
	h := newHarness(t, http.StatusOK, `{"foo":"bar"}`, "k")

	for i := 0; i < 30; i++ {
		rec := h.send(http.MethodPost, "1.1.1.1", okBody)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		h.advance(time.Second)
	}

	// t=30s
	rec := h.send(http.MethodPost, "1.1.1.1", okBody)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "Too many requests. Please try again in a minute.", errorOf(t, rec))

	// t=61s
	h.advance(31 * time.Second)
	rec = h.send(http.MethodPost, "1.1.1.1", okBody)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 31, h.upstream.Load())
}

func TestIdentitiesDoNotShareQuota(t *testing.T) {
	h := newHarness(t, http.StatusOK, `{}`, "k")

	for i := 0; i < 30; i++ {
		require.Equal(t, http.StatusOK, h.send(http.MethodPost, "1.1.1.1", okBody).Code)
	}
	require.Equal(t, http.StatusOK, h.send(http.MethodPost, "2.2.2.2", okBody).Code)
}

func TestRateLimitIsCheckedBeforeMethod(t *testing.T) {
	h := newHarness(t, http.StatusOK, `{}`, "k")

	for i := 0; i < 30; i++ {
		h.send(http.MethodPost, "1.1.1.1", okBody)
	}

	rec := h.send(http.MethodGet, "1.1.1.1", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Empty(t, rec.Header().Get("Allow"))

	rec = h.send(http.MethodGet, "3.3.3.3", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "POST", rec.Header().Get("Allow"))
}

func TestRejectedMethodsStillConsumeQuota(t *testing.T) {
	h := newHarness(t, http.StatusOK, `{}`, "k")

	for i := 0; i < 30; i++ {
		require.Equal(t, http.StatusMethodNotAllowed, h.send(http.MethodGet, "4.4.4.4", "").Code)
	}
	require.Equal(t, http.StatusTooManyRequests, h.send(http.MethodPost, "4.4.4.4", okBody).Code)
}

func TestMissingHeaderSharesUnknownBucket(t *testing.T) {
	h := newHarness(t, http.StatusOK, `{}`, "k")

	for i := 0; i < 30; i++ {
		require.Equal(t, http.StatusOK, h.send(http.MethodPost, "", okBody).Code)
	}
	require.Equal(t, http.StatusTooManyRequests, h.send(http.MethodPost, "", okBody).Code)
}

func TestInvalidBodyYieldsGeneric400(t *testing.T) {
	h := newHarness(t, http.StatusOK, `{}`, "k")

	rec := h.send(http.MethodPost, "1.1.1.1", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid request.", errorOf(t, rec))

	rec = h.send(http.MethodPost, "1.1.1.1", `{"contents": "not-an-array"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, h.upstream.Load())
}

func TestUpstreamOutcomes(t *testing.T) {
	h := newHarness(t, http.StatusTooManyRequests, `{"error":{"message":"quota exceeded"}}`, "k")
	rec := h.send(http.MethodPost, "1.1.1.1", okBody)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "The AI service is overloaded. Please try again later.", errorOf(t, rec))
	require.NotContains(t, rec.Body.String(), "quota")

	h = newHarness(t, http.StatusServiceUnavailable, `{}`, "k")
	rec = h.send(http.MethodPost, "1.1.1.1", okBody)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Failed to call the AI service.", errorOf(t, rec))

	h = newHarness(t, http.StatusOK, `{"foo":"bar"}`, "k")
	rec = h.send(http.MethodPost, "1.1.1.1", okBody)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `{"foo":"bar"}`, rec.Body.String())
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "no-store, no-cache, must-revalidate", rec.Header().Get("Cache-Control"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestMissingCredentialNeverCallsUpstream(t *testing.T) {
	h := newHarness(t, http.StatusOK, `{}`, "")

	rec := h.send(http.MethodPost, "1.1.1.1", okBody)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Server configuration error.", errorOf(t, rec))
	require.Zero(t, h.upstream.Load())
}

func TestOperationalEndpoints(t *testing.T) {
	h := newHarness(t, http.StatusOK, `{}`, "k")
	h.send(http.MethodPost, "1.1.1.1", okBody)

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `genai_gateway_requests_total{outcome="upstream_success"} 1`)
	require.Contains(t, rec.Body.String(), `genai_gateway_ratelimit_decisions_total{decision="allowed"} 1`)

	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
