package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medassist-ai/internal/backend"
	httpmiddleware "github.com/wolfman30/medassist-ai/internal/http/middleware"
	"github.com/wolfman30/medassist-ai/internal/medical"
	"github.com/wolfman30/medassist-ai/internal/observability/metrics"
	"github.com/wolfman30/medassist-ai/internal/proxy"
	"github.com/wolfman30/medassist-ai/internal/transport"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

const secret = "router-secret"

func newBackendServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewBackendMetrics(reg)
	tokens, err := backend.NewTokenIssuer(secret, time.Hour)
	require.NoError(t, err)
	h := backend.NewHandler(backend.HandlerConfig{
		Users:     backend.NewInMemoryUserRepository(),
		Tokens:    tokens,
		Reports:   backend.NewReportGenerator(nil, "", logging.Discard(), m),
		Directory: backend.NewDirectory(nil, backend.Coordinates{Latitude: 22.3133, Longitude: 114.2258}),
		Logger:    logging.Discard(),
		Metrics:   m,
	})
	srv := httptest.NewServer(NewBackend(&BackendConfig{
		Logger:             logging.Discard(),
		Handler:            h,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: []string{"*"},
		RateLimiter:        httpmiddleware.NewRateLimiter(100, 100),
		JWTSecret:          secret,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(string(data)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestBackendRoutes(t *testing.T) {
	srv := newBackendServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/test")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"not found"}`, string(body))

	resp = post(t, srv.URL+"/report", "", map[string]string{"input_text": "fever"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBackendFlowWithTransportClient(t *testing.T) {
	srv := newBackendServer(t)
	ctx := t.Context()

	var token string
	client, err := transport.New(transport.Config{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Tokens:  tokenFunc(func() string { return token }),
	})
	require.NoError(t, err)

	require.NoError(t, client.Ping(ctx))
	require.NoError(t, client.Register(ctx, transport.RegisterRequest{
		Username:  "alice",
		Password:  transport.HashPassword("pw"),
		BasicInfo: medical.BasicInfo{Age: 58, Gender: "male"},
	}))

	err = client.Register(ctx, transport.RegisterRequest{Username: "alice", Password: transport.HashPassword("pw")})
	var apiErr *transport.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)

	token, err = client.Login(ctx, transport.LoginRequest{Username: "alice", Password: transport.HashPassword("pw")})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	report, err := client.SubmitSymptomReport(ctx, "chest pain since the morning")
	require.NoError(t, err)
	assert.Equal(t, 58, report.BasicInfo.Age)
	assert.Equal(t, "emergency department", report.Department())

	hospital, err := client.SearchHospital(ctx, report.Department())
	require.NoError(t, err)
	assert.Equal(t, "United Christian Hospital", hospital.HospitalName)
	assert.Equal(t, "2379 9611", hospital.Contact)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	metricsBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(metricsBody), "medassist_backend_reports_total")
}

type tokenFunc func() string

func (f tokenFunc) Token(_ context.Context) (string, error) { return f(), nil }

func TestProxyRoutes(t *testing.T) {
	var gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "https://upstream.example")
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer upstream.Close()

	fwd, err := proxy.New(proxy.Config{UpstreamBaseURL: upstream.URL, Logger: logging.Discard()})
	require.NoError(t, err)
	srv := httptest.NewServer(NewProxy(&ProxyConfig{
		Logger:             logging.Discard(),
		Forwarder:          fwd,
		CORSAllowedOrigins: []string{"https://app.example"},
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/test", nil)
	req.Header.Set("Origin", "https://app.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"ok"}`, string(body))
	assert.Equal(t, "/test", gotPath)
	assert.Equal(t, "https://app.example", resp.Header.Get("Access-Control-Allow-Origin"))

	req, _ = http.NewRequest(http.MethodOptions, srv.URL+"/api/login", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/other")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
