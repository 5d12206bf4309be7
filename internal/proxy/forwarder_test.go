package proxy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/medassist-ai/internal/observability/metrics"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

func newForwarder(t *testing.T, upstream string) *Forwarder {
	t.Helper()
	f, err := New(Config{
		UpstreamBaseURL: upstream,
		Timeout:         time.Second,
		Logger:          logging.Discard(),
		Metrics:         metrics.NewProxyMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	return f
}

func TestNewValidatesUpstream(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	_, err = New(Config{UpstreamBaseURL: "not a url"})
	require.Error(t, err)

	f, err := New(Config{UpstreamBaseURL: "http://103.194.106.195:8000/", Prefix: "api/"})
	require.NoError(t, err)
	assert.Equal(t, "/api", f.Prefix())
}

func TestRewrite(t *testing.T) {
	f := newForwarder(t, "http://upstream.test")
	cases := map[string]struct {
		want string
		ok   bool
	}{
		"/api/login":        {"/login", true},
		"/api/report/extra": {"/report/extra", true},
		"/api":              {"/", true},
		"/apix/login":       {"", false},
		"/login":            {"", false},
	}
	for in, tc := range cases {
		got, ok := f.Rewrite(in)
		assert.Equal(t, tc.ok, ok, in)
		assert.Equal(t, tc.want, got, in)
	}
}

func TestServeHTTP_RelaysRequestAndResponse(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/login", r.URL.Path)
		assert.Equal(t, "debug=1", r.URL.RawQuery)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Keep-Alive"))
		assert.NotEmpty(t, r.Header.Get("X-Forwarded-For"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"username":"alice","password":"x"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token":"abc"}`))
	}))
	defer upstream.Close()

	f := newForwarder(t, upstream.URL)
	req := httptest.NewRequest(http.MethodPost, "/api/login?debug=1", strings.NewReader(`{"username":"alice","password":"x"}`))
	req.Header.Set("Authorization", "Bearer tok")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Keep-Alive", "timeout=5")
	rec := httptest.NewRecorder()

	f.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, `{"token":"abc"}`, rec.Body.String())
	assert.Equal(t, "yes", rec.Header().Get("X-Upstream"))
}

func TestServeHTTP_RelaysUpstreamErrorsVerbatim(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"field required"}`))
	}))
	defer upstream.Close()

	f := newForwarder(t, upstream.URL)
	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/report", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, `{"detail":"field required"}`, rec.Body.String())
}

func TestServeHTTP_UnreachableUpstreamIs500(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	addr := upstream.URL
	upstream.Close()

	f := newForwarder(t, addr)
	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/test", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, string(FailureBody), rec.Body.String())
}

func TestServeHTTP_OversizedUpstreamBodyIs500(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		size := 16
		if r.URL.Path == "/big" {
			size = 17
		}
		_, _ = io.WriteString(w, strings.Repeat("x", size))
	}))
	defer upstream.Close()

	f, err := New(Config{
		UpstreamBaseURL: upstream.URL,
		MaxBodyBytes:    16,
		Logger:          logging.Discard(),
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fits", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, strings.Repeat("x", 16), rec.Body.String())

	rec = httptest.NewRecorder()
	f.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/big", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, string(FailureBody), rec.Body.String())
}

func TestServeHTTP_PathOutsidePrefixIs404(t *testing.T) {
	f := newForwarder(t, "http://upstream.test")
	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeHTTP_KeepsMiddlewareCORSHeaders(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "http://upstream-only")
		w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	f := newForwarder(t, upstream.URL)
	rec := httptest.NewRecorder()
	rec.Header().Set("Access-Control-Allow-Origin", "https://app.example")
	f.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/test", nil))

	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestForward_HonoursContextCancellation(t *testing.T) {
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer upstream.Close()
	defer close(release)

	f := newForwarder(t, upstream.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	resp := f.Forward(ctx, Request{Method: http.MethodGet, Path: "/api/test"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
