// Package proxy relays /api/* requests to a fixed upstream origin.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wolfman30/medassist-ai/internal/observability/metrics"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

const (
	defaultPrefix  = "/api"
	defaultTimeout = 100 * time.Second
	maxBodyBytes   = 10 << 20
)

// ErrResponseTooLarge is logged when an upstream body exceeds the limit.
var ErrResponseTooLarge = errors.New("proxy: upstream response exceeds body limit")

// FailureBody is returned with a 500 when the upstream cannot be reached.
var FailureBody = []byte(`{"error":"proxy request failed"}`)

var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Config controls the forwarder.
type Config struct {
	UpstreamBaseURL string
	Prefix          string
	Timeout         time.Duration
	MaxBodyBytes    int64
	HTTPClient      *http.Client
	Logger          *logging.Logger
	Metrics         *metrics.ProxyMetrics
}

// Request is a transport-neutral inbound request.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
	ClientIP string
	Host     string
	Proto    string
}

// Response is the relayed upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Forwarder strips the prefix and relays requests upstream.
type Forwarder struct {
	upstream *url.URL
	prefix   string
	timeout  time.Duration
	maxBody  int64
	client   *http.Client
	logger   *logging.Logger
	metrics  *metrics.ProxyMetrics
}

// New validates cfg and builds a Forwarder.
func New(cfg Config) (*Forwarder, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.UpstreamBaseURL), "/")
	if raw == "" {
		return nil, errors.New("proxy: upstream base URL is required")
	}
	upstream, err := url.Parse(raw)
	if err != nil || upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("proxy: invalid upstream base URL %q", raw)
	}
	prefix := "/" + strings.Trim(strings.TrimSpace(cfg.Prefix), "/")
	if prefix == "/" {
		prefix = defaultPrefix
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = maxBodyBytes
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Forwarder{
		upstream: upstream,
		prefix:   prefix,
		timeout:  timeout,
		maxBody:  maxBody,
		client:   client,
		logger:   logger,
		metrics:  cfg.Metrics,
	}, nil
}

// Prefix returns the path prefix this forwarder serves.
func (f *Forwarder) Prefix() string { return f.prefix }

// Rewrite maps an inbound path to the upstream path. ok is false for paths
// outside the prefix.
func (f *Forwarder) Rewrite(path string) (string, bool) {
	if path == f.prefix {
		return "/", true
	}
	if strings.HasPrefix(path, f.prefix+"/") {
		return path[len(f.prefix):], true
	}
	return "", false
}

// Forward relays req. Failures to reach the upstream become a 500 with
// FailureBody; upstream statuses, headers and bodies are returned as-is.
func (f *Forwarder) Forward(ctx context.Context, req Request) Response {
	upstreamPath, ok := f.Rewrite(req.Path)
	if !ok {
		return jsonResponse(http.StatusNotFound, []byte(`{"error":"not found"}`))
	}
	target := *f.upstream
	target.Path = strings.TrimRight(f.upstream.Path, "/") + upstreamPath
	target.RawQuery = req.RawQuery

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	out, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return f.fail(method, target.Path, err)
	}
	copyRequestHeaders(out.Header, req.Header)
	if req.ClientIP != "" {
		if prior := out.Header.Get("X-Forwarded-For"); prior != "" {
			out.Header.Set("X-Forwarded-For", prior+", "+req.ClientIP)
		} else {
			out.Header.Set("X-Forwarded-For", req.ClientIP)
		}
	}
	if req.Host != "" {
		out.Header.Set("X-Forwarded-Host", req.Host)
	}
	if req.Proto != "" {
		out.Header.Set("X-Forwarded-Proto", req.Proto)
	}

	start := time.Now()
	resp, err := f.client.Do(out)
	if err != nil {
		return f.fail(method, target.Path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return f.fail(method, target.Path, err)
	}
	if int64(len(data)) > f.maxBody {
		return f.fail(method, target.Path, fmt.Errorf("%w (%d bytes)", ErrResponseTooLarge, f.maxBody))
	}
	f.metrics.ObserveForward(method, resp.StatusCode, time.Since(start).Seconds())

	header := make(http.Header, len(resp.Header))
	for k, vs := range resp.Header {
		header[k] = append([]string(nil), vs...)
	}
	removeHopHeaders(header)
	header.Del("Content-Length")
	return Response{StatusCode: resp.StatusCode, Header: header, Body: data}
}

func (f *Forwarder) fail(method, path string, err error) Response {
	f.metrics.ObserveFailure()
	f.logger.Error("proxy request failed", "method", method, "path", path, "error", err)
	return jsonResponse(http.StatusInternalServerError, FailureBody)
}

func jsonResponse(status int, body []byte) Response {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return Response{StatusCode: status, Header: h, Body: body}
}

func copyRequestHeaders(dst, src http.Header) {
	for k, vs := range src {
		dst[k] = append([]string(nil), vs...)
	}
	removeHopHeaders(dst)
	for _, h := range []string{"Host", "Origin", "Content-Length", "Accept-Encoding"} {
		dst.Del(h)
	}
}

// removeHopHeaders drops hop-by-hop headers, including any named in the
// Connection header.
func removeHopHeaders(h http.Header) {
	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}

// ErrorBody renders a JSON error payload.
func ErrorBody(msg string) []byte {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return data
}
