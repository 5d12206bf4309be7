package proxy

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
)

// ServeHTTP lets the forwarder sit behind a router.
func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, f.maxBody))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeResponse(w, jsonResponse(status, ErrorBody("invalid request body")))
		return
	}
	proto := "http"
	if r.TLS != nil {
		proto = "https"
	}
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); fwd != "" {
		proto = fwd
	}
	resp := f.Forward(r.Context(), Request{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header,
		Body:     body,
		ClientIP: clientIP(r.RemoteAddr),
		Host:     r.Host,
		Proto:    proto,
	})
	writeResponse(w, resp)
}

// writeResponse copies resp onto w. CORS headers already set by middleware
// take precedence over the upstream's.
func writeResponse(w http.ResponseWriter, resp Response) {
	dst := w.Header()
	for k, vs := range resp.Header {
		if strings.HasPrefix(http.CanonicalHeaderKey(k), "Access-Control-") && dst.Get(k) != "" {
			continue
		}
		dst[k] = append([]string(nil), vs...)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
