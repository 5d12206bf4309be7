package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a backend-reported failure: a non-2xx status or a 2xx body
// that carries an error marker.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("transport: %s (status=%d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("transport: http status %d", e.StatusCode)
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Success *bool           `json:"success"`
}

// unwrapEnvelope returns the payload of a 2xx body, which is either the bare
// payload or {"data": payload}.
func unwrapEnvelope(status int, body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed, nil
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return trimmed, nil
	}
	if msg := rawText(env.Error); msg != "" {
		return nil, &APIError{StatusCode: status, Message: msg, Body: string(trimmed)}
	}
	if msg := rawText(env.Detail); msg != "" {
		return nil, &APIError{StatusCode: status, Message: msg, Body: string(trimmed)}
	}
	if env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request unsuccessful"
		}
		return nil, &APIError{StatusCode: status, Message: msg, Body: string(trimmed)}
	}
	if data := bytes.TrimSpace(env.Data); len(data) > 0 && !bytes.Equal(data, []byte("null")) {
		return data, nil
	}
	return trimmed, nil
}

func decodeAPIError(status int, body []byte) error {
	trimmed := bytes.TrimSpace(body)
	apiErr := &APIError{StatusCode: status, Body: string(trimmed)}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err == nil {
		for _, candidate := range []string{rawText(env.Error), rawText(env.Detail), env.Message} {
			if candidate != "" {
				apiErr.Message = candidate
				break
			}
		}
		return apiErr
	}
	if len(trimmed) > 0 && len(trimmed) <= 200 {
		apiErr.Message = string(trimmed)
	}
	return apiErr
}

// rawText renders an error marker that may be a string, an object, or an
// array (FastAPI validation details) as text. false and null are empty.
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch string(raw) {
	case "null", "false", `""`, "[]", "{}":
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(raw)
}

// unquoteJSON unwraps a payload that arrived as a JSON string holding JSON.
func unquoteJSON(payload []byte) []byte {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return trimmed
	}
	var inner string
	if err := json.Unmarshal(trimmed, &inner); err != nil {
		return trimmed
	}
	return bytes.TrimSpace([]byte(inner))
}
