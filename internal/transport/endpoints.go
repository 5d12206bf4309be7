package transport

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/wolfman30/medassist-ai/internal/medical"
)

// ErrMissingToken is returned when login succeeds without a token.
var ErrMissingToken = errors.New("transport: login response has no token")

// LoginRequest is the /login body. Password must already be hashed.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the /register body. Password must already be hashed.
type RegisterRequest struct {
	Username  string            `json:"username"`
	Password  string            `json:"password"`
	BasicInfo medical.BasicInfo `json:"basicInfo"`
}

// HashPassword returns the lowercase hex MD5 digest the backend expects.
func HashPassword(plain string) string {
	sum := md5.Sum([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// Ping probes GET /test.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.invoke(ctx, http.MethodGet, "/test", nil)
	return err
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (string, error) {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return "", errors.New("transport: username and password required")
	}
	data, err := c.invoke(ctx, http.MethodPost, "/login", req)
	if err != nil {
		return "", err
	}
	var out struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(unquoteJSON(data), &out); err != nil {
		return "", fmt.Errorf("transport: decode login response: %w", err)
	}
	token := out.Token
	if token == "" {
		token = out.AccessToken
	}
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// Register creates an account. The response body is not interpreted beyond
// the error envelope.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return errors.New("transport: username and password required")
	}
	_, err := c.invoke(ctx, http.MethodPost, "/register", req)
	return err
}

// SubmitSymptomReport posts free text and returns the validated report.
func (c *Client) SubmitSymptomReport(ctx context.Context, text string) (*medical.MedicalReport, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("transport: input text required")
	}
	data, err := c.invoke(ctx, http.MethodPost, "/report", map[string]string{"input_text": text})
	if err != nil {
		return nil, err
	}
	report, err := medical.ParseReport(unquoteJSON(data))
	if err != nil {
		return nil, fmt.Errorf("transport: report response: %w", err)
	}
	return report, nil
}

// SearchHospital asks for a hospital serving department. An empty department
// is sent as-is.
func (c *Client) SearchHospital(ctx context.Context, department string) (*medical.HospitalRecommendation, error) {
	data, err := c.invoke(ctx, http.MethodPost, "/search", map[string]string{"department": department})
	if err != nil {
		return nil, err
	}
	rec, err := medical.ParseHospital(unquoteJSON(data))
	if err != nil {
		return nil, fmt.Errorf("transport: search response: %w", err)
	}
	return rec, nil
}
