package backend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	httpmiddleware "github.com/wolfman30/medassist-ai/internal/http/middleware"
	"github.com/wolfman30/medassist-ai/internal/medical"
	"github.com/wolfman30/medassist-ai/internal/observability/metrics"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

const maxBodyBytes = 64 << 10

// Handler serves the assistant API: /test, /register, /login, /report and
// /search.
type Handler struct {
	users     UserRepository
	tokens    *TokenIssuer
	reports   *ReportGenerator
	directory *Directory
	logger    *logging.Logger
	metrics   *metrics.BackendMetrics
}

type HandlerConfig struct {
	Users     UserRepository
	Tokens    *TokenIssuer
	Reports   *ReportGenerator
	Directory *Directory
	Logger    *logging.Logger
	Metrics   *metrics.BackendMetrics
}

func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Users == nil || cfg.Tokens == nil || cfg.Reports == nil || cfg.Directory == nil {
		panic("backend: handler requires users, tokens, reports and directory")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		users:     cfg.Users,
		tokens:    cfg.Tokens,
		reports:   cfg.Reports,
		directory: cfg.Directory,
		logger:    logger,
		metrics:   cfg.Metrics,
	}
}

type registerRequest struct {
	Username  string            `json:"username"`
	Password  string            `json:"password"`
	BasicInfo medical.BasicInfo `json:"basicInfo"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

type reportRequest struct {
	InputText string `json:"input_text"`
}

type searchRequest struct {
	Department string `json:"department"`
}

// Test handles GET /test.
func (h *Handler) Test(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

// Register handles POST /register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := NewUser(req.Username, req.Password, req.BasicInfo)
	if err != nil {
		writeError(w, http.StatusBadRequest, detailOf(err))
		return
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, ErrUserExists) {
			writeError(w, http.StatusConflict, "username already registered")
			return
		}
		h.logger.Error("failed to create user", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	h.logger.Info("user registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "registered", "username": user.Username})
}

// Login handles POST /login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password required")
		return
	}
	user, err := h.users.GetByUsername(r.Context(), req.Username)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		h.logger.Error("failed to load user", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if user == nil || !user.CheckPassword(req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	token, err := h.tokens.Issue(user.Username)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Username: user.Username})
}

// Report handles POST /report. The caller's registered profile fills the
// report's basic info when the request is authenticated.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.InputText) == "" {
		writeError(w, http.StatusBadRequest, "input_text required")
		return
	}

	var info medical.BasicInfo
	if subject, ok := httpmiddleware.SubjectFromContext(r.Context()); ok {
		user, err := h.users.GetByUsername(r.Context(), subject)
		switch {
		case err == nil:
			info = user.BasicInfo
		case errors.Is(err, ErrUserNotFound):
			writeError(w, http.StatusUnauthorized, "unknown user")
			return
		default:
			h.logger.Error("failed to load user", "error", err)
			writeError(w, http.StatusInternalServerError, "report failed")
			return
		}
	}

	report, source, err := h.reports.Generate(r.Context(), req.InputText, info)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, detailOf(err))
			return
		}
		h.logger.Error("report generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "report failed")
		return
	}
	h.logger.Debug("report generated", "source", source, "department", report.Department())
	writeJSON(w, http.StatusOK, report)
}

// Search handles POST /search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !h.decode(w, r, &req) {
		return
	}
	rec, err := h.directory.Search(req.Department)
	if err != nil {
		h.metrics.ObserveSearch("not_found")
		writeError(w, http.StatusNotFound, "no hospital found for department")
		return
	}
	h.metrics.ObserveSearch("found")
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Debug("failed to decode request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// detailOf strips the package prefix from validation errors.
func detailOf(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 && strings.HasPrefix(msg, "backend") {
		msg = msg[i+2:]
	}
	return msg
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
