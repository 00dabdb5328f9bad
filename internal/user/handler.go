package user

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/authgate"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/credential"
)

var pages = template.Must(template.New("pages").Parse(`
{{define "registered"}}<html>
  <head><title>Registration</title></head>
  <body>
    <h1>Registration Successful</h1>
    <p>You can now <a href="/login.html">log in</a>.</p>
  </body>
</html>
{{end}}
{{define "welcome"}}<html>
  <head><title>Dashboard</title></head>
  <body>
    <h1>Welcome, {{.Username}}!</h1>
    <p>You are now logged in.</p>
  </body>
</html>
{{end}}`))

// Handler exposes HTTP endpoints for user operations (register / login / me).
type Handler struct {
	svc     *UserService
	logger  *zap.SugaredLogger
	outcome *prometheus.CounterVec
}

// NewHandler registers its metrics with reg (nil to skip registration).
func NewHandler(svc *UserService, logger *zap.SugaredLogger, reg prometheus.Registerer) *Handler {
	outcome := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "auth_requests_total",
		Help: "Register and login requests by outcome.",
	}, []string{"op", "outcome"})
	return &Handler{svc: svc, logger: logger, outcome: outcome}
}

// Register handles a form-encoded registration.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, "register", "bad_request", http.StatusBadRequest, "Invalid form")
		return
	}
	_, err := h.svc.Register(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("email"), r.PostForm.Get("password"))
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			h.fail(w, "register", "validation", http.StatusBadRequest, "All fields required")
		case errors.Is(err, credential.ErrDuplicateEntry):
			h.fail(w, "register", "duplicate", http.StatusBadRequest, "Username or email already exists")
		default:
			h.logger.Errorw("registration failed", "err", err)
			h.fail(w, "register", "error", http.StatusInternalServerError, "Registration failed")
		}
		return
	}
	h.outcome.WithLabelValues("register", "success").Inc()
	h.render(w, "registered", nil)
}

// Login handles a form-encoded login. On success the bearer token is
// returned in the Authorization response header.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, "login", "bad_request", http.StatusBadRequest, "Invalid form")
		return
	}
	res, err := h.svc.Login(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			h.fail(w, "login", "validation", http.StatusBadRequest, "Username and password required")
		case errors.Is(err, ErrBadCredentials):
			h.logger.Debugw("login failed", "err", err)
			h.fail(w, "login", "invalid_credentials", http.StatusUnauthorized, "Invalid credentials")
		default:
			h.logger.Errorw("login failed", "err", err)
			h.fail(w, "login", "error", http.StatusInternalServerError, "Login failed")
		}
		return
	}
	h.outcome.WithLabelValues("login", "success").Inc()
	w.Header().Set("Authorization", "Bearer "+res.Token.Token)
	h.render(w, "welcome", res.Account)
}

// Me returns the identity resolved by the auth gate.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := authgate.IdentityFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Access token required"})
		return
	}
	h.writeJSON(w, http.StatusOK, id)
}

func (h *Handler) fail(w http.ResponseWriter, op, outcome string, status int, msg string) {
	h.outcome.WithLabelValues(op, outcome).Inc()
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Warnw("render page", "page", name, "err", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
