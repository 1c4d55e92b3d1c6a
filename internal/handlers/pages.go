package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"

	"sales-dashboard/internal/auth"
	"sales-dashboard/internal/config"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/ui/templates"
)

const renderTimeout = 10 * time.Second

// PageHandlers serve the login flow and the dashboard shell.
type PageHandlers struct {
	verifier auth.Verifier
	sessions *auth.Sessions
	config   config.AuthConfig
	logger   *slog.Logger
}

func NewPageHandlers(verifier auth.Verifier, sessions *auth.Sessions, cfg config.AuthConfig, logger *slog.Logger) *PageHandlers {
	return &PageHandlers{
		verifier: verifier,
		sessions: sessions,
		config:   cfg,
		logger:   logger,
	}
}

func (h *PageHandlers) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.config.CookieName); err == nil {
		if _, ok := h.sessions.Lookup(c.Value); ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}
	h.render(w, r, http.StatusOK, templates.Login("", ""))
}

func (h *PageHandlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<14)
	if err := r.ParseForm(); err != nil {
		appErr := errors.ValidationWrap(err, "login form could not be read")
		h.logger.Warn("login form rejected",
			"error", appErr,
			"request_id", observability.GetRequestID(r.Context()),
		)
		h.render(w, r, appErr.StatusCode, templates.Login("", "The login form could not be read."))
		return
	}

	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	requestID := observability.GetRequestID(r.Context())

	if err := h.verifier.Verify(r.Context(), username, password); err != nil {
		h.logger.Warn("login rejected",
			"username", username,
			"remote_addr", r.RemoteAddr,
			"request_id", requestID,
		)
		h.render(w, r, http.StatusUnauthorized, templates.Login(username, "Invalid username or password."))
		return
	}

	token := h.sessions.Start(username)
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("login succeeded", "username", username, "request_id", requestID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PageHandlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.config.CookieName); err == nil {
		h.sessions.End(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("logout",
		"username", observability.GetUser(r.Context()),
		"request_id", observability.GetRequestID(r.Context()),
	)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// HandleDashboard renders the page shell for the view named by ?view=. The
// figures arrive afterwards over /sse/dashboard.
func (h *PageHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	view := models.ParseView(r.URL.Query().Get("view"))
	user := observability.GetUser(r.Context())

	w.Header().Set("Cache-Control", "private, no-store")
	h.render(w, r, http.StatusOK, templates.Dashboard(view, user))
}

func (h *PageHandlers) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	html, err := templates.Render(ctx, c)
	if err != nil {
		h.logger.Error("render page",
			"error", err,
			"path", r.URL.Path,
			"request_id", observability.GetRequestID(r.Context()),
		)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(html))
}
