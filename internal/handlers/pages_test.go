package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/auth"
	"sales-dashboard/internal/config"
	"sales-dashboard/internal/observability"
)

type fakeVerifier map[string]string

func (f fakeVerifier) Verify(_ context.Context, username, password string) error {
	if want, ok := f[username]; ok && want == password {
		return nil
	}
	return auth.ErrInvalidCredentials
}

func newPageHandlers() (*PageHandlers, *auth.Sessions) {
	sessions := auth.NewSessions(time.Hour)
	cfg := config.AuthConfig{CookieName: "dashboard_session", SessionTTL: time.Hour}
	return NewPageHandlers(fakeVerifier{"analyst": "s3cret"}, sessions, cfg, testLogger()), sessions
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestPageHandlers_LoginSuccess(t *testing.T) {
	h, sessions := newPageHandlers()

	w := httptest.NewRecorder()
	h.HandleLogin(w, postForm("/login", url.Values{"username": {"analyst"}, "password": {"s3cret"}}))

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "dashboard_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	user, ok := sessions.Lookup(cookies[0].Value)
	require.True(t, ok)
	assert.Equal(t, "analyst", user)
}

func TestPageHandlers_LoginRejected(t *testing.T) {
	h, _ := newPageHandlers()

	w := httptest.NewRecorder()
	h.HandleLogin(w, postForm("/login", url.Values{"username": {"analyst"}, "password": {"nope"}}))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())
	assert.Contains(t, w.Body.String(), "Invalid username or password.")
	assert.Contains(t, w.Body.String(), `value="analyst"`)
}

func TestPageHandlers_LoginUnreadableForm(t *testing.T) {
	h, _ := newPageHandlers()

	form := url.Values{"username": {"analyst"}, "password": {strings.Repeat("x", 1<<15)}}
	w := httptest.NewRecorder()
	h.HandleLogin(w, postForm("/login", form))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, w.Result().Cookies())
	assert.Contains(t, w.Body.String(), "The login form could not be read.")
}

func TestPageHandlers_LoginPageRedirectsWhenSignedIn(t *testing.T) {
	h, sessions := newPageHandlers()

	w := httptest.NewRecorder()
	h.HandleLoginPage(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/login"`)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(&http.Cookie{Name: "dashboard_session", Value: sessions.Start("analyst")})
	w = httptest.NewRecorder()
	h.HandleLoginPage(w, req)
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestPageHandlers_Logout(t *testing.T) {
	h, sessions := newPageHandlers()
	token := sessions.Start("analyst")

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "dashboard_session", Value: token})
	w := httptest.NewRecorder()
	h.HandleLogout(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	_, ok := sessions.Lookup(token)
	assert.False(t, ok, "logout ends the session")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestPageHandlers_Dashboard(t *testing.T) {
	h, _ := newPageHandlers()

	tests := []struct {
		query    string
		wantText string
		absent   string
	}{
		{"", "/sse/dashboard", "not available yet"},
		{"?view=earnings", "The Earnings view is not available yet.", "/sse/dashboard"},
		{"?view=Edit+Database", "The Edit Database view is not available yet.", "/sse/dashboard"},
		{"?view=unknown", "/sse/dashboard", "not available yet"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			req = req.WithContext(observability.WithUser(req.Context(), "analyst"))
			w := httptest.NewRecorder()
			h.HandleDashboard(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
			body := w.Body.String()
			assert.Contains(t, body, tt.wantText)
			assert.NotContains(t, body, tt.absent)
			assert.Contains(t, body, "analyst")
		})
	}
}

func TestPageHandlers_DashboardUnknownPath(t *testing.T) {
	h, _ := newPageHandlers()

	w := httptest.NewRecorder()
	h.HandleDashboard(w, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
