package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haircarepro/haircarepro/internal/auth"
	"github.com/haircarepro/haircarepro/internal/model"
)

// logRequest runs req through Logger and returns the decoded log line, or
// nil when nothing was logged at info level or above.
func logRequest(t *testing.T, req *http.Request, h http.HandlerFunc) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	Logger(logger)(h).ServeHTTP(httptest.NewRecorder(), req)

	if buf.Len() == 0 {
		return nil
	}
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestLogger_LoginFormNeverLogged(t *testing.T) {
	t.Parallel()

	form := url.Values{"username": {"alice"}, "password": {"argan-oil-42"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	line := logRequest(t, req, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		http.Redirect(w, r, "/survey", http.StatusSeeOther)
	})
	require.NotNil(t, line)

	raw, _ := json.Marshal(line)
	assert.NotContains(t, string(raw), "argan-oil-42")
	assert.Equal(t, float64(http.StatusSeeOther), line["status_code"])
}

func TestLogger_SessionCookieNeverLogged(t *testing.T) {
	t.Parallel()

	token, err := auth.GenerateSessionToken()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})

	line := logRequest(t, req, func(w http.ResponseWriter, r *http.Request) {})
	raw, _ := json.Marshal(line)
	assert.NotContains(t, string(raw), token)
	assert.NotContains(t, string(raw), SessionCookieName)
}

func TestLogger_SurveyRequestFields(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/survey", strings.NewReader("hairType=Curly"))
	req.Header.Set("User-Agent", "Mozilla/5.0 (HairCareTest)")
	req = req.WithContext(auth.ContextWithUser(req.Context(), &model.SessionUser{ID: "01HZX3K6QW", Username: "alice"}))

	line := logRequest(t, req, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>result</html>"))
	})
	require.NotNil(t, line)

	assert.Equal(t, "http request", line["msg"])
	assert.Equal(t, "POST", line["method"])
	assert.Equal(t, "/survey", line["path"])
	assert.Equal(t, float64(http.StatusOK), line["status_code"])
	assert.Equal(t, "Mozilla/5.0 (HairCareTest)", line["user_agent"])
	assert.Equal(t, "01HZX3K6QW", line["user_id"])
	assert.NotContains(t, line, "username")
}

func TestLogger_AnonymousRequestHasNoUser(t *testing.T) {
	t.Parallel()

	line := logRequest(t, httptest.NewRequest(http.MethodGet, "/register", nil), func(w http.ResponseWriter, r *http.Request) {})
	require.NotNil(t, line)
	assert.NotContains(t, line, "user_id")
}

func TestRequestLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path   string
		status int
		want   slog.Level
	}{
		{"/dashboard", http.StatusOK, slog.LevelInfo},
		{"/login", http.StatusSeeOther, slog.LevelInfo},
		{"/register", http.StatusBadRequest, slog.LevelWarn},
		{"/login", http.StatusTooManyRequests, slog.LevelWarn},
		{"/pdfs/missing.pdf", http.StatusNotFound, slog.LevelWarn},
		{"/survey", http.StatusInternalServerError, slog.LevelError},
		{"/healthz", http.StatusOK, slog.LevelDebug},
		{"/readyz", http.StatusOK, slog.LevelDebug},
		{"/readyz", http.StatusServiceUnavailable, slog.LevelError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, requestLevel(tt.path, tt.status), "%s %d", tt.path, tt.status)
	}
}

func TestLogger_HealthProbesBelowInfo(t *testing.T) {
	t.Parallel()

	line := logRequest(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), func(w http.ResponseWriter, r *http.Request) {})
	assert.Nil(t, line)
}

func TestStatusRecorder_FirstStatusWins(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	s := wrapResponseWriter(rec)

	// A handler that redirects and then trips over a late error write.
	s.WriteHeader(http.StatusSeeOther)
	s.WriteHeader(http.StatusInternalServerError)
	_, _ = s.Write([]byte("ignored status"))

	assert.Equal(t, http.StatusSeeOther, s.status)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestStatusRecorder_ImplicitOK(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	s := wrapResponseWriter(rec)
	_, err := s.Write([]byte("<html></html>"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, s.status)
	assert.True(t, s.written)
}
