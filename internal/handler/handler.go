// Package handler provides HTTP request handlers.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/haircarepro/haircarepro/internal/auth"
	"github.com/haircarepro/haircarepro/internal/middleware"
	"github.com/haircarepro/haircarepro/internal/model"
	"github.com/haircarepro/haircarepro/internal/service"
)

// Messages shown for recoverable authentication failures.
const (
	msgInvalidCredentials = "Invalid credentials"
	msgUserExists         = "Username or email already exists."
)

// Accounts is the account service used by the auth routes.
type Accounts interface {
	Register(ctx context.Context, input service.RegisterInput) (*model.User, error)
	Login(ctx context.Context, username, password string) (*model.Session, error)
	Logout(ctx context.Context, token string) error
}

// CarePlans is the care plan service used by the survey and dashboard routes.
type CarePlans interface {
	SubmitSurvey(ctx context.Context, user *model.SessionUser, survey model.Survey) (*service.SurveyResult, error)
	Dashboard(ctx context.Context, user *model.SessionUser) (*service.DashboardData, error)
}

// Config holds Handler dependencies.
type Config struct {
	Accounts      Accounts
	CarePlans     CarePlans
	Pages         *Pages
	Logger        *slog.Logger
	SessionTTL    time.Duration
	SecureCookies bool
}

// Handler serves the HTML pages.
type Handler struct {
	accounts      Accounts
	plans         CarePlans
	pages         *Pages
	logger        *slog.Logger
	sessionTTL    time.Duration
	secureCookies bool
}

// New creates a new Handler instance.
func New(cfg Config) *Handler {
	return &Handler{
		accounts:      cfg.Accounts,
		plans:         cfg.CarePlans,
		pages:         cfg.Pages,
		logger:        cfg.Logger.With("component", "handler"),
		sessionTTL:    cfg.SessionTTL,
		secureCookies: cfg.SecureCookies,
	}
}

// Index redirects to the login page.
// GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusFound)
}

// LoginPage renders the login form.
// GET /login
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, http.StatusOK, pageLogin, nil)
}

// Login checks credentials, sets the session cookie and continues to the survey.
// POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, "Invalid form submission")
		return
	}

	session, err := h.accounts.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeText(w, http.StatusOK, msgInvalidCredentials)
			return
		}
		h.serverError(w, r, "login failed", err)
		return
	}

	middleware.SetSessionCookie(w, session.ID, h.sessionTTL, h.secureCookies)
	http.Redirect(w, r, "/survey", http.StatusSeeOther)
}

// RegisterPage renders the registration form.
// GET /register
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, http.StatusOK, pageRegister, nil)
}

// Register creates an account and sends the user to the login page.
// POST /register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, "Invalid form submission")
		return
	}

	_, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	})
	switch {
	case err == nil:
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	case errors.Is(err, service.ErrUserExists):
		writeText(w, http.StatusOK, msgUserExists)
	case errors.Is(err, service.ErrInvalidUsername),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidPassword):
		writeText(w, http.StatusBadRequest, capitalize(err.Error())+".")
	default:
		h.serverError(w, r, "registration failed", err)
	}
}

// SurveyPage renders the survey form.
// GET /survey
func (h *Handler) SurveyPage(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())
	h.pages.Render(w, http.StatusOK, pageSurvey, surveyView{
		Username:  user.Username,
		Questions: surveyQuestions,
	})
}

// Survey generates a care plan from the submitted answers and shows it.
// POST /survey
func (h *Handler) Survey(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, "Invalid form submission")
		return
	}

	result, err := h.plans.SubmitSurvey(r.Context(), user, surveyFromForm(r))
	if err != nil {
		h.serverError(w, r, "survey submission failed", err)
		return
	}

	h.pages.Render(w, http.StatusOK, pageResult, resultView{
		Username: user.Username,
		Email:    user.Email,
		Plan:     result.Plan,
		PDFPath:  result.PDFPath,
	})
}

// Dashboard shows the latest plan, routine alert and progress.
// GET /dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	data, err := h.plans.Dashboard(r.Context(), user)
	if err != nil {
		h.serverError(w, r, "dashboard failed", err)
		return
	}

	h.pages.Render(w, http.StatusOK, pageDashboard, data)
}

// Logout destroys the session and returns to the login page.
// GET /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Logout(r.Context(), middleware.SessionToken(r)); err != nil {
		h.logger.Error("logout failed",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
	}
	middleware.ClearSessionCookie(w, h.secureCookies)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, http.StatusNotFound, pageError, errorView{
		Title:   "Page not found",
		Message: "The page you requested does not exist.",
	})
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, http.StatusMethodNotAllowed, pageError, errorView{
		Title:   "Method not allowed",
		Message: "This page does not accept that request.",
	})
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg,
		"error", err,
		"user_id", auth.UserIDFromContext(r.Context()),
		"request_id", middleware.GetRequestID(r.Context()),
	)
	h.pages.Render(w, http.StatusInternalServerError, pageError, errorView{
		Title:   "Something went wrong",
		Message: "We could not complete your request. Please try again.",
	})
}

// surveyFromForm keeps every submitted field, first value wins.
func surveyFromForm(r *http.Request) model.Survey {
	survey := make(model.Survey, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			survey[key] = values[0]
		}
	}
	return survey
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

// writeText writes a plain-text response.
func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
