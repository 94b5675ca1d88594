package handler

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chrisBrookes93/events-management/internal/apperror"
	"github.com/chrisBrookes93/events-management/internal/auth"
	"github.com/chrisBrookes93/events-management/internal/service"
)

// AccountHandler serves registration, login and logout, plus the JSON
// "who am I" endpoint. It owns session issuance: on successful register
// or login it mints the JWT and sets the cookie.
type AccountHandler struct {
	accounts  *service.AccountService
	tokens    *auth.TokenService
	templates map[string]*template.Template
	logger    *slog.Logger
}

// NewAccountHandler parses the account page templates and creates the
// handler.
func NewAccountHandler(templateDir string, accounts *service.AccountService, tokens *auth.TokenService, logger *slog.Logger) (*AccountHandler, error) {
	templates, err := parseTemplates(templateDir, "register", "login")
	if err != nil {
		return nil, err
	}

	return &AccountHandler{
		accounts:  accounts,
		tokens:    tokens,
		templates: templates,
		logger:    logger,
	}, nil
}

func (h *AccountHandler) render(w http.ResponseWriter, status int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates[page].ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
	}
}

// HandleRegisterForm renders the empty registration form.
func (h *AccountHandler) HandleRegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "register", map[string]any{"Title": "Register"})
}

// HandleRegister creates the account and signs the new user straight in.
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")

	user, err := h.accounts.Register(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, apperror.ErrConflict) {
			status = http.StatusConflict
		}
		h.render(w, status, "register", map[string]any{
			"Title": "Register",
			"Email": email,
			"Error": errorMessage(err),
		})
		return
	}

	if err := h.startSession(w, user.ID); err != nil {
		h.logger.Error("failed to issue session", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/events/", http.StatusSeeOther)
}

// HandleLoginForm renders the login form. The "next" query parameter,
// set by the auth middleware when it bounced an anonymous request here,
// is carried into the form so HandleLogin can send the user back.
func (h *AccountHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "login", map[string]any{
		"Title": "Log In",
		"Next":  safeNext(r.URL.Query().Get("next")),
	})
}

// HandleLogin verifies the credentials and starts a session. A bad
// email/password pair re-renders the form with a single generic message.
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	next := safeNext(r.PostFormValue("next"))

	user, err := h.accounts.Authenticate(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		h.render(w, http.StatusForbidden, "login", map[string]any{
			"Title": "Log In",
			"Email": email,
			"Next":  next,
			"Error": errorMessage(err),
		})
		return
	}

	if err := h.startSession(w, user.ID); err != nil {
		h.logger.Error("failed to issue session", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if next == "" {
		next = "/events/"
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// HandleLogout clears the session cookie and returns to the welcome page.
func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleMe returns the authenticated user's account as JSON.
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.accounts.GetUser(r.Context(), viewerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":            user.ID,
		"email":         user.Email,
		"friendly_name": user.FriendlyName(),
		"is_staff":      user.IsStaff,
		"joined_at":     user.JoinedAt,
	})
}

func (h *AccountHandler) startSession(w http.ResponseWriter, userID string) error {
	token, err := h.tokens.Generate(userID)
	if err != nil {
		return err
	}
	auth.SetSessionCookie(w, token)
	return nil
}

// safeNext keeps post-login redirects on this site: only absolute paths
// without a second leading slash survive (no "//evil.example" tricks).
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") {
		return next
	}
	return ""
}
