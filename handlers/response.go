package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"usermanagement/auth"
	"usermanagement/logging"
	"usermanagement/repository"
	"usermanagement/services"
)

// ApiResponse is the JSON envelope for machine-facing endpoints.
type ApiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// writeJSON writes v as the JSON body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// page bundles what every HTML handler needs.
type page struct {
	sessions *auth.SessionManager
	views    *Views
	log      *zap.SugaredLogger
}

func (p page) redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusFound)
}

// flashRedirect queues a flash for the next page and redirects to url.
func (p page) flashRedirect(w http.ResponseWriter, r *http.Request, level auth.FlashLevel, text, url string) {
	if err := p.sessions.AddFlash(w, r, level, text); err != nil {
		p.serverError(w, r, err)
		return
	}
	p.redirect(w, r, url)
}

func (p page) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	p.renderStatus(w, r, http.StatusOK, name, data)
}

func (p page) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if err := p.views.Render(w, r, status, name, data); err != nil {
		p.log.Errorw("render failed", "page", name, "request_id", logging.RequestID(r.Context()), "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (p page) notFound(w http.ResponseWriter, r *http.Request) {
	p.renderStatus(w, r, http.StatusNotFound, "not_found", nil)
}

// NotFound renders the 404 page for unmatched routes.
func (p page) NotFound(w http.ResponseWriter, r *http.Request) {
	p.notFound(w, r)
}

func (p page) serverError(w http.ResponseWriter, r *http.Request, err error) {
	p.log.Errorw("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", logging.RequestID(r.Context()),
		"err", err,
	)
	p.renderStatus(w, r, http.StatusInternalServerError, "error", nil)
}

// formError answers a failed form submission: validation errors go back to
// retryURL with a flash, a missing user is a 404, anything else is a 500.
func (p page) formError(w http.ResponseWriter, r *http.Request, err error, retryURL string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		p.flashRedirect(w, r, auth.FlashError, verr.Msg, retryURL)
	case errors.Is(err, repository.ErrNotFound):
		p.notFound(w, r)
	default:
		p.serverError(w, r, err)
	}
}

func readUserForm(r *http.Request) services.UserForm {
	return services.UserForm{
		Username:  r.PostFormValue("username"),
		Email:     r.PostFormValue("email"),
		Password1: r.PostFormValue("password1"),
		Password2: r.PostFormValue("password2"),
	}
}
