package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"usermanagement/auth"
	"usermanagement/services"
)

// UserHandler serves the public registration and login pages.
type UserHandler struct {
	page
	Users *services.UserService
}

func NewUserHandler(users *services.UserService, sessions *auth.SessionManager, views *Views, log *zap.SugaredLogger) *UserHandler {
	return &UserHandler{
		page:  page{sessions: sessions, views: views, log: log},
		Users: users,
	}
}

// Register handles GET and POST /.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r.Context()); ok {
		h.redirect(w, r, "/home_page")
		return
	}

	if r.Method == http.MethodPost {
		user, err := h.Users.Register(r.Context(), readUserForm(r))
		if err != nil {
			h.formError(w, r, err, "/")
			return
		}
		h.log.Infow("user registered", "user_id", user.ID, "username", user.Username)
		h.flashRedirect(w, r, auth.FlashSuccess, "Registration successful. Please log in.", "/login_page")
		return
	}

	h.render(w, r, "register", nil)
}

// Login handles GET and POST /login_page.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r.Context()); ok {
		h.redirect(w, r, "/home_page")
		return
	}

	if r.Method == http.MethodPost {
		user, err := h.Users.Authenticate(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
		if err != nil {
			if !errors.Is(err, services.ErrBadCredentials) {
				h.serverError(w, r, err)
				return
			}
			if err := h.sessions.AddFlash(w, r, auth.FlashError, "Invalid username or password."); err != nil {
				h.serverError(w, r, err)
				return
			}
			h.render(w, r, "login", nil)
			return
		}

		if err := h.sessions.Login(w, r, user.ID); err != nil {
			h.serverError(w, r, err)
			return
		}
		h.log.Infow("user logged in", "user_id", user.ID)
		h.flashRedirect(w, r, auth.FlashSuccess, fmt.Sprintf("Welcome back, %s!", user.Username), "/home_page")
		return
	}

	h.render(w, r, "login", nil)
}

type homeData struct {
	Name string
}

// Home handles GET /home_page. The route requires a logged-in user.
func (h *UserHandler) Home(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())
	h.render(w, r, "home", homeData{Name: user.Username})
}

// Logout handles /logout_page. It never fails for a caller without a
// session.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(w, r); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.redirect(w, r, "/login_page")
}
