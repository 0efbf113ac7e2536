package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"usermanagement/auth"
	"usermanagement/models"
	"usermanagement/services"
)

// AdminHandler serves the staff pages. Every route except Login and
// Logout is mounted behind the staff guard.
type AdminHandler struct {
	page
	Users *services.UserService
}

func NewAdminHandler(users *services.UserService, sessions *auth.SessionManager, views *Views, log *zap.SugaredLogger) *AdminHandler {
	return &AdminHandler{
		page:  page{sessions: sessions, views: views, log: log},
		Users: users,
	}
}

// Login handles GET and POST /admin_login.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	if auth.IsStaff(r.Context()) {
		h.redirect(w, r, "/admin_page")
		return
	}

	if r.Method == http.MethodPost {
		user, err := h.Users.AuthenticateStaff(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
		if err != nil {
			if !errors.Is(err, services.ErrBadCredentials) && !errors.Is(err, services.ErrNotStaff) {
				h.serverError(w, r, err)
				return
			}
			if err := h.sessions.AddFlash(w, r, auth.FlashError, "Invalid credentials or insufficient permissions."); err != nil {
				h.serverError(w, r, err)
				return
			}
			h.render(w, r, "admin_login", nil)
			return
		}

		if err := h.sessions.Login(w, r, user.ID); err != nil {
			h.serverError(w, r, err)
			return
		}
		h.log.Infow("staff logged in", "user_id", user.ID)
		h.redirect(w, r, "/admin_page")
		return
	}

	h.render(w, r, "admin_login", nil)
}

// Logout handles /admin_logout for any caller.
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(w, r); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.redirect(w, r, "/admin_login")
}

type rosterData struct {
	Users       []models.User
	SearchQuery string
}

// Roster handles GET /admin_page?search=.
func (h *AdminHandler) Roster(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("search")
	users, err := h.Users.Search(r.Context(), query)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "admin_page", rosterData{Users: users, SearchQuery: query})
}

// CreateUser handles GET and POST /admin_create_user.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		user, err := h.Users.CreateUser(r.Context(), readUserForm(r))
		if err != nil {
			h.formError(w, r, err, "/admin_create_user")
			return
		}
		h.log.Infow("user created by staff", "user_id", user.ID, "staff_id", staffID(r))
		h.flashRedirect(w, r, auth.FlashSuccess, "User created successfully.", "/admin_page")
		return
	}

	h.render(w, r, "admin_create_user", nil)
}

type targetData struct {
	Target *models.User
}

// EditUser handles GET and POST /admin_edit_user/{id}.
func (h *AdminHandler) EditUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	target, err := h.Users.Get(r.Context(), id)
	if err != nil {
		h.formError(w, r, err, "/admin_page")
		return
	}

	if r.Method == http.MethodPost {
		if _, err := h.Users.Update(r.Context(), target.ID, readUserForm(r)); err != nil {
			h.formError(w, r, err, editURL(target.ID))
			return
		}
		h.log.Infow("user updated by staff", "user_id", target.ID, "staff_id", staffID(r))
		h.flashRedirect(w, r, auth.FlashSuccess, "User updated successfully.", "/admin_page")
		return
	}

	h.render(w, r, "admin_edit_user", targetData{Target: target})
}

// DeleteUser handles GET and POST /admin_delete_user/{id}. Only a POST with
// confirm=yes deletes; anything else shows the confirmation page.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	target, err := h.Users.Get(r.Context(), id)
	if err != nil {
		h.formError(w, r, err, "/admin_page")
		return
	}

	if r.Method == http.MethodPost && r.PostFormValue("confirm") == "yes" {
		if err := h.Users.Delete(r.Context(), target.ID); err != nil {
			h.formError(w, r, err, "/admin_page")
			return
		}
		h.log.Infow("user deleted by staff", "user_id", target.ID, "staff_id", staffID(r))
		h.flashRedirect(w, r, auth.FlashSuccess, "User deleted successfully.", "/admin_page")
		return
	}

	h.render(w, r, "delete_confirmation", targetData{Target: target})
}

func userID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}

func staffID(r *http.Request) int64 {
	if u, ok := auth.CurrentUser(r.Context()); ok {
		return u.ID
	}
	return 0
}

func editURL(id int64) string {
	return fmt.Sprintf("/admin_edit_user/%d/", id)
}
