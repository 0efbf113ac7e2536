package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"usermanagement/auth"
	"usermanagement/handlers"
	"usermanagement/services"
)

type Deps struct {
	Users    *services.UserService
	Sessions *auth.SessionManager
	Views    *handlers.Views
	Store    handlers.Pinger
	Log      *zap.SugaredLogger
}

// SetupRoutes builds the application router with its middleware chain.
func SetupRoutes(d Deps) http.Handler {
	userHandler := handlers.NewUserHandler(d.Users, d.Sessions, d.Views, d.Log)
	adminHandler := handlers.NewAdminHandler(d.Users, d.Sessions, d.Views, d.Log)
	healthHandler := &handlers.HealthHandler{Store: d.Store, Log: d.Log}

	r := mux.NewRouter()

	// User routes
	r.HandleFunc("/", userHandler.Register).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/login_page", userHandler.Login).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/home_page", requireLogin(userHandler.Home)).Methods(http.MethodGet)
	r.HandleFunc("/logout_page", userHandler.Logout).Methods(http.MethodGet, http.MethodPost)

	// Admin routes
	r.HandleFunc("/admin_login", adminHandler.Login).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/admin_logout", adminHandler.Logout).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/admin_page", requireStaff(adminHandler.Roster)).Methods(http.MethodGet)
	r.HandleFunc("/admin_create_user", requireStaff(adminHandler.CreateUser)).Methods(http.MethodGet, http.MethodPost)
	for _, path := range []string{"/admin_edit_user/{id}", "/admin_edit_user/{id}/"} {
		r.HandleFunc(path, requireStaff(adminHandler.EditUser)).Methods(http.MethodGet, http.MethodPost)
	}
	for _, path := range []string{"/admin_delete_user/{id}", "/admin_delete_user/{id}/"} {
		r.HandleFunc(path, requireStaff(adminHandler.DeleteUser)).Methods(http.MethodGet, http.MethodPost)
	}

	r.HandleFunc("/healthz", healthHandler.Health).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(userHandler.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	// Middleware applied to matched routes only.
	r.Use(mux.MiddlewareFunc(Identity(d.Sessions, d.Users, d.Log)))

	// Outer chain wraps everything, including the not-found handlers.
	var h http.Handler = r
	h = NoCache(h)
	h = SecurityHeaders(h)
	h = handlers.RecoverWrapper(d.Log)(h)
	h = Logging(d.Log)(h)
	h = RequestID(h)
	return h
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
