package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"usermanagement/auth"
	"usermanagement/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTitles = map[string]string{
	"register":            "Register",
	"login":               "Log in",
	"home":                "Home",
	"admin_login":         "Admin login",
	"admin_page":          "Users",
	"admin_create_user":   "Create user",
	"admin_edit_user":     "Edit user",
	"delete_confirmation": "Delete user",
	"not_found":           "Not found",
	"error":               "Error",
}

// Views renders the HTML pages. Each page is parsed together with the
// shared layout.
type Views struct {
	pages    map[string]*template.Template
	sessions *auth.SessionManager
}

func NewViews(sessions *auth.SessionManager) (*Views, error) {
	v := &Views{pages: make(map[string]*template.Template, len(pageTitles)), sessions: sessions}
	for name := range pageTitles {
		t, err := template.New("layout.html").ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

type pageData struct {
	Title   string
	Flashes []auth.Flash
	User    *models.User
	Data    any
}

// Render consumes pending flashes and writes the named page.
func (v *Views) Render(w http.ResponseWriter, r *http.Request, status int, name string, data any) error {
	t, ok := v.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	flashes, err := v.sessions.Flashes(w, r)
	if err != nil {
		return fmt.Errorf("read flashes: %w", err)
	}
	user, _ := auth.CurrentUser(r.Context())

	var buf bytes.Buffer
	if err := t.Execute(&buf, pageData{Title: pageTitles[name], Flashes: flashes, User: user, Data: data}); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}
