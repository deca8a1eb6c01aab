package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"

	secrets "github.com/nishantjakane/Secrets"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// PageData is the data handed to every template.
type PageData struct {
	Session *secrets.Session
	Error   string
	Users   []*secrets.User
}

// Renderer renders the embedded HTML templates. The set is parsed once at
// startup; pages are addressed by file name ("home.html", "login.html", ...).
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl}, nil
}

func (re *Renderer) Render(w http.ResponseWriter, name string, data *PageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := re.tmpl.ExecuteTemplate(w, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("error rendering template")
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
	}
}
