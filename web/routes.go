package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	oauth2lib "golang.org/x/oauth2"

	secrets "github.com/nishantjakane/Secrets"
	"github.com/nishantjakane/Secrets/oauth2"
)

// App wires the authenticators, session manager and store to the HTTP
// route table.
type App struct {
	store    secrets.UserStore
	sessions *secrets.SessionManager
	local    *secrets.LocalAuth
	google   *oauth2.GoogleOAuth2
	facebook *oauth2.FacebookOAuth2
	renderer *Renderer
	logger   zerolog.Logger
}

func New(logger zerolog.Logger, store secrets.UserStore, sessions *secrets.SessionManager, google *oauth2.GoogleOAuth2, facebook *oauth2.FacebookOAuth2) (*App, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	app := &App{
		store:    store,
		sessions: sessions,
		google:   google,
		facebook: facebook,
		renderer: renderer,
		logger:   logger,
	}

	app.local = &secrets.LocalAuth{
		Store:         store,
		HandleUser:    app.handleAuthenticatedUser,
		OnSignupError: secrets.RedirectOnError("/register"),
		OnLoginError:  secrets.RedirectOnError("/login"),
	}

	if app.google != nil {
		app.google.HandleUser = app.handleOAuthUser
	}
	if app.facebook != nil {
		app.facebook.HandleUser = app.handleOAuthUser
	}

	return app, nil
}

// handleAuthenticatedUser is the success hand-off for local signup/login:
// establish the session and go to the secrets page.
func (app *App) handleAuthenticatedUser(provider string, user *secrets.User, w http.ResponseWriter, r *http.Request) {
	app.sessions.Login(user, w, r)
	app.logger.Info().Str("provider", provider).Str("user_id", user.ID).Msg("user logged in")
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

// handleOAuthUser is the success hand-off for provider callbacks: find or
// create the user for the provider-assigned id, then log them in.
func (app *App) handleOAuthUser(provider string, token *oauth2lib.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
	externalID := fmt.Sprint(userInfo["id"])
	if externalID == "" || externalID == "<nil>" {
		app.logger.Warn().Str("provider", provider).Msg("oauth profile missing id")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	user, err := app.store.FindOrCreateByProvider(r.Context(), provider, externalID)
	if err != nil {
		app.logger.Error().Err(err).Str("provider", provider).Msg("find-or-create failed")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	app.handleAuthenticatedUser(provider, user, w, r)
}

// Handler builds the full middleware chain: request logging, session
// load/save, user extraction, then the route table.
func (app *App) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", app.home).Methods(http.MethodGet)
	r.HandleFunc("/register", app.registerForm).Methods(http.MethodGet)
	r.HandleFunc("/register", app.local.HandleSignup).Methods(http.MethodPost)
	r.HandleFunc("/login", app.loginForm).Methods(http.MethodGet)
	r.HandleFunc("/login", app.local.HandleLogin).Methods(http.MethodPost)

	if app.google != nil {
		r.HandleFunc("/auth/google", app.google.RedirectHandler()).Methods(http.MethodGet)
		r.HandleFunc("/auth/google/secrets", app.google.HandleCallback).Methods(http.MethodGet)
	}
	if app.facebook != nil {
		r.HandleFunc("/auth/facebook", app.facebook.RedirectHandler()).Methods(http.MethodGet)
		r.HandleFunc("/auth/facebook/callback", app.facebook.HandleCallback).Methods(http.MethodGet)
	}

	r.HandleFunc("/secrets", app.secretsPage).Methods(http.MethodGet)
	r.HandleFunc("/logout", app.logout).Methods(http.MethodGet)
	r.Handle("/submit", app.sessions.EnsureUser("/login", http.HandlerFunc(app.submitForm))).Methods(http.MethodGet)
	r.Handle("/submit", app.sessions.EnsureUser("/login", http.HandlerFunc(app.submitPost))).Methods(http.MethodPost)

	r.PathPrefix("/static/").Handler(http.FileServer(http.FS(staticFS)))

	var h http.Handler = r
	h = app.sessions.ExtractUser(h)
	h = app.sessions.Session.LoadAndSave(h)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", duration).
			Msg("request")
	})(h)
	h = hlog.NewHandler(app.logger)(h)
	return h
}

func (app *App) home(w http.ResponseWriter, r *http.Request) {
	app.renderer.Render(w, "home.html", &PageData{Session: secrets.CurrentSession(r)})
}

func (app *App) registerForm(w http.ResponseWriter, r *http.Request) {
	app.renderer.Render(w, "register.html", &PageData{
		Session: secrets.CurrentSession(r),
		Error:   errorMessage(r.URL.Query().Get("error")),
	})
}

func (app *App) loginForm(w http.ResponseWriter, r *http.Request) {
	app.renderer.Render(w, "login.html", &PageData{
		Session: secrets.CurrentSession(r),
		Error:   errorMessage(r.URL.Query().Get("error")),
	})
}

// secretsPage is public: anyone may read the shared secrets.
func (app *App) secretsPage(w http.ResponseWriter, r *http.Request) {
	users, err := app.store.ListUsersWithSecrets(r.Context())
	if err != nil {
		app.logger.Error().Err(err).Msg("error listing secrets")
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return
	}
	app.renderer.Render(w, "secrets.html", &PageData{
		Session: secrets.CurrentSession(r),
		Users:   users,
	})
}

func (app *App) logout(w http.ResponseWriter, r *http.Request) {
	app.sessions.Logout(w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (app *App) submitForm(w http.ResponseWriter, r *http.Request) {
	app.renderer.Render(w, "submit.html", &PageData{Session: secrets.CurrentSession(r)})
}

func (app *App) submitPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/submit", http.StatusFound)
		return
	}
	secret := r.FormValue("secret")
	if secret == "" {
		http.Redirect(w, r, "/submit", http.StatusFound)
		return
	}

	sess := secrets.CurrentSession(r)
	if err := app.store.SetSecret(r.Context(), sess.UserID, secret); err != nil {
		app.logger.Error().Err(err).Str("user_id", sess.UserID).Msg("error saving secret")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

// errorMessage maps error codes from redirect query params to the text the
// forms display.
func errorMessage(code string) string {
	switch code {
	case "":
		return ""
	case secrets.ErrCodeUsernameTaken:
		return "That username is already taken."
	case secrets.ErrCodeInvalidCreds:
		return "Invalid username or password."
	case secrets.ErrCodeMissingField:
		return "Username and password are required."
	case secrets.ErrCodeInvalidUsername:
		return "That username is not allowed."
	default:
		return "Something went wrong, please try again."
	}
}
