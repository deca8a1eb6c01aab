package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	secrets "github.com/nishantjakane/Secrets"
	"github.com/nishantjakane/Secrets/oauth2"
	"github.com/nishantjakane/Secrets/stores"
	gormstores "github.com/nishantjakane/Secrets/stores/gorm"
	"github.com/nishantjakane/Secrets/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found")
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if os.Getenv("LOG_FORMAT") == "json" {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	log.Logger = logger

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	signingKey := strings.TrimSpace(os.Getenv("SECRET"))
	if signingKey == "" {
		// Sessions will not survive a restart without a configured key.
		signingKey = randomKey()
		logger.Warn().Msg("SECRET not set, using an ephemeral signing key")
	}

	store, err := openStore(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open user store")
	}

	session := scs.New()
	session.Lifetime = 24 * time.Hour
	session.Cookie.HttpOnly = true

	sessions := secrets.NewSessionManager(session, store, signingKey)

	google := oauth2.NewGoogleOAuth2("", "", "", nil)
	facebook := oauth2.NewFacebookOAuth2("", "", "", nil)

	app, err := web.New(logger, store, sessions, google, facebook)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build app")
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: app.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server listen error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}

// openStore picks the persistence backend from DATABASE_URL: empty means the
// JSON file store under ./data, a postgres URL means the postgres driver,
// anything else is treated as a sqlite file path.
func openStore(logger zerolog.Logger) (secrets.UserStore, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Info().Msg("DATABASE_URL not set, using file store under ./data")
		return stores.NewFSUserStore("./data"), nil
	}

	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	if err := gormstores.AutoMigrate(db); err != nil {
		return nil, err
	}
	return gormstores.NewUserStore(db), nil
}

func randomKey() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}
