// Command server runs the chat backend: mock phone/OTP auth, the chatroom
// directory, simulated conversations, and the snapshot persistence layer,
// exposed as a versioned JSON API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chatspace-dev/go-chatspace-backend/internal/config"
	"github.com/chatspace-dev/go-chatspace-backend/internal/countries"
	httpapi "github.com/chatspace-dev/go-chatspace-backend/internal/http"
	"github.com/chatspace-dev/go-chatspace-backend/internal/observability"
	"github.com/chatspace-dev/go-chatspace-backend/internal/state"
	"github.com/chatspace-dev/go-chatspace-backend/internal/storage"
	"github.com/chatspace-dev/go-chatspace-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// .env is optional; real environments configure via the process env.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx := context.Background()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := storage.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	app := state.NewApp(ctx, storage.NewSQLiteStore(db), state.Options{
		Delays: &state.Delays{
			ChallengeSend:   cfg.Chat.ChallengeSendDelay,
			ChallengeVerify: cfg.Chat.ChallengeVerifyDelay,
			RoomMutate:      cfg.Chat.RoomMutateDelay,
			PageFetch:       cfg.Chat.PageFetchDelay,
			ReplyMin:        cfg.Chat.ReplyMinDelay,
			ReplyMax:        cfg.Chat.ReplyMaxDelay,
		},
		Verifier:  state.DemoVerifier{},
		PageSize:  cfg.Chat.PageSize,
		FetchSize: cfg.Chat.FetchSize,
	})

	countrySrc := countries.NewClient(cfg.Countries.URL, &http.Client{Timeout: cfg.Countries.Timeout})

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, app, db, countrySrc, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info().Msg("stopped")
}
