package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/httprate"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"tennisweb/adapters/backend"
	"tennisweb/ai"
	"tennisweb/app"
	"tennisweb/internal/config"
	"tennisweb/internal/ops"
	"tennisweb/internal/session"
	"tennisweb/ports"
	"tennisweb/ui"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration load failed")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	gin.SetMode(cfg.Server.GinMode)

	backendClient := &http.Client{Timeout: cfg.Backend.Timeout}
	llmClient := ai.NewClient(&http.Client{Timeout: cfg.AI.Timeout}, log)
	resolver := ai.NewResolver(cfg.AI)

	matchSvc := app.NewMatchService(llmClient, resolver, cfg.AI.Temperature, cfg.AI.MaxTokens, log)
	chatSvc := app.NewChatService(llmClient, resolver, log)

	newGateway := func(token string) ports.MatchBackend {
		sess := session.NewBearer(token, backendClient, log)
		return backend.New(cfg.Backend.BaseURL, sess, backendClient, log)
	}

	server := ui.NewServer(matchSvc, chatSvc, newGateway, log)
	handler := httprate.LimitByIP(cfg.RateLimit.Requests, cfg.RateLimit.Window)(server.Handler())

	webSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	opsSrv := &http.Server{
		Addr:              cfg.Ops.Addr,
		Handler:           ops.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.Ops.Addr).Msg("ops listener starting")
		if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("ops listener failed")
		}
	}()
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("server starting")
		if err := webSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := webSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("ops shutdown failed")
	}
}
