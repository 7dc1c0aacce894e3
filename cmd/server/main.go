package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Wyydra/callsim/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/callsim/internal/adapter/driven/media/pion"
	repo "github.com/Wyydra/callsim/internal/adapter/driven/persistence/memory"
	"github.com/Wyydra/callsim/internal/adapter/driven/realtime/openai"
	handler "github.com/Wyydra/callsim/internal/adapter/driving/http"
	"github.com/Wyydra/callsim/internal/config"
	"github.com/Wyydra/callsim/internal/core/port"
	"github.com/Wyydra/callsim/internal/core/service"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	setupLogger(cfg)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	minter := openai.NewSessionMinter(openai.MinterConfig{
		APIKey:          cfg.APIKey,
		SessionsURL:     cfg.SessionsURL,
		Model:           cfg.RealtimeModel,
		Voice:           cfg.RealtimeVoice,
		TranscribeModel: cfg.TranscribeModel,
		HTTPClient:      httpClient,
	})
	if cfg.APIKey == "" {
		log.Warn().Msg("No API key configured; /api/session will fail")
	}

	var issuer port.CredentialIssuer = openai.NewMinterIssuer(minter)
	if cfg.CredentialURL != "" {
		issuer = openai.NewCredentialClient(cfg.CredentialURL, httpClient)
		log.Info().Str("url", cfg.CredentialURL).Msg("Using remote credential endpoint")
	}

	var source pion.AudioSource = pion.SilenceSource{}
	if cfg.CaptureFile != "" {
		source = pion.OggFileSource{Path: cfg.CaptureFile}
	}
	newSink := pion.NewDiscardSink
	if cfg.RecordFile != "" {
		newSink = pion.NewOggRecorderFactory(cfg.RecordFile)
	}

	factory, err := pion.NewFactory(pion.Config{
		Issuer:        issuer,
		Exchanger:     openai.NewSDPClient(cfg.RealtimeURL, cfg.RealtimeModel, httpClient),
		Source:        source,
		NewSink:       newSink,
		Voice:         cfg.RealtimeVoice,
		ICEServers:    cfg.ICEServers,
		GatherTimeout: cfg.GatherTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up media engine")
	}

	personaRepo := repo.NewPersonaRepository()
	hub := ws.NewHub()

	personaService := service.NewPersonaService(personaRepo)
	callService := service.NewCallService(personaService, factory, hub,
		service.WithSettleWindow(cfg.SettleWindow),
		service.WithEndedDelay(cfg.EndedDelay),
	)
	h := handler.NewHandler(callService, personaService, minter, hub, cfg.StaticDir)

	go hub.Run()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	callService.Close()
	hub.Stop()
	log.Info().Msg("Server exited")
}

func setupLogger(cfg config.Config) {
	zerolog.SetGlobalLevel(cfg.LogLevel)
	var l zerolog.Logger
	if cfg.LogPretty {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		l = zerolog.New(os.Stdout)
	}
	log.Logger = l.With().Timestamp().Caller().Logger()
}
