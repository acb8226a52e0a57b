package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"tube2mp3/internal/adapters/ffmpeg"
	"tube2mp3/internal/adapters/httpapi"
	"tube2mp3/internal/adapters/localstage"
	"tube2mp3/internal/adapters/token"
	"tube2mp3/internal/adapters/youtube"
	"tube2mp3/internal/config"
	"tube2mp3/internal/metrics"
	"tube2mp3/internal/service"
)

func main() {
	// Load .env if present; environment variables may also be set directly.
	if err := godotenv.Load(); err != nil {
		l := zerolog.New(os.Stderr)
		l.Info().Msg("no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("invalid configuration")
	}

	log := newLogger(cfg.LogLevel)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	tokens := token.New(cfg.TokenConfig(), cfg.NodePath, log)
	resolver := youtube.New(log)
	stager := localstage.New(cfg.TmpDir, log)
	transcoder := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath, cfg.TmpDir, cfg.AudioBitrate, log)

	pipeline := service.NewPipeline(tokens, resolver, stager, transcoder, service.Timeouts{
		Resolve:   cfg.ResolveTimeout,
		Download:  cfg.DownloadTimeout,
		Transcode: cfg.TranscodeTimeout,
	}, m, log)

	handler := httpapi.New(pipeline, tokens, registry, log)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: responses stream whole audio files.
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.Addr).Str("token_mode", string(cfg.TokenMode)).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown did not complete cleanly")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}
