// Command server runs the review-reply HTTP service.
//
// Startup order:
//  1. Load .env (best effort) and the environment configuration.
//  2. Configure logging (level, optional pretty console output).
//  3. Set up OpenTelemetry tracing (no-op unless OTEL_ENABLED).
//  4. Build the upstream clients, the pipeline service, and the router.
//  5. Serve until SIGINT/SIGTERM, then drain with a shutdown grace period.
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

	"github.com/tbourn/go-review-responder/internal/config"
	"github.com/tbourn/go-review-responder/internal/genai"
	"github.com/tbourn/go-review-responder/internal/gmb"
	httpapi "github.com/tbourn/go-review-responder/internal/http"
	"github.com/tbourn/go-review-responder/internal/observability"
	"github.com/tbourn/go-review-responder/internal/services"
	"github.com/tbourn/go-review-responder/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

const shutdownGrace = 10 * time.Second

func main() {
	// .env is a dev convenience; absence is not an error.
	if !sysutil.IsTruthy(os.Getenv("DOTENV_DISABLE")) {
		_ = godotenv.Load()
	}

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	// Upstream clients
	gmbClient := gmb.NewClient(
		cfg.GMB.BaseURL,
		gmb.StaticTokenSource{AccessToken: cfg.GMB.AccessToken},
		gmb.WithCallTimeout(cfg.GMB.CallTimeout),
		gmb.WithPageInterval(cfg.GMB.PageInterval),
	)
	llmClient := genai.NewClient(
		cfg.OpenAI.BaseURL,
		cfg.OpenAI.APIKey,
		genai.WithModel(cfg.OpenAI.Model),
		genai.WithSampling(cfg.OpenAI.Temperature, cfg.OpenAI.MaxCompletionTokens),
		genai.WithClientHTTP(&http.Client{Timeout: cfg.OpenAI.CallTimeout}),
	)

	generator := genai.NewGenerator(llmClient)
	generator.Persona = sysutil.FirstNonEmpty(cfg.Pipeline.PersonaPrompt, genai.DefaultPersonaPrompt)
	generator.BatchSize = cfg.Pipeline.BatchSize
	generator.Concurrency = cfg.Pipeline.BatchConcurrency

	svc := services.NewReviewReplyService(gmbClient, generator, gmbClient)
	svc.PublishConcurrency = cfg.Pipeline.PublishConcurrency

	// Router
	r := gin.New()
	httpapi.RegisterRoutes(r, svc, cfg)

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
		log.Info().
			Str("addr", srv.Addr).
			Str("base_path", cfg.APIBasePath).
			Str("version", version).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Block until a termination signal arrives, then drain.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown error")
	}
	log.Info().Msg("bye")
}
