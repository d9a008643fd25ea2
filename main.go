package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"roastery/internal/auth"
	"roastery/internal/backend"
	"roastery/internal/catalog"
	"roastery/internal/config"
	"roastery/internal/events"
	"roastery/internal/media"
	"roastery/internal/s3"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "roastery: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	cfg := config.Load()

	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "roastery").Logger()

	mediaConfig, err := config.LoadMediaConfig()
	if err != nil {
		return fmt.Errorf("load media config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := s3.NewClient(ctx, cfg.S3Region, cfg.S3Bucket, cfg.AWSAccessKey, cfg.AWSSecretKey, cfg.S3Endpoint)
	if err != nil {
		return fmt.Errorf("create s3 client: %w", err)
	}

	producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaMediaTopic, log)
	defer producer.Close()

	manager := media.NewManager(storage, mediaConfig, cfg.UploadConcurrent, log)
	manager.OnStatusChange(func(id string, from, to media.Status) {
		// Off the upload path: a slow broker must not delay transitions.
		go producer.MediaStatus(context.Background(), id, string(from), string(to))
	})

	tokens := auth.StaticTokenSource(cfg.APIKey)
	client := backend.NewClient(cfg.CoffeeEndpoint, cfg.UserEndpoint, tokens, log)

	mediaHandler := media.NewHandler(manager)
	catalogHandler := catalog.NewHandler(client, manager, producer, log)
	userHandler := backend.NewUserHandler(client, log)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/media", mediaHandler.HandleStage)
	mux.HandleFunc("PUT /v1/media", mediaHandler.HandleSeed)
	mux.HandleFunc("GET /v1/media", mediaHandler.HandleList)
	mux.HandleFunc("DELETE /v1/media/{id}", mediaHandler.HandleRemove)
	mux.HandleFunc("POST /v1/media/upload", mediaHandler.HandleUploadAll)
	mux.HandleFunc("POST /v1/media/{id}/retry", mediaHandler.HandleRetry)

	mux.HandleFunc("GET /v1/listings", catalogHandler.HandleListings)
	mux.HandleFunc("GET /v1/categories", catalogHandler.HandleCategories)
	mux.HandleFunc("GET /v1/listings/wizard", catalogHandler.HandleWizardState)
	mux.HandleFunc("PUT /v1/listings/wizard/draft", catalogHandler.HandleWizardDraft)
	mux.HandleFunc("POST /v1/listings/wizard/next", catalogHandler.HandleWizardNext)
	mux.HandleFunc("POST /v1/listings/wizard/prev", catalogHandler.HandleWizardPrev)
	mux.HandleFunc("POST /v1/listings/wizard/goto", catalogHandler.HandleWizardGoto)
	mux.HandleFunc("POST /v1/listings/wizard/categories", catalogHandler.HandleWizardSelectCategory)
	mux.HandleFunc("DELETE /v1/listings/wizard/categories/{id}", catalogHandler.HandleWizardRemoveCategory)
	mux.HandleFunc("POST /v1/listings/wizard/submit", catalogHandler.HandleWizardSubmit)

	mux.HandleFunc("GET /v1/users/{id}", userHandler.HandleGet)
	mux.HandleFunc("PUT /v1/users/{id}", userHandler.HandleUpdate)

	protected := auth.APIKeyMiddleware(&auth.Config{APIKey: cfg.APIKey})(mux)

	root := http.NewServeMux()
	root.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	root.Handle("/", protected)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      root,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		log.Info().Msg("server exited")
		return nil
	case err := <-errCh:
		return fmt.Errorf("listen and serve: %w", err)
	}
}
