package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sourcegraph/conc"

	"github.com/MrJamesThe3rd/docforge/internal/artifact"
	"github.com/MrJamesThe3rd/docforge/internal/config"
	"github.com/MrJamesThe3rd/docforge/internal/convert"
	"github.com/MrJamesThe3rd/docforge/internal/database"
	"github.com/MrJamesThe3rd/docforge/internal/document"
	documentStore "github.com/MrJamesThe3rd/docforge/internal/document/store"
	"github.com/MrJamesThe3rd/docforge/internal/generation"
	docforgeHttp "github.com/MrJamesThe3rd/docforge/internal/http"
	"github.com/MrJamesThe3rd/docforge/internal/http/auth"
	documentsHandler "github.com/MrJamesThe3rd/docforge/internal/http/documents"
	templatesHandler "github.com/MrJamesThe3rd/docforge/internal/http/templates"
	"github.com/MrJamesThe3rd/docforge/internal/job"
	jobStore "github.com/MrJamesThe3rd/docforge/internal/job/store"
	"github.com/MrJamesThe3rd/docforge/internal/render"
	"github.com/MrJamesThe3rd/docforge/internal/sequence"
	sequenceStore "github.com/MrJamesThe3rd/docforge/internal/sequence/store"
	"github.com/MrJamesThe3rd/docforge/internal/templates"
	templateStore "github.com/MrJamesThe3rd/docforge/internal/templates/store"
)

func main() {
	startedAt := time.Now()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	store, err := artifact.Open(ctx, cfg.Storage.Driver, artifact.S3Options{
		Endpoint:     cfg.Storage.Endpoint,
		Region:       cfg.Storage.Region,
		Bucket:       cfg.Storage.Bucket,
		AccessKey:    cfg.Storage.AccessKey,
		SecretKey:    cfg.Storage.SecretKey,
		UsePathStyle: cfg.Storage.UsePathStyle,
	})
	if err != nil {
		slog.Error("failed to open artifact store", "error", err)
		os.Exit(1)
	}

	pubsub, err := job.NewPubSub(job.PubSubOptions{
		Driver:        cfg.Queue.Driver,
		Brokers:       cfg.Queue.Brokers,
		ConsumerGroup: cfg.Queue.ConsumerGroup,
	})
	if err != nil {
		slog.Error("failed to create queue", "error", err)
		os.Exit(1)
	}
	defer pubsub.Close()

	var (
		engine          = render.NewEngine()
		jobs            = jobStore.New(db)
		documentRepo    = documentStore.New(db)
		templateService = templates.NewService(templateStore.New(db), store, engine,
			templates.WithLogger(slog.Default().With("component", "templates")))
		documentService = document.NewService(documentRepo, templateService)
	)

	orchestrator := generation.New(
		documentRepo,
		generation.NewCachedTemplateSource(templateService, cfg.Templates.CacheTTL),
		sequence.NewAllocator(sequenceStore.New(db)),
		engine,
		store,
		convert.NewGotenberg(convert.Options{
			URL:      cfg.Converter.URL,
			Timeout:  cfg.Converter.Timeout,
			RetryMax: cfg.Converter.RetryMax,
		}),
		generation.WithLogger(slog.Default().With("component", "generation")),
	)

	if !job.Durable(cfg.Queue.Driver) {
		n, err := job.FailInterrupted(ctx, jobs, startedAt)
		if err != nil {
			slog.Error("failed to fail interrupted requests", "error", err)
			os.Exit(1)
		}

		if n > 0 {
			slog.Warn("failed requests lost by a restart", "count", n)
		}
	}

	worker, err := job.NewWorker(pubsub.Subscriber, orchestrator, jobs, job.WorkerOptions{
		Topic:  cfg.Queue.Topic,
		Logger: slog.Default().With("component", "worker"),
		Retry: job.RetryPolicy{
			MaxRetries:      cfg.Queue.MaxRetries,
			InitialInterval: cfg.Queue.InitialInterval,
			MaxElapsed:      cfg.Queue.MaxElapsed,
		},
	})
	if err != nil {
		slog.Error("failed to create worker", "error", err)
		os.Exit(1)
	}

	var (
		templatesH = templatesHandler.NewHandler(templateService)
		documentsH = documentsHandler.NewHandler(
			documentService,
			job.NewQueue(pubsub.Publisher, cfg.Queue.Topic, jobs),
			job.NewTracker(documentService, jobs),
			store,
			cfg.Storage.PresignTTL,
		)
	)

	router := docforgeHttp.New(templatesH, documentsH, docforgeHttp.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Authenticate:   auth.Middleware([]byte(cfg.Auth.JWTSecret)),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
	}

	var wg conc.WaitGroup

	wg.Go(func() {
		if err := worker.Run(ctx); err != nil {
			slog.Error("worker failed", "error", err)
			stop()
		}
	})

	wg.Go(func() {
		slog.Info("starting server", "port", server.Addr)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	})

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}

	if err := worker.Close(); err != nil {
		slog.Error("failed to close worker", "error", err)
	}

	wg.Wait()
}
