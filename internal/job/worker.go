package job

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/cenkalti/backoff/v4"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
	"github.com/MrJamesThe3rd/docforge/internal/generation"
)

const handlerName = "generate_documents"

type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxElapsed      time.Duration
}

type WorkerOptions struct {
	Topic  string
	Retry  RetryPolicy
	Logger *slog.Logger
}

// Worker consumes generation requests. Retryable failures are retried with
// exponential backoff; every message is acked once its outcome is recorded.
type Worker struct {
	router    *message.Router
	generator Generator
	repo      Repository
	retry     RetryPolicy
	logger    *slog.Logger
}

func NewWorker(subscriber message.Subscriber, generator Generator, repo Repository, opts WorkerOptions) (*Worker, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 30 * time.Second}, watermillLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.CorrelationID,
	)

	w := &Worker{
		router:    router,
		generator: generator,
		repo:      repo,
		retry:     opts.Retry,
		logger:    logger.With("component", "worker"),
	}

	router.AddNoPublisherHandler(handlerName, opts.Topic, subscriber, w.handle)

	return w, nil
}

// Run blocks until ctx is cancelled or the worker is closed.
func (w *Worker) Run(ctx context.Context) error {
	return w.router.Run(ctx)
}

// Running is closed once the worker consumes messages.
func (w *Worker) Running() chan struct{} {
	return w.router.Running()
}

func (w *Worker) Close() error {
	return w.router.Close()
}

func (w *Worker) handle(msg *message.Message) error {
	var p payload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		w.logger.Error("dropping undecodable generation request", "message_uuid", msg.UUID, "error", err)
		return nil
	}

	ctx := msg.Context()
	log := w.logger.With("request_id", p.RequestID, "document_id", p.DocumentID)

	res, err := w.generate(ctx, log, p)
	if err != nil {
		log.Error("generation request failed", "reason", apperr.Reason(err), "error", err)

		if markErr := w.repo.MarkFailed(ctx, p.RequestID, apperr.Reason(err), err.Error()); markErr != nil {
			return fmt.Errorf("recording failed request: %w", markErr)
		}

		return nil
	}

	if err := w.repo.MarkSucceeded(ctx, p.RequestID, res.VersionID, res.DocNumber); err != nil {
		return fmt.Errorf("recording succeeded request: %w", err)
	}

	log.Info("document generated", "doc_number", res.DocNumber, "version_id", res.VersionID)

	return nil
}

func (w *Worker) generate(ctx context.Context, log *slog.Logger, p payload) (*generation.Result, error) {
	b := backoff.NewExponentialBackOff()
	if w.retry.InitialInterval > 0 {
		b.InitialInterval = w.retry.InitialInterval
	}

	b.MaxElapsedTime = w.retry.MaxElapsed

	var res *generation.Result

	op := func() error {
		var err error

		res, err = w.generator.Generate(ctx, p.DocumentID, p.ActorID)
		if err != nil && !apperr.Retryable(err) {
			return backoff.Permanent(err)
		}

		return err
	}

	notify := func(err error, next time.Duration) {
		log.Warn("retrying generation", "in", next, "error", err)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, w.retry.MaxRetries), ctx), notify)
	if err != nil {
		return nil, err
	}

	return res, nil
}
