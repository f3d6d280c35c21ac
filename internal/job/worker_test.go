package job_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
	"github.com/MrJamesThe3rd/docforge/internal/generation"
	"github.com/MrJamesThe3rd/docforge/internal/job"
)

const topic = "document.generate"

func startWorker(t *testing.T, generator job.Generator, repo job.Repository) *job.Queue {
	t.Helper()

	ps, err := job.NewPubSub(job.PubSubOptions{Driver: job.DriverMemory})
	require.NoError(t, err)

	w, err := job.NewWorker(ps.Subscriber, generator, repo, job.WorkerOptions{
		Topic: topic,
		Retry: job.RetryPolicy{MaxRetries: 2, InitialInterval: time.Millisecond, MaxElapsed: time.Second},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		ps.Close()
	})

	select {
	case <-w.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not start")
	}

	return job.NewQueue(ps.Publisher, topic, repo)
}

func waitForStatus(t *testing.T, repo job.Repository, documentID uuid.UUID, want job.Status) *job.Request {
	t.Helper()

	var got *job.Request

	require.Eventually(t, func() bool {
		r, err := repo.LatestRequest(context.Background(), documentID)
		if err != nil || r == nil {
			return false
		}

		got = r

		return r.Status == want
	}, 5*time.Second, 10*time.Millisecond)

	return got
}

func TestWorker(t *testing.T) {
	versionID := uuid.New()

	tests := []struct {
		name       string
		setupMock  func(g *job.MockGenerator, documentID, actorID uuid.UUID)
		wantStatus job.Status
		wantReason string
	}{
		{
			name: "Succeeds",
			setupMock: func(g *job.MockGenerator, documentID, actorID uuid.UUID) {
				g.EXPECT().Generate(gomock.Any(), documentID, actorID).
					Return(&generation.Result{DocNumber: "FAC-2025-0001", VersionID: versionID}, nil)
			},
			wantStatus: job.StatusSucceeded,
		},
		{
			name: "RetriesStoreOutage",
			setupMock: func(g *job.MockGenerator, documentID, actorID uuid.UUID) {
				outage := apperr.New(apperr.ErrStoreUnavailable, "db down")

				gomock.InOrder(
					g.EXPECT().Generate(gomock.Any(), documentID, actorID).Return(nil, outage),
					g.EXPECT().Generate(gomock.Any(), documentID, actorID).
						Return(&generation.Result{DocNumber: "FAC-2025-0002", VersionID: versionID}, nil),
				)
			},
			wantStatus: job.StatusSucceeded,
		},
		{
			name: "GivesUpAfterMaxRetries",
			setupMock: func(g *job.MockGenerator, documentID, actorID uuid.UUID) {
				g.EXPECT().Generate(gomock.Any(), documentID, actorID).
					Return(nil, apperr.New(apperr.ErrStoreUnavailable, "db down")).
					Times(3)
			},
			wantStatus: job.StatusFailed,
			wantReason: "store_unavailable",
		},
		{
			name: "DataProblemIsNotRetried",
			setupMock: func(g *job.MockGenerator, documentID, actorID uuid.UUID) {
				g.EXPECT().Generate(gomock.Any(), documentID, actorID).
					Return(nil, apperr.New(apperr.ErrMalformedTemplate, "unclosed tag")).
					Times(1)
			},
			wantStatus: job.StatusFailed,
			wantReason: "malformed_template",
		},
		{
			name: "AlreadyGeneratedIsNotRetried",
			setupMock: func(g *job.MockGenerator, documentID, actorID uuid.UUID) {
				g.EXPECT().Generate(gomock.Any(), documentID, actorID).
					Return(nil, apperr.New(apperr.ErrAlreadyGenerated, "not a draft")).
					Times(1)
			},
			wantStatus: job.StatusFailed,
			wantReason: "already_generated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			documentID := uuid.New()
			actorID := uuid.New()

			generator := job.NewMockGenerator(ctrl)
			tt.setupMock(generator, documentID, actorID)

			repo := job.NewMemoryRepository()
			queue := startWorker(t, generator, repo)

			req, err := queue.Enqueue(context.Background(), uuid.New(), documentID, actorID)
			require.NoError(t, err)
			assert.Equal(t, job.StatusPending, req.Status)

			got := waitForStatus(t, repo, documentID, tt.wantStatus)
			assert.Equal(t, req.ID, got.ID)
			assert.Equal(t, tt.wantReason, got.Reason)

			if tt.wantStatus == job.StatusSucceeded {
				require.NotNil(t, got.VersionID)
				assert.Equal(t, versionID, *got.VersionID)
				assert.NotEmpty(t, got.DocNumber)
			}
		})
	}
}

type failingPublisher struct{}

func (failingPublisher) Publish(string, ...*message.Message) error { return errors.New("broker down") }

func (failingPublisher) Close() error { return nil }

func TestQueue_EnqueuePublishFailure(t *testing.T) {
	repo := job.NewMemoryRepository()
	documentID := uuid.New()

	_, err := job.NewQueue(failingPublisher{}, topic, repo).Enqueue(context.Background(), uuid.New(), documentID, uuid.New())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrStoreUnavailable))

	got, err := repo.LatestRequest(context.Background(), documentID)
	require.NoError(t, err)
	assert.Equal(t, job.StatusFailed, got.Status)
	assert.Equal(t, "store_unavailable", got.Reason)
}

func TestNewPubSub_UnknownDriver(t *testing.T) {
	_, err := job.NewPubSub(job.PubSubOptions{Driver: "carrier-pigeon"})
	assert.Error(t, err)
}
