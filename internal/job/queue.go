package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
)

// Queue records generation requests and publishes them for a Worker.
type Queue struct {
	publisher message.Publisher
	topic     string
	repo      Repository
}

func NewQueue(publisher message.Publisher, topic string, repo Repository) *Queue {
	return &Queue{publisher: publisher, topic: topic, repo: repo}
}

// Enqueue stores a pending request and publishes it. A request that could
// not be published is marked failed before returning.
func (q *Queue) Enqueue(ctx context.Context, tenantID, documentID, actorID uuid.UUID) (*Request, error) {
	req := &Request{
		DocumentID: documentID,
		TenantID:   tenantID,
		ActorID:    actorID,
		Status:     StatusPending,
	}

	if err := q.repo.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("recording generation request: %w", err)
	}

	body, err := json.Marshal(payload{RequestID: req.ID, DocumentID: documentID, ActorID: actorID})
	if err != nil {
		return nil, fmt.Errorf("encoding generation request: %w", err)
	}

	msg := message.NewMessage(req.ID.String(), body)
	middleware.SetCorrelationID(req.ID.String(), msg)

	if err := q.publisher.Publish(q.topic, msg); err != nil {
		err = apperr.Mark(fmt.Errorf("publishing generation request: %w", err), apperr.ErrStoreUnavailable)

		if markErr := q.repo.MarkFailed(ctx, req.ID, apperr.Reason(err), err.Error()); markErr != nil {
			return nil, fmt.Errorf("%w (recording failure: %v)", err, markErr)
		}

		return nil, err
	}

	return req, nil
}
