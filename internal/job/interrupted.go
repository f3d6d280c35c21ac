package job

import (
	"context"
	"fmt"
	"time"
)

// ReasonInterrupted is the failure reason of requests whose queued message
// was lost.
const ReasonInterrupted = "interrupted"

// FailInterrupted fails the requests left pending by an earlier process. The
// memory driver keeps queued messages in that process only, so they can no
// longer be delivered once it has exited.
func FailInterrupted(ctx context.Context, repo Repository, startedAt time.Time) (int64, error) {
	n, err := repo.FailPending(ctx, startedAt, ReasonInterrupted, "the service restarted before the request was processed, generate again")
	if err != nil {
		return 0, fmt.Errorf("failing interrupted requests: %w", err)
	}

	return n, nil
}
