// Package service holds the identity flows and the tenant and user
// administration behind the HTTP handlers. Services return *apperrors.Error
// values; repository errors are mapped here and nowhere else.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/devmadlani/auth-service/internal/apperrors"
	"github.com/devmadlani/auth-service/internal/logger"
	"github.com/devmadlani/auth-service/internal/queue"
)

const msgStorageFailed = "Failed to store data in database"

func storageErr(op string, err error) error {
	return apperrors.Internal(op, msgStorageFailed, err)
}

// notifier publishes events after a change is committed. Failures are
// logged by the publisher and otherwise ignored.
type notifier struct {
	events queue.Publisher
	now    func() time.Time
}

func newNotifier(p queue.Publisher) notifier {
	if p == nil {
		p = queue.NopPublisher{}
	}
	return notifier{events: p, now: time.Now}
}

func (n notifier) publish(ctx context.Context, ev queue.Event) {
	ev.OccurredAt = n.now().UTC().Format(time.RFC3339)
	if err := n.events.Publish(ctx, ev); err != nil {
		logger.FromContext(ctx).Debug("event dropped", zap.String("type", ev.Type), zap.Error(err))
	}
}
