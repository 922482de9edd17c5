package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/bakery_shop/internal/events"
	"github.com/Skotchmaster/bakery_shop/internal/logging"
)

const publishTimeout = 5 * time.Second

// publish runs after the write has committed, so a broker failure is logged
// and never fails the request.
func publish(ctx context.Context, p events.Publisher, topic, key string, payload any) {
	if p == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.Publish(pctx, topic, key, payload); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "topic", topic, "key", key, "error", err)
	}
}
