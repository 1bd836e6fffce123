package redis

import (
	"context"
	"time"

	"github.com/jurisflow/prazo/internal/domain/notify"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/pkg/errors"
	"github.com/jurisflow/prazo/pkg/types/common"
)

// AlertDeduper wraps an AlertSink with a Redis SETNX guard so that multiple
// scheduler instances evaluating the same deadline publish at most one alert.
// The scheduler's own state machine already prevents re-fires within one
// process; this guard extends the idempotence across instances.
type AlertDeduper struct {
	client *Client
	sink   notify.AlertSink
	prefix string
	ttl    time.Duration
	logger logging.Logger
}

// NewAlertDeduper constructs an AlertDeduper.  ttl bounds how long the guard
// key lives; it should comfortably exceed the scheduler poll interval.
func NewAlertDeduper(client *Client, sink notify.AlertSink, prefix string, ttl time.Duration, log logging.Logger) *AlertDeduper {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &AlertDeduper{
		client: client,
		sink:   sink,
		prefix: prefix,
		ttl:    ttl,
		logger: log.Named("alert_dedup"),
	}
}

func (a *AlertDeduper) key(id common.ID) string {
	return a.prefix + ":alert:" + string(id)
}

// Publish implements notify.AlertSink.
func (a *AlertDeduper) Publish(ctx context.Context, signal notify.AlertSignal) error {
	claimed, err := a.client.Redis().SetNX(ctx, a.key(signal.DeadlineID), "1", a.ttl).Result()
	if err != nil {
		// With Redis down we fall through to the sink: a possible duplicate
		// alert beats a suppressed one.
		a.logger.Warn("dedup guard unavailable, publishing anyway",
			logging.String("deadline_id", string(signal.DeadlineID)),
			logging.Err(err),
		)
		claimed = true
	}
	if !claimed {
		a.logger.Debug("alert already claimed by another instance",
			logging.String("deadline_id", string(signal.DeadlineID)),
		)
		return nil
	}

	if err := a.sink.Publish(ctx, signal); err != nil {
		// Release the claim so a retry can fire.
		if delErr := a.client.Redis().Del(context.WithoutCancel(ctx), a.key(signal.DeadlineID)).Err(); delErr != nil {
			a.logger.Warn("releasing alert claim failed",
				logging.String("deadline_id", string(signal.DeadlineID)),
				logging.Err(delErr),
			)
		}
		return errors.Wrap(err, errors.ErrCodeAlertDeliveryFailed, "publishing deduplicated alert")
	}
	return nil
}
