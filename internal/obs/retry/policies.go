package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// MailPolicy bounds SMTP delivery attempts. Mail is best-effort after the
// store write, so the budget stays short.
func MailPolicy(log *zap.Logger) Policy {
	return Policy{
		Name:     "mail",
		Attempts: 3,
		Backoff:  ExpoJitter{Base: 300 * time.Millisecond, Max: 3 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("mail retry", zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("mail retries exhausted", zap.Error(err))
			}
		},
	}
}

// EventsPolicy bounds Kafka publish attempts for the security-event stream.
func EventsPolicy(log *zap.Logger) Policy {
	return Policy{
		Name:     "events",
		Attempts: 4,
		Backoff:  ExpoJitter{Base: 200 * time.Millisecond, Max: 5 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("events retry", zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("events retries exhausted", zap.Error(err))
			}
		},
	}
}
