// Package retry wraps the poller's work submission in exponential backoff.
// The engine core never retries internally; transient failures bubble out to
// the caller, and this is where the draw poller absorbs them.
package retry

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Operation func() error

// ExponentialConfig bounds one backoff run. MaxElapsedTime caps the whole
// run so a persistently failing poll gives up before the next tick piles on.
type ExponentialConfig struct {
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
	OnRetry         func(err error, next time.Duration)
}

// Exponential runs fn until it succeeds or the configured elapsed-time cap
// is exceeded, notifying OnRetry before every new attempt.
func Exponential(fn Operation, cfg ExponentialConfig) error {
	if cfg.InitialInterval <= 0 {
		return errors.New("initial interval must be > 0")
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	if cfg.MaxElapsedTime > 0 {
		bo.MaxElapsedTime = cfg.MaxElapsedTime
	}

	notify := func(err error, next time.Duration) {
		if cfg.OnRetry != nil {
			cfg.OnRetry(err, next)
		}
	}
	return backoff.RetryNotify(backoff.Operation(fn), bo, notify)
}
