// Package oracle defines the randomness boundary. Requests go out through
// Oracle; fulfillments come back later through the callback, correlated by an
// opaque request id. Nothing here assumes the callback is prompt, or that it
// arrives at all.
package oracle

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"
)

// Callback delivers fulfilled randomness back into the engine.
type Callback func(requestID string, values []uint64) error

type Oracle interface {
	// RequestRandomness registers a request for count random values. The
	// values arrive asynchronously via the callback.
	RequestRandomness(requestID string, count int) error
}

// LocalOracle derives randomness from an HMAC chain over a per-process seed
// and the request id, then delivers it on a separate goroutine after a fixed
// delay. It stands in for an external VRF in development and tests.
type LocalOracle struct {
	seed     []byte
	delay    time.Duration
	callback Callback
}

func NewLocalOracle(delay time.Duration, callback Callback) (*LocalOracle, error) {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("seed oracle: %w", err)
	}
	return &LocalOracle{
		seed:     seed,
		delay:    delay,
		callback: callback,
	}, nil
}

func (o *LocalOracle) RequestRandomness(requestID string, count int) error {
	if count <= 0 {
		return fmt.Errorf("invalid randomness count: %d", count)
	}

	values := make([]uint64, count)
	for i := range values {
		mac := hmac.New(sha256.New, o.seed)
		fmt.Fprintf(mac, "%s:%d", requestID, i)
		values[i] = binary.BigEndian.Uint64(mac.Sum(nil)[:8])
	}

	go func() {
		if o.delay > 0 {
			time.Sleep(o.delay)
		}
		_ = o.callback(requestID, values)
	}()
	return nil
}
