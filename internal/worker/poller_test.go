package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckypool/lottery-engine/internal/engine"
	"github.com/luckypool/lottery-engine/internal/token"
	"github.com/luckypool/lottery-engine/pkg/common/config"
	"github.com/luckypool/lottery-engine/pkg/events"
	"github.com/luckypool/lottery-engine/pkg/infra"
	"github.com/luckypool/lottery-engine/pkg/kvstore"
)

type signalOracle struct {
	mu       sync.Mutex
	requests []string
	notify   chan struct{}
}

func (o *signalOracle) RequestRandomness(requestID string, count int) error {
	o.mu.Lock()
	o.requests = append(o.requests, requestID)
	o.mu.Unlock()
	select {
	case o.notify <- struct{}{}:
	default:
	}
	return nil
}

func (o *signalOracle) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.requests)
}

func newTestEngine(t *testing.T) (*engine.Engine, *signalOracle) {
	t.Helper()

	kv, err := kvstore.NewBadgerStore(t.TempDir(), "lottery", infra.JSON)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	cfg := config.Defaults()
	cfg.Game.AdminAccount = "admin"

	eng, err := engine.New(cfg, kv, token.NewLedger(kv), events.NopEmitter{})
	require.NoError(t, err)

	orc := &signalOracle{notify: make(chan struct{}, 1)}
	eng.WithOracle(orc)

	// Backdating the checkpoint makes the draw due right away.
	require.NoError(t, eng.ForceSetLastDrawTime("admin", 0))
	return eng, orc
}

func TestPoll(t *testing.T) {
	eng, orc := newTestEngine(t)
	p := NewDrawPoller(context.Background(), eng, time.Minute)

	require.NoError(t, p.poll())
	assert.Equal(t, 1, orc.count())

	// The request is outstanding, so further polls are clean no-ops.
	require.NoError(t, p.poll())
	assert.Equal(t, 1, orc.count())
}

func TestPollerLoop(t *testing.T) {
	eng, orc := newTestEngine(t)
	p := NewDrawPoller(context.Background(), eng, 10*time.Millisecond)

	p.Start()
	defer p.Stop()

	select {
	case <-orc.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("poller never triggered the draw")
	}

	status, err := eng.Status()
	require.NoError(t, err)
	assert.True(t, status.PendingDraw.Outstanding())
}

func TestPollerStop(t *testing.T) {
	eng, _ := newTestEngine(t)
	p := NewDrawPoller(context.Background(), eng, time.Hour)

	p.Start()
	p.Stop()

	// Stop is idempotent.
	p.Stop()
}
