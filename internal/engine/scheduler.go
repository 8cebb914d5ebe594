package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/luckypool/lottery-engine/pkg/common/types"
	"github.com/luckypool/lottery-engine/pkg/events"
	"github.com/luckypool/lottery-engine/pkg/infra"
)

// WorkKind is what the external poller learns from DueWork and what
// PerformWork reports back.
type WorkKind string

const (
	WorkNone        WorkKind = ""
	WorkDraw        WorkKind = "draw"
	WorkMaintenance WorkKind = "maintenance"
)

// Work describes the currently due scheduler action.
type Work struct {
	Kind    WorkKind
	GameDay int64
}

// DueWork is the pure side of the two-phase scheduler hook: a read-only
// answer to "is work due, and what kind". Safe to call at any time, from any
// number of pollers.
func (e *Engine) DueWork() (Work, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dueWorkLocked()
}

func (e *Engine) dueWorkLocked() (Work, error) {
	st, err := e.schedulerState()
	if err != nil {
		return Work{}, err
	}
	if !st.AutomationActive || st.EmergencyPause {
		return Work{}, nil
	}

	pending, err := e.pools.GetPendingDraw()
	if err != nil {
		return Work{}, err
	}
	if pending.Outstanding() {
		// Awaiting fulfillment; nothing to trigger until the callback
		// lands. If it never does, only the admin levers get us out.
		return Work{}, nil
	}

	now := e.now().Unix()
	day := st.GameDayAt(now)

	if now >= st.LastDrawTime+st.DrawIntervalSec {
		d, err := e.days.GetDay(day)
		if err != nil {
			return Work{}, err
		}
		if d == nil || !d.Drawn {
			return Work{Kind: WorkDraw, GameDay: day}, nil
		}
	}

	if st.MaintenanceGapSec > 0 && now >= st.LastMaintenanceTime+st.MaintenanceGapSec {
		return Work{Kind: WorkMaintenance, GameDay: day}, nil
	}
	return Work{}, nil
}

// PerformWork is the mutating side of the scheduler hook. It re-validates
// every guard before acting, so duplicate or stale triggers from racing
// pollers degrade to a clean no-op (WorkNone) rather than a second draw.
func (e *Engine) PerformWork() (WorkKind, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	work, err := e.dueWorkLocked()
	if err != nil {
		return WorkNone, err
	}

	switch work.Kind {
	case WorkDraw:
		return WorkDraw, e.requestDrawLocked(work.GameDay)
	case WorkMaintenance:
		return WorkMaintenance, e.runMaintenanceLocked()
	default:
		return WorkNone, nil
	}
}

// requestDrawLocked records the single outstanding draw request and hands it
// to the oracle. The pending record is committed before the oracle call so a
// fast callback cannot outrun its own registration; if the oracle rejects
// the request the record is rolled back.
func (e *Engine) requestDrawLocked(day int64) error {
	if e.oracle == nil {
		return fmt.Errorf("%w: no oracle configured", ErrRandomnessRequest)
	}

	pending := types.PendingDrawRequest{
		RequestID: uuid.NewString(),
		GameDay:   day,
		IssuedAt:  e.now().Unix(),
	}

	b := infra.Batch{}
	e.pools.StagePendingDraw(b, pending)
	if err := e.kv.SetManyAny(b); err != nil {
		return fmt.Errorf("commit draw request: %w", err)
	}

	if err := e.oracle.RequestRandomness(pending.RequestID, e.pickCount); err != nil {
		rollback := infra.Batch{}
		e.pools.StagePendingDraw(rollback, types.PendingDrawRequest{})
		if rbErr := e.kv.SetManyAny(rollback); rbErr != nil {
			return fmt.Errorf("%w: %v (rollback also failed: %v)", ErrRandomnessRequest, err, rbErr)
		}
		return fmt.Errorf("%w: %v", ErrRandomnessRequest, err)
	}

	e.log.Info("Draw requested", "request_id", pending.RequestID, "game_day", day)
	if err := e.emitter.EmitDrawRequested(day, events.DrawRequested{
		RequestID: pending.RequestID,
	}); err != nil {
		e.log.Warn("Emit draw requested failed", "err", err)
	}
	return nil
}

// runMaintenanceLocked is the non-draw housekeeping path: advance the
// maintenance checkpoint and let the KV store compact itself if it can.
func (e *Engine) runMaintenanceLocked() error {
	st, err := e.schedulerState()
	if err != nil {
		return err
	}
	st.LastMaintenanceTime = e.now().Unix()

	b := infra.Batch{}
	e.pools.StageSchedulerState(b, st)
	if err := e.kv.SetManyAny(b); err != nil {
		return fmt.Errorf("commit maintenance: %w", err)
	}

	if gc, ok := e.kv.(interface{ RunGC() error }); ok {
		if err := gc.RunGC(); err != nil {
			e.log.Debug("KV garbage collection skipped", "err", err)
		}
	}

	e.log.Info("Maintenance completed")
	return nil
}
