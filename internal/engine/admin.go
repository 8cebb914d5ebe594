package engine

import (
	"fmt"
	"time"

	"github.com/luckypool/lottery-engine/pkg/common/types"
	"github.com/luckypool/lottery-engine/pkg/infra"
)

// The administrative surface exists mostly as recovery levers: the
// randomness-callback liveness risk cannot be resolved from inside the core,
// so a privileged caller can force the scheduler checkpoint or pause the
// game. Every setter takes effect for subsequent operations only.

func (e *Engine) requireAdmin(caller string) error {
	if caller != e.adminAccount {
		return ErrNotAdmin
	}
	return nil
}

func (e *Engine) updateSchedulerState(caller string, mutate func(*types.SchedulerState) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}

	st, err := e.schedulerState()
	if err != nil {
		return err
	}
	if err := mutate(&st); err != nil {
		return err
	}

	b := infra.Batch{}
	e.pools.StageSchedulerState(b, st)
	if err := e.kv.SetManyAny(b); err != nil {
		return fmt.Errorf("commit scheduler state: %w", err)
	}
	return nil
}

func (e *Engine) SetTicketPrice(caller string, price int64) error {
	return e.updateSchedulerState(caller, func(st *types.SchedulerState) error {
		if price <= 0 {
			return fmt.Errorf("ticket price must be positive, got %d", price)
		}
		e.log.Info("Ticket price updated", "old", st.TicketPrice, "new", price)
		st.TicketPrice = price
		return nil
	})
}

func (e *Engine) SetDrawInterval(caller string, interval time.Duration) error {
	return e.updateSchedulerState(caller, func(st *types.SchedulerState) error {
		if interval <= 0 {
			return fmt.Errorf("draw interval must be positive, got %s", interval)
		}
		st.DrawIntervalSec = int64(interval / time.Second)
		return nil
	})
}

func (e *Engine) SetDayAnchorOffset(caller string, offset time.Duration) error {
	return e.updateSchedulerState(caller, func(st *types.SchedulerState) error {
		st.DayAnchorOffsetSec = int64(offset / time.Second)
		return nil
	})
}

// ForceSetLastDrawTime is the emergency recovery lever for a stuck draw
// cycle. It also clears any outstanding randomness request, since forcing
// the checkpoint only makes sense when the callback was abandoned.
func (e *Engine) ForceSetLastDrawTime(caller string, unix int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}

	st, err := e.schedulerState()
	if err != nil {
		return err
	}
	pending, err := e.pools.GetPendingDraw()
	if err != nil {
		return err
	}
	if pending.Outstanding() {
		e.log.Warn("Abandoning outstanding draw request",
			"request_id", pending.RequestID, "game_day", pending.GameDay)
	}
	st.LastDrawTime = unix

	b := infra.Batch{}
	e.pools.StageSchedulerState(b, st)
	e.pools.StagePendingDraw(b, types.PendingDrawRequest{})
	if err := e.kv.SetManyAny(b); err != nil {
		return fmt.Errorf("commit forced draw time: %w", err)
	}
	return nil
}

func (e *Engine) SetAutomationActive(caller string, active bool) error {
	return e.updateSchedulerState(caller, func(st *types.SchedulerState) error {
		st.AutomationActive = active
		return nil
	})
}

func (e *Engine) SetEmergencyPause(caller string, paused bool) error {
	return e.updateSchedulerState(caller, func(st *types.SchedulerState) error {
		if st.EmergencyPause != paused {
			e.log.Warn("Emergency pause toggled", "paused", paused)
		}
		st.EmergencyPause = paused
		return nil
	})
}
