package engine

import (
	"fmt"

	"github.com/luckypool/lottery-engine/pkg/common/types"
	"github.com/luckypool/lottery-engine/pkg/events"
	"github.com/luckypool/lottery-engine/pkg/infra"
)

// HandleRandomness is the inbound half of the randomness bridge. The oracle
// may deliver it an arbitrary time after the request; purchases for later
// game-days proceed in the meantime. Replays and callbacks for anything but
// the single outstanding request fail with ErrUnknownRequest.
//
// Winning numbers, the drawn flag, pool crediting and the scheduler
// checkpoint all land in one batch, so a day can never be drawn without its
// pools being credited.
func (e *Engine) HandleRandomness(requestID string, values []uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pending, err := e.pools.GetPendingDraw()
	if err != nil {
		return err
	}
	if !pending.Outstanding() || pending.RequestID != requestID {
		return fmt.Errorf("%w: %s", ErrUnknownRequest, requestID)
	}
	if len(values) < e.pickCount {
		return fmt.Errorf("%w: fulfillment carries %d values, need %d",
			ErrRandomnessRequest, len(values), e.pickCount)
	}

	d, err := e.days.GetDay(pending.GameDay)
	if err != nil {
		return err
	}
	if d == nil {
		// A day with no purchases still gets drawn so the carry-over
		// accounting stays aligned with the calendar.
		d = &types.GameDay{Day: pending.GameDay}
	}
	if d.Drawn {
		return fmt.Errorf("%w: day %d", ErrDayAlreadyDrawn, d.Day)
	}

	winning := make([]int, e.pickCount)
	for i := range winning {
		winning[i] = int(values[i] % uint64(e.numberRange))
	}

	main, err := e.pools.GetMainPools()
	if err != nil {
		return err
	}
	reserves, err := e.pools.GetReservePools()
	if err != nil {
		return err
	}
	st, err := e.schedulerState()
	if err != nil {
		return err
	}

	credits, remainder := splitMainPortion(d.MainPoolPortion, e.splits)
	main.First += credits.First
	main.Second += credits.Second
	main.Third += credits.Third
	main.Development += credits.Development
	reserves.Buffer += remainder

	d.WinningNumbers = winning
	d.Drawn = true
	d.Distributed = true
	st.LastDrawTime = e.now().Unix()

	b := infra.Batch{}
	e.days.StageDay(b, d)
	e.pools.StageMainPools(b, main)
	e.pools.StageReservePools(b, reserves)
	e.pools.StageSchedulerState(b, st)
	e.pools.StagePendingDraw(b, types.PendingDrawRequest{})
	if err := e.kv.SetManyAny(b); err != nil {
		return fmt.Errorf("commit draw settlement: %w", err)
	}

	e.log.Info("Draw settled",
		"request_id", requestID, "game_day", d.Day, "winning_numbers", winning)
	if err := e.emitter.EmitDrawSettled(d.Day, events.DrawSettled{
		RequestID:      requestID,
		WinningNumbers: winning,
	}); err != nil {
		e.log.Warn("Emit draw settled failed", "err", err)
	}
	return nil
}
