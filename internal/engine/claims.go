package engine

import (
	"fmt"

	"github.com/luckypool/lottery-engine/pkg/common/types"
	"github.com/luckypool/lottery-engine/pkg/events"
	"github.com/luckypool/lottery-engine/pkg/infra"
)

// ClaimResult reports what a settled claim produced.
type ClaimResult struct {
	TicketID int64
	Tier     types.Tier
	Amount   int64
	// FreeTicketID is set when the free-ticket tier granted a future-day
	// ticket instead of a cash payout.
	FreeTicketID int64
}

// Claim settles one ticket for its owner. Pull-based on purpose: no
// scheduler-driven operation ever has to iterate a whole day's tickets to pay
// everyone out in one bounded step.
func (e *Engine) Claim(ticketID int64, caller string) (*ClaimResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.tickets.GetTicket(ticketID)
	if err != nil {
		if err == infra.ErrKeyNotFound {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	if t.Owner != caller {
		return nil, ErrNotOwner
	}
	if t.Claimed {
		return nil, ErrAlreadyClaimed
	}

	d, err := e.days.GetDay(t.GameDay)
	if err != nil {
		return nil, err
	}
	if d == nil || !d.Drawn {
		return nil, ErrDrawNotFinalized
	}

	tier := EvaluateTier(t.Numbers, d.WinningNumbers)
	if tier == types.TierNone {
		return nil, ErrNoPrize
	}

	if err := e.ensureWinnerCounts(d); err != nil {
		return nil, err
	}

	b := infra.Batch{}
	result := &ClaimResult{TicketID: t.ID, Tier: tier}

	if d.ClaimedCounts == nil {
		d.ClaimedCounts = make(map[types.Tier]int64)
	}

	if tier.Cash() {
		amount, err := e.stageCashPayout(b, d, tier, caller)
		if err != nil {
			return nil, err
		}
		result.Amount = amount
	} else {
		// Free-ticket tier: a future-day ticket with the same numbers,
		// no token movement and no revenue accounting.
		st, err := e.schedulerState()
		if err != nil {
			return nil, err
		}
		futureDay := st.GameDayAt(e.now().Unix()) + 1
		free, err := e.stageTicketIssue(b, t.Owner, t.Numbers, futureDay, e.now().Unix())
		if err != nil {
			return nil, err
		}
		if err := e.stageFutureDayTicket(b, futureDay); err != nil {
			return nil, err
		}
		result.FreeTicketID = free.ID
	}

	d.ClaimedCounts[tier]++
	t.Claimed = true
	e.tickets.StageTicket(b, t)
	e.days.StageDay(b, d)

	if err := e.kv.SetManyAny(b); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	e.log.Info("Prize claimed",
		"ticket_id", t.ID, "owner", caller, "tier", tier, "amount", result.Amount)
	if err := e.emitter.EmitPrizeClaimed(t.GameDay, events.PrizeClaimed{
		TicketID: t.ID,
		Owner:    caller,
		Tier:     string(tier),
		Amount:   result.Amount,
	}); err != nil {
		e.log.Warn("Emit prize claimed failed", "err", err)
	}
	return result, nil
}

// ensureWinnerCounts memoizes the per-tier winner counts on the first claim
// of the day. This is the single place a day-wide ticket scan is tolerated;
// every later claim reads the cached counts.
func (e *Engine) ensureWinnerCounts(d *types.GameDay) error {
	if d.WinnerCounts != nil {
		return nil
	}

	ids, err := e.tickets.ListDayTicketIDs(d.Day)
	if err != nil {
		return err
	}

	counts := make(map[types.Tier]int64)
	for _, id := range ids {
		t, err := e.tickets.GetTicket(id)
		if err != nil {
			return fmt.Errorf("scan day %d ticket %d: %w", d.Day, id, err)
		}
		if tier := EvaluateTier(t.Numbers, d.WinningNumbers); tier != types.TierNone {
			counts[tier]++
		}
	}
	d.WinnerCounts = counts
	return nil
}

// stageCashPayout fixes the per-winner amount for (day, tier) on first use,
// earmarking the whole tier payout out of the main pool, then stages this
// claimant's transfer. Auto-refill moves the entire paired reserve into the
// main pool when the main pool is empty.
func (e *Engine) stageCashPayout(b infra.Batch, d *types.GameDay, tier types.Tier, recipient string) (int64, error) {
	if d.PerWinnerAmounts == nil {
		d.PerWinnerAmounts = make(map[types.Tier]int64)
	}

	per, fixed := d.PerWinnerAmounts[tier]
	if !fixed {
		winnerCount := d.WinnerCounts[tier]
		if winnerCount <= 0 {
			// The claimant itself evaluated to this tier, so the
			// memoized count can never be zero here.
			return 0, fmt.Errorf("winner count for day %d tier %s is zero", d.Day, tier)
		}

		main, err := e.pools.GetMainPools()
		if err != nil {
			return 0, err
		}
		reserves, err := e.pools.GetReservePools()
		if err != nil {
			return 0, err
		}

		available := *mainPoolFor(&main, tier)
		if available == 0 {
			if refill := *reservePoolFor(&reserves, tier); refill > 0 {
				available = refill
				*mainPoolFor(&main, tier) += refill
				*reservePoolFor(&reserves, tier) = 0
			}
		}

		per = available / winnerCount
		if per == 0 {
			return 0, fmt.Errorf("%w: day %d tier %s", ErrPoolExhausted, d.Day, tier)
		}

		// Earmark the full tier payout; the integer-division remainder
		// stays in the pool for the next day.
		*mainPoolFor(&main, tier) -= per * winnerCount
		d.PerWinnerAmounts[tier] = per

		e.pools.StageMainPools(b, main)
		e.pools.StageReservePools(b, reserves)
	}

	if err := e.token.Transfer(b, e.engineAccount, recipient, per); err != nil {
		return 0, err
	}
	return per, nil
}

// stageFutureDayTicket bumps the ticket count of the free ticket's target
// day, creating the record lazily.
func (e *Engine) stageFutureDayTicket(b infra.Batch, day int64) error {
	fd, err := e.days.GetDay(day)
	if err != nil {
		return err
	}
	if fd == nil {
		fd = &types.GameDay{Day: day}
	}
	fd.TicketCount++
	e.days.StageDay(b, fd)
	return nil
}

func mainPoolFor(p *types.MainPools, tier types.Tier) *int64 {
	switch tier {
	case types.TierFirst:
		return &p.First
	case types.TierSecond:
		return &p.Second
	default:
		return &p.Third
	}
}

func reservePoolFor(p *types.ReservePools, tier types.Tier) *int64 {
	switch tier {
	case types.TierFirst:
		return &p.First
	case types.TierSecond:
		return &p.Second
	default:
		return &p.Third
	}
}
