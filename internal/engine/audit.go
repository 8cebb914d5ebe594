package engine

// ConservationReport is the funds-conservation snapshot: every unit the
// engine's token account holds must be accounted for by a pool balance, an
// undrawn day's pending main portion, or an outstanding claim liability.
type ConservationReport struct {
	TokenBalance int64

	MainPoolTotal    int64
	ReservePoolTotal int64
	// UndrawnMainPortions is revenue collected for days whose draw has not
	// credited the main pools yet.
	UndrawnMainPortions int64
	// OutstandingLiabilities is the earmarked, not-yet-claimed payout total
	// across drawn days.
	OutstandingLiabilities int64
}

// Accounted is the ledger-side total the token balance must equal.
func (r ConservationReport) Accounted() int64 {
	return r.MainPoolTotal + r.ReservePoolTotal + r.UndrawnMainPortions + r.OutstandingLiabilities
}

func (r ConservationReport) Balanced() bool {
	return r.TokenBalance == r.Accounted()
}

// Stats are running totals across every recorded day, for reporting.
type Stats struct {
	TicketsSold   int64
	DaysDrawn     int64
	ClaimsSettled int64
	PrizesPaid    int64
}

// AuditStats walks every recorded day. Diagnostic only, like AuditConservation.
func (e *Engine) AuditStats() (Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var stats Stats
	days, err := e.days.ListDays()
	if err != nil {
		return stats, err
	}
	for _, d := range days {
		stats.TicketsSold += d.TicketCount
		if d.Drawn {
			stats.DaysDrawn++
		}
		for tier, claimed := range d.ClaimedCounts {
			stats.ClaimsSettled += claimed
			stats.PrizesPaid += claimed * d.PerWinnerAmounts[tier]
		}
	}
	return stats, nil
}

// AuditConservation walks every recorded day. It is a diagnostic for tests
// and the status tooling, never called on the scheduler path.
func (e *Engine) AuditConservation() (ConservationReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var report ConservationReport

	balance, err := e.token.BalanceOf(e.engineAccount)
	if err != nil {
		return report, err
	}
	report.TokenBalance = balance

	main, err := e.pools.GetMainPools()
	if err != nil {
		return report, err
	}
	reserves, err := e.pools.GetReservePools()
	if err != nil {
		return report, err
	}
	report.MainPoolTotal = main.Sum()
	report.ReservePoolTotal = reserves.Sum()

	days, err := e.days.ListDays()
	if err != nil {
		return report, err
	}
	for _, d := range days {
		if !d.Drawn {
			report.UndrawnMainPortions += d.MainPoolPortion
			continue
		}
		for tier, per := range d.PerWinnerAmounts {
			outstanding := d.WinnerCounts[tier] - d.ClaimedCounts[tier]
			if outstanding > 0 {
				report.OutstandingLiabilities += per * outstanding
			}
		}
	}
	return report, nil
}
