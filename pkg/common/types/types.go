package types

// Tier is the prize tier a ticket resolves to after its game-day is drawn.
type Tier string

const (
	TierFirst      Tier = "first"
	TierSecond     Tier = "second"
	TierThird      Tier = "third"
	TierFreeTicket Tier = "free_ticket"
	TierNone       Tier = "none"
)

// Cash reports whether the tier pays out of a prize pool. The free-ticket
// tier grants a future ticket instead of a transfer.
func (t Tier) Cash() bool {
	return t == TierFirst || t == TierSecond || t == TierThird
}

// Ticket is immutable after issuance except for the Claimed flag.
type Ticket struct {
	ID           int64  `json:"id"`
	Owner        string `json:"owner"`
	Numbers      []int  `json:"numbers"`
	GameDay      int64  `json:"game_day"`
	PurchaseTime int64  `json:"purchase_time"` // unix seconds
	Active       bool   `json:"active"`
	Claimed      bool   `json:"claimed"`
}

// GameDay is one draw cycle's accounting record, created lazily on the first
// ticket purchase of that day. TotalCollected always equals MainPoolPortion +
// ReservePortion.
type GameDay struct {
	Day             int64 `json:"day"`
	TotalCollected  int64 `json:"total_collected"`
	MainPoolPortion int64 `json:"main_pool_portion"`
	ReservePortion  int64 `json:"reserve_portion"`
	TicketCount     int64 `json:"ticket_count"`

	Drawn          bool  `json:"drawn"`
	Distributed    bool  `json:"distributed"`
	WinningNumbers []int `json:"winning_numbers,omitempty"`

	// WinnerCounts and PerWinnerAmounts are memoized on the first claim of
	// the day so repeated claims never re-scan the day's tickets.
	// ClaimedCounts tracks settled claims per tier, free tickets included;
	// for cash tiers the difference to WinnerCounts is the day's
	// outstanding contingent liability.
	WinnerCounts     map[Tier]int64 `json:"winner_counts,omitempty"`
	PerWinnerAmounts map[Tier]int64 `json:"per_winner_amounts,omitempty"`
	ClaimedCounts    map[Tier]int64 `json:"claimed_counts,omitempty"`
}

// MainPools are the immediately payable accumulators. They carry over across
// game-days: a tier with no winners keeps growing (jackpot behavior).
type MainPools struct {
	First       int64 `json:"first"`
	Second      int64 `json:"second"`
	Third       int64 `json:"third"`
	Development int64 `json:"development"`
}

func (p MainPools) Sum() int64 {
	return p.First + p.Second + p.Third + p.Development
}

// ReservePools back their paired main pools and absorb every integer-split
// remainder in Buffer, so no unit of revenue is ever lost or double-counted.
type ReservePools struct {
	First  int64 `json:"first"`
	Second int64 `json:"second"`
	Third  int64 `json:"third"`
	Buffer int64 `json:"buffer"`
}

func (p ReservePools) Sum() int64 {
	return p.First + p.Second + p.Third + p.Buffer
}

// SchedulerState holds every runtime-adjustable scheduling parameter plus the
// draw/maintenance checkpoints. Durations are stored in seconds.
type SchedulerState struct {
	LastDrawTime        int64 `json:"last_draw_time"`
	LastMaintenanceTime int64 `json:"last_maintenance_time"`
	AutomationActive    bool  `json:"automation_active"`
	EmergencyPause      bool  `json:"emergency_pause"`

	TicketPrice         int64 `json:"ticket_price"`
	DrawIntervalSec     int64 `json:"draw_interval_sec"`
	DayLengthSec        int64 `json:"day_length_sec"`
	DayAnchorOffsetSec  int64 `json:"day_anchor_offset_sec"`
	MaintenanceGapSec   int64 `json:"maintenance_gap_sec"`
}

// GameDayAt derives the game-day bucket for the given unix time.
func (s SchedulerState) GameDayAt(unix int64) int64 {
	if s.DayLengthSec <= 0 {
		return 0
	}
	return (unix - s.DayAnchorOffsetSec) / s.DayLengthSec
}

// PendingDrawRequest correlates the single outstanding randomness request
// with the game-day it was issued for. A zero RequestID means none is
// outstanding.
type PendingDrawRequest struct {
	RequestID string `json:"request_id"`
	GameDay   int64  `json:"game_day"`
	IssuedAt  int64  `json:"issued_at"`
}

func (p PendingDrawRequest) Outstanding() bool {
	return p.RequestID != ""
}
