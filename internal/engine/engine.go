// Package engine implements the lottery draw and prize-pool accounting core:
// ticket issuance, per-day revenue partitioning, the polled draw scheduler,
// the randomness bridge, and pull-based claim settlement.
//
// Every exported state-mutating call is atomic: all validation happens up
// front, every write of the call is staged into one infra.Batch, and the
// batch is committed in a single KV transaction. A failure anywhere aborts
// the whole call with no partial state change.
package engine

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/luckypool/lottery-engine/internal/oracle"
	"github.com/luckypool/lottery-engine/internal/token"
	"github.com/luckypool/lottery-engine/pkg/common/config"
	"github.com/luckypool/lottery-engine/pkg/common/logger"
	"github.com/luckypool/lottery-engine/pkg/common/types"
	"github.com/luckypool/lottery-engine/pkg/events"
	"github.com/luckypool/lottery-engine/pkg/infra"
	"github.com/luckypool/lottery-engine/pkg/store/gamedaystore"
	"github.com/luckypool/lottery-engine/pkg/store/poolstore"
	"github.com/luckypool/lottery-engine/pkg/store/ticketstore"
)

type Engine struct {
	// mu serializes every external call; the engine's atomicity model is
	// single-threaded execution, the poller and the oracle callback both
	// enter through this mutex.
	mu sync.Mutex

	pickCount     int
	numberRange   int
	adminAccount  string
	engineAccount string
	splits        config.SplitConfig

	kv      infra.KVStore
	tickets ticketstore.Store
	days    gamedaystore.Store
	pools   poolstore.Store
	token   token.Token
	oracle  oracle.Oracle
	emitter events.Emitter

	log *slog.Logger
	now func() time.Time
}

func New(cfg config.Config, kv infra.KVStore, tok token.Token, emitter events.Emitter) (*Engine, error) {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}

	e := &Engine{
		pickCount:     cfg.Game.PickCount,
		numberRange:   cfg.Game.NumberRange,
		adminAccount:  cfg.Game.AdminAccount,
		engineAccount: cfg.Token.EngineAccount,
		splits:        cfg.Splits,
		kv:            kv,
		tickets:       ticketstore.New(kv),
		days:          gamedaystore.New(kv),
		pools:         poolstore.New(kv),
		token:         tok,
		emitter:       emitter,
		log:           logger.With(slog.String("component", "engine")),
		now:           time.Now,
	}

	if err := e.seedSchedulerState(cfg); err != nil {
		return nil, fmt.Errorf("seed scheduler state: %w", err)
	}
	return e, nil
}

// WithOracle wires the randomness oracle. Separate from New because the
// oracle's callback closes over the engine.
func (e *Engine) WithOracle(o oracle.Oracle) {
	e.oracle = o
}

// WithClock overrides the engine clock. Test hook.
func (e *Engine) WithClock(now func() time.Time) {
	e.now = now
}

// seedSchedulerState persists the initial scheduler state on first boot.
// Later boots resume whatever was persisted, so admin adjustments survive
// restarts and config changes never apply retroactively.
func (e *Engine) seedSchedulerState(cfg config.Config) error {
	_, found, err := e.pools.GetSchedulerState()
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	now := e.now().Unix()
	st := types.SchedulerState{
		LastDrawTime:        now,
		LastMaintenanceTime: now,
		AutomationActive:    true,
		TicketPrice:         cfg.Game.TicketPrice,
		DrawIntervalSec:     int64(cfg.Game.DrawInterval / time.Second),
		DayLengthSec:        int64(cfg.Game.DayLength / time.Second),
		DayAnchorOffsetSec:  int64(cfg.Game.DayAnchorOffset / time.Second),
		MaintenanceGapSec:   int64(cfg.Game.MaintenanceGap / time.Second),
	}

	b := infra.Batch{}
	e.pools.StageSchedulerState(b, st)
	return e.kv.SetManyAny(b)
}

func (e *Engine) schedulerState() (types.SchedulerState, error) {
	st, _, err := e.pools.GetSchedulerState()
	return st, err
}

func (e *Engine) validateNumbers(numbers []int) error {
	if len(numbers) != e.pickCount {
		return fmt.Errorf("%w: want %d numbers, got %d", ErrInvalidSelection, e.pickCount, len(numbers))
	}
	for _, n := range numbers {
		if n < 0 || n >= e.numberRange {
			return fmt.Errorf("%w: %d outside [0,%d]", ErrInvalidSelection, n, e.numberRange-1)
		}
	}
	return nil
}

// BuyTicket charges the buyer one ticket price via the settlement token,
// issues the ticket for the current game-day and records the revenue split.
func (e *Engine) BuyTicket(buyer string, numbers []int) (*types.Ticket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := e.schedulerState()
	if err != nil {
		return nil, err
	}
	if st.EmergencyPause {
		return nil, ErrGamePaused
	}
	if err := e.validateNumbers(numbers); err != nil {
		return nil, err
	}
	now := e.now().Unix()
	day := st.GameDayAt(now)

	d, err := e.days.GetDay(day)
	if err != nil {
		return nil, err
	}
	if d == nil {
		d = &types.GameDay{Day: day}
	}
	if d.Drawn {
		return nil, ErrDayAlreadyDrawn
	}

	b := infra.Batch{}
	if err := e.token.TransferFrom(b, buyer, e.engineAccount, st.TicketPrice); err != nil {
		return nil, err
	}

	t, err := e.stageTicketIssue(b, buyer, numbers, day, now)
	if err != nil {
		return nil, err
	}

	split := splitPurchase(st.TicketPrice, e.splits)
	d.TotalCollected += st.TicketPrice
	d.MainPoolPortion += split.MainPortion
	d.ReservePortion += split.ReservePortion
	d.TicketCount++
	e.days.StageDay(b, d)

	reserves, err := e.pools.GetReservePools()
	if err != nil {
		return nil, err
	}
	reserves.First += split.ReserveFirst
	reserves.Second += split.ReserveSecond
	reserves.Third += split.ReserveThird
	reserves.Buffer += split.ReserveBuffer
	e.pools.StageReservePools(b, reserves)

	if err := e.kv.SetManyAny(b); err != nil {
		return nil, fmt.Errorf("commit purchase: %w", err)
	}

	e.log.Info("Ticket purchased",
		"ticket_id", t.ID, "owner", buyer, "game_day", day, "amount", st.TicketPrice)
	if err := e.emitter.EmitTicketPurchased(day, events.TicketPurchased{
		TicketID: t.ID,
		Owner:    buyer,
		Numbers:  t.Numbers,
		Amount:   st.TicketPrice,
	}); err != nil {
		e.log.Warn("Emit ticket purchased failed", "err", err)
	}
	return t, nil
}

// QuickPick buys a ticket with server-chosen random numbers.
func (e *Engine) QuickPick(buyer string) (*types.Ticket, error) {
	numbers := make([]int, e.pickCount)
	max := big.NewInt(int64(e.numberRange))
	for i := range numbers {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return nil, fmt.Errorf("quick pick: %w", err)
		}
		numbers[i] = int(n.Int64())
	}
	return e.BuyTicket(buyer, numbers)
}

// stageTicketIssue allocates the next ticket id and stages the ticket plus
// its day-index entry. The selection is validated by the caller; free-ticket
// issuance copies numbers from a ticket that already passed validation.
// Caller holds the lock.
func (e *Engine) stageTicketIssue(b infra.Batch, owner string, numbers []int, day, now int64) (*types.Ticket, error) {
	id, err := e.tickets.NextTicketID()
	if err != nil {
		return nil, err
	}

	t := &types.Ticket{
		ID:           id,
		Owner:        owner,
		Numbers:      append([]int(nil), numbers...),
		GameDay:      day,
		PurchaseTime: now,
		Active:       true,
	}
	e.tickets.StageTicket(b, t)
	e.tickets.StageNextTicketID(b, id+1)
	return t, nil
}

// GetTicket is the read side of the ticket ownership registry.
func (e *Engine) GetTicket(id int64) (*types.Ticket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.tickets.GetTicket(id)
	if err != nil {
		if err == infra.ErrKeyNotFound {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

// GetGameDay returns the accounting record for one game-day, or nil when the
// day has no record.
func (e *Engine) GetGameDay(day int64) (*types.GameDay, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.days.GetDay(day)
}

// TicketTier resolves a ticket's prize tier once its game-day is drawn.
func (e *Engine) TicketTier(id int64) (types.Tier, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.tickets.GetTicket(id)
	if err != nil {
		if err == infra.ErrKeyNotFound {
			return types.TierNone, ErrTicketNotFound
		}
		return types.TierNone, err
	}

	d, err := e.days.GetDay(t.GameDay)
	if err != nil {
		return types.TierNone, err
	}
	if d == nil || !d.Drawn {
		return types.TierNone, ErrDrawNotFinalized
	}
	return EvaluateTier(t.Numbers, d.WinningNumbers), nil
}

// Status is a point-in-time snapshot for reporting tools.
type Status struct {
	CurrentDay  int64
	Main        types.MainPools
	Reserve     types.ReservePools
	Scheduler   types.SchedulerState
	PendingDraw types.PendingDrawRequest
}

func (e *Engine) Status() (Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := e.schedulerState()
	if err != nil {
		return Status{}, err
	}
	main, err := e.pools.GetMainPools()
	if err != nil {
		return Status{}, err
	}
	reserve, err := e.pools.GetReservePools()
	if err != nil {
		return Status{}, err
	}
	pending, err := e.pools.GetPendingDraw()
	if err != nil {
		return Status{}, err
	}

	return Status{
		CurrentDay:  st.GameDayAt(e.now().Unix()),
		Main:        main,
		Reserve:     reserve,
		Scheduler:   st,
		PendingDraw: pending,
	}, nil
}
