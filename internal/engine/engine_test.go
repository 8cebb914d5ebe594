package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckypool/lottery-engine/internal/token"
	"github.com/luckypool/lottery-engine/pkg/common/config"
	"github.com/luckypool/lottery-engine/pkg/events"
	"github.com/luckypool/lottery-engine/pkg/infra"
	"github.com/luckypool/lottery-engine/pkg/kvstore"
)

const (
	testAdmin  = "admin"
	testBuyer  = "alice"
	testBuyer2 = "bob"
)

// testBase is an arbitrary fixed instant; game-day boundaries derive from it.
var testBase = time.Unix(1_700_006_400, 0) // midnight-aligned for 24h days

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeOracle struct {
	mu       sync.Mutex
	requests []string
	failNext bool
}

func (f *fakeOracle) RequestRandomness(requestID string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return errors.New("oracle unavailable")
	}
	f.requests = append(f.requests, requestID)
	return nil
}

func (f *fakeOracle) lastRequest() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return ""
	}
	return f.requests[len(f.requests)-1]
}

type testHarness struct {
	engine *Engine
	ledger *token.Ledger
	oracle *fakeOracle
	clock  *testClock
	cfg    config.Config

	// drawEvery is shorter than the day length so a draw triggered after one
	// interval still settles the day the tickets were bought on.
	drawEvery time.Duration
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	kv, err := kvstore.NewBadgerStore(t.TempDir(), "lottery", infra.JSON)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	cfg := config.Defaults()
	cfg.Game.AdminAccount = testAdmin

	ledger := token.NewLedger(kv)
	eng, err := New(cfg, kv, ledger, events.NopEmitter{})
	require.NoError(t, err)

	clock := &testClock{now: testBase}
	eng.WithClock(clock.Now)

	orc := &fakeOracle{}
	eng.WithOracle(orc)

	// Pin the seeded checkpoints to the test clock.
	require.NoError(t, eng.ForceSetLastDrawTime(testAdmin, testBase.Unix()))

	drawEvery := time.Hour
	require.NoError(t, eng.SetDrawInterval(testAdmin, drawEvery))

	return &testHarness{
		engine:    eng,
		ledger:    ledger,
		oracle:    orc,
		clock:     clock,
		cfg:       cfg,
		drawEvery: drawEvery,
	}
}

func (h *testHarness) fund(t *testing.T, account string, tickets int64) {
	t.Helper()
	amount := h.cfg.Game.TicketPrice * tickets
	require.NoError(t, h.ledger.Mint(account, amount))
	require.NoError(t, h.ledger.Approve(account, h.cfg.Token.EngineAccount, amount))
}

// runDraw drives a full draw cycle: makes the draw due, performs it and
// feeds the given raw values back through the randomness bridge.
func (h *testHarness) runDraw(t *testing.T, values []uint64) {
	t.Helper()
	h.clock.Advance(h.drawEvery)

	kind, err := h.engine.PerformWork()
	require.NoError(t, err)
	require.Equal(t, WorkDraw, kind)

	require.NoError(t, h.engine.HandleRandomness(h.oracle.lastRequest(), values))
}

func TestBuyTicket(t *testing.T) {
	h := newTestHarness(t)
	h.fund(t, testBuyer, 2)

	ticket, err := h.engine.BuyTicket(testBuyer, []int{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, int64(1), ticket.ID)
	assert.Equal(t, testBuyer, ticket.Owner)
	assert.True(t, ticket.Active)
	assert.False(t, ticket.Claimed)

	second, err := h.engine.BuyTicket(testBuyer, []int{0, 0, 24, 24})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID, "ticket ids are monotonic")

	got, err := h.engine.GetTicket(ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket, got)
}

func TestBuyTicket_InvalidSelection(t *testing.T) {
	h := newTestHarness(t)
	h.fund(t, testBuyer, 5)

	for _, numbers := range [][]int{
		{1, 2, 3},          // too few
		{1, 2, 3, 4, 5},    // too many
		{1, 2, 3, 25},      // above range
		{-1, 2, 3, 4},      // negative
	} {
		_, err := h.engine.BuyTicket(testBuyer, numbers)
		assert.ErrorIs(t, err, ErrInvalidSelection, "numbers %v", numbers)
	}
}

func TestBuyTicket_InsufficientAllowance(t *testing.T) {
	h := newTestHarness(t)
	require.NoError(t, h.ledger.Mint(testBuyer, h.cfg.Game.TicketPrice))
	// No approval given.

	_, err := h.engine.BuyTicket(testBuyer, []int{1, 2, 3, 4})
	assert.ErrorIs(t, err, token.ErrInsufficientAllowance)

	balance, err := h.ledger.BalanceOf(testBuyer)
	require.NoError(t, err)
	assert.Equal(t, h.cfg.Game.TicketPrice, balance, "failed purchase moves no funds")
}

func TestBuyTicket_EngineAccountCannotBuy(t *testing.T) {
	h := newTestHarness(t)
	engAcct := h.cfg.Token.EngineAccount
	h.fund(t, engAcct, 1)

	// A purchase by the revenue account would record collected revenue
	// without any funds actually moving in.
	_, err := h.engine.BuyTicket(engAcct, []int{1, 2, 3, 4})
	assert.ErrorIs(t, err, token.ErrSelfTransfer)

	balance, err := h.ledger.BalanceOf(engAcct)
	require.NoError(t, err)
	assert.Equal(t, h.cfg.Game.TicketPrice, balance)

	// The rejected purchase left no revenue record behind.
	d, err := h.engine.GetGameDay(h.currentDay(t))
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestBuyTicket_Paused(t *testing.T) {
	h := newTestHarness(t)
	h.fund(t, testBuyer, 1)
	require.NoError(t, h.engine.SetEmergencyPause(testAdmin, true))

	_, err := h.engine.BuyTicket(testBuyer, []int{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrGamePaused)

	require.NoError(t, h.engine.SetEmergencyPause(testAdmin, false))
	_, err = h.engine.BuyTicket(testBuyer, []int{1, 2, 3, 4})
	assert.NoError(t, err)
}

func TestDayAccounting(t *testing.T) {
	h := newTestHarness(t)
	h.fund(t, testBuyer, 3)

	for i := 0; i < 3; i++ {
		_, err := h.engine.BuyTicket(testBuyer, []int{i, i + 1, i + 2, i + 3})
		require.NoError(t, err)
	}

	status, err := h.engine.Status()
	require.NoError(t, err)

	d, err := h.engine.GetGameDay(status.CurrentDay)
	require.NoError(t, err)
	require.NotNil(t, d)

	price := h.cfg.Game.TicketPrice
	assert.Equal(t, int64(3), d.TicketCount)
	assert.Equal(t, 3*price, d.TotalCollected)
	assert.Equal(t, d.TotalCollected, d.MainPoolPortion+d.ReservePortion)
	assert.False(t, d.Drawn)

	// Reserves are credited per purchase; main pools wait for the draw.
	assert.Equal(t, d.ReservePortion, status.Reserve.Sum())
	assert.Equal(t, int64(0), status.Main.Sum())

	report, err := h.engine.AuditConservation()
	require.NoError(t, err)
	assert.True(t, report.Balanced(), "token balance %d, accounted %d",
		report.TokenBalance, report.Accounted())
}

func TestScheduler_DrawLifecycle(t *testing.T) {
	h := newTestHarness(t)
	h.fund(t, testBuyer, 1)
	_, err := h.engine.BuyTicket(testBuyer, []int{1, 2, 3, 4})
	require.NoError(t, err)

	// Not yet due.
	work, err := h.engine.DueWork()
	require.NoError(t, err)
	assert.Equal(t, WorkNone, work.Kind)

	kind, err := h.engine.PerformWork()
	require.NoError(t, err)
	assert.Equal(t, WorkNone, kind, "performing with nothing due is a no-op")

	// Due after the interval.
	h.clock.Advance(h.drawEvery)
	work, err = h.engine.DueWork()
	require.NoError(t, err)
	assert.Equal(t, WorkDraw, work.Kind)

	kind, err = h.engine.PerformWork()
	require.NoError(t, err)
	assert.Equal(t, WorkDraw, kind)
	require.Len(t, h.oracle.requests, 1)

	// Racing duplicate trigger: request outstanding, so clean no-op.
	kind, err = h.engine.PerformWork()
	require.NoError(t, err)
	assert.Equal(t, WorkNone, kind)
	assert.Len(t, h.oracle.requests, 1, "exactly one draw request issued")

	// Fulfillment settles the requested day.
	day := work.GameDay
	require.NoError(t, h.engine.HandleRandomness(h.oracle.lastRequest(), []uint64{1, 2, 3, 4}))

	d, err := h.engine.GetGameDay(day)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.True(t, d.Drawn)
	assert.True(t, d.Distributed)
	assert.Equal(t, []int{1, 2, 3, 4}, d.WinningNumbers)

	status, err := h.engine.Status()
	require.NoError(t, err)
	assert.False(t, status.PendingDraw.Outstanding())
	assert.Greater(t, status.Main.Sum(), int64(0), "main pools credited at the draw")
	assert.Equal(t, int64(h.cfg.Game.MaintenanceGap/time.Second),
		status.Scheduler.MaintenanceGapSec, "maintenance cadence seeded from config")

	report, err := h.engine.AuditConservation()
	require.NoError(t, err)
	assert.True(t, report.Balanced())
}

func TestScheduler_AutomationToggle(t *testing.T) {
	h := newTestHarness(t)
	h.clock.Advance(h.drawEvery)

	require.NoError(t, h.engine.SetAutomationActive(testAdmin, false))
	work, err := h.engine.DueWork()
	require.NoError(t, err)
	assert.Equal(t, WorkNone, work.Kind)

	require.NoError(t, h.engine.SetAutomationActive(testAdmin, true))
	work, err = h.engine.DueWork()
	require.NoError(t, err)
	assert.Equal(t, WorkDraw, work.Kind)
}

func TestScheduler_OracleFailureRollsBack(t *testing.T) {
	h := newTestHarness(t)
	h.clock.Advance(h.drawEvery)
	h.oracle.failNext = true

	kind, err := h.engine.PerformWork()
	assert.Equal(t, WorkDraw, kind)
	assert.ErrorIs(t, err, ErrRandomnessRequest)

	// The pending slot was rolled back, so the next trigger can retry.
	status, err := h.engine.Status()
	require.NoError(t, err)
	assert.False(t, status.PendingDraw.Outstanding())

	kind, err = h.engine.PerformWork()
	require.NoError(t, err)
	assert.Equal(t, WorkDraw, kind)
}

func TestHandleRandomness_UnknownRequest(t *testing.T) {
	h := newTestHarness(t)

	err := h.engine.HandleRandomness("never-issued", []uint64{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrUnknownRequest)

	// Replay of a settled request is rejected too.
	h.runDraw(t, []uint64{1, 2, 3, 4})
	err = h.engine.HandleRandomness(h.oracle.lastRequest(), []uint64{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrUnknownRequest)
}

func TestHandleRandomness_ModuloMapping(t *testing.T) {
	h := newTestHarness(t)

	day := h.currentDay(t)
	h.runDraw(t, []uint64{25, 26, 50, 49})

	d, err := h.engine.GetGameDay(day)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, []int{0, 1, 0, 24}, d.WinningNumbers)
}

func TestPurchasesContinueWhileAwaitingFulfillment(t *testing.T) {
	h := newTestHarness(t)
	h.fund(t, testBuyer, 2)

	_, err := h.engine.BuyTicket(testBuyer, []int{1, 2, 3, 4})
	require.NoError(t, err)

	h.clock.Advance(h.drawEvery)
	_, err = h.engine.PerformWork()
	require.NoError(t, err)

	// The callback has not arrived yet; purchases must keep working.
	ticket, err := h.engine.BuyTicket(testBuyer, []int{5, 6, 7, 8})
	require.NoError(t, err)
	assert.Equal(t, h.currentDay(t), ticket.GameDay)
}

func TestBuyTicket_DayAlreadyDrawn(t *testing.T) {
	h := newTestHarness(t)
	h.fund(t, testBuyer, 2)

	// Settle the current day's draw while the clock stays inside it.
	day := h.currentDay(t)
	h.runDraw(t, []uint64{1, 2, 3, 4})

	require.Equal(t, day, h.currentDay(t), "still the same game-day")
	_, err := h.engine.BuyTicket(testBuyer, []int{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrDayAlreadyDrawn)

	// The next day opens for business again.
	h.clock.Advance(24 * time.Hour)
	_, err = h.engine.BuyTicket(testBuyer, []int{1, 2, 3, 4})
	assert.NoError(t, err)
}

func TestAdmin_Authorization(t *testing.T) {
	h := newTestHarness(t)

	assert.ErrorIs(t, h.engine.SetTicketPrice(testBuyer, 5), ErrNotAdmin)
	assert.ErrorIs(t, h.engine.SetDrawInterval(testBuyer, time.Hour), ErrNotAdmin)
	assert.ErrorIs(t, h.engine.SetDayAnchorOffset(testBuyer, time.Hour), ErrNotAdmin)
	assert.ErrorIs(t, h.engine.ForceSetLastDrawTime(testBuyer, 0), ErrNotAdmin)
	assert.ErrorIs(t, h.engine.SetAutomationActive(testBuyer, false), ErrNotAdmin)
	assert.ErrorIs(t, h.engine.SetEmergencyPause(testBuyer, true), ErrNotAdmin)
}

func TestAdmin_SetTicketPrice(t *testing.T) {
	h := newTestHarness(t)

	assert.Error(t, h.engine.SetTicketPrice(testAdmin, 0))
	require.NoError(t, h.engine.SetTicketPrice(testAdmin, 500))

	require.NoError(t, h.ledger.Mint(testBuyer, 500))
	require.NoError(t, h.ledger.Approve(testBuyer, h.cfg.Token.EngineAccount, 500))
	_, err := h.engine.BuyTicket(testBuyer, []int{1, 2, 3, 4})
	assert.NoError(t, err, "new price applies to subsequent purchases")
}

func (h *testHarness) currentDay(t *testing.T) int64 {
	t.Helper()
	status, err := h.engine.Status()
	require.NoError(t, err)
	return status.CurrentDay
}
