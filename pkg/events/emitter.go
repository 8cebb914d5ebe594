package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/luckypool/lottery-engine/pkg/infra"
)

const (
	TypeTicketPurchased = "ticket.purchased"
	TypeDrawRequested   = "draw.requested"
	TypeDrawSettled     = "draw.settled"
	TypePrizeClaimed    = "prize.claimed"
)

// EngineEvent is the envelope published for every externally visible state
// transition of the engine.
type EngineEvent struct {
	Type      string `json:"type"`
	GameDay   int64  `json:"game_day"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

type TicketPurchased struct {
	TicketID int64  `json:"ticket_id"`
	Owner    string `json:"owner"`
	Numbers  []int  `json:"numbers"`
	Amount   int64  `json:"amount"`
}

type DrawRequested struct {
	RequestID string `json:"request_id"`
}

type DrawSettled struct {
	RequestID      string `json:"request_id"`
	WinningNumbers []int  `json:"winning_numbers"`
}

type PrizeClaimed struct {
	TicketID int64  `json:"ticket_id"`
	Owner    string `json:"owner"`
	Tier     string `json:"tier"`
	Amount   int64  `json:"amount"`
}

type Emitter interface {
	EmitTicketPurchased(gameDay int64, data TicketPurchased) error
	EmitDrawRequested(gameDay int64, data DrawRequested) error
	EmitDrawSettled(gameDay int64, data DrawSettled) error
	EmitPrizeClaimed(gameDay int64, data PrizeClaimed) error
	Close()
}

type emitter struct {
	queue         infra.MessageQueue
	subjectPrefix string
}

func NewEmitter(queue infra.MessageQueue, subjectPrefix string) Emitter {
	return &emitter{
		queue:         queue,
		subjectPrefix: subjectPrefix,
	}
}

func (e *emitter) EmitTicketPurchased(gameDay int64, data TicketPurchased) error {
	return e.emit(TypeTicketPurchased, gameDay, data,
		fmt.Sprintf("ticket-%d", data.TicketID))
}

func (e *emitter) EmitDrawRequested(gameDay int64, data DrawRequested) error {
	return e.emit(TypeDrawRequested, gameDay, data, data.RequestID)
}

func (e *emitter) EmitDrawSettled(gameDay int64, data DrawSettled) error {
	return e.emit(TypeDrawSettled, gameDay, data, data.RequestID)
}

func (e *emitter) EmitPrizeClaimed(gameDay int64, data PrizeClaimed) error {
	return e.emit(TypePrizeClaimed, gameDay, data,
		fmt.Sprintf("claim-%d", data.TicketID))
}

func (e *emitter) emit(eventType string, gameDay int64, data any, idempotentKey string) error {
	payload, err := json.Marshal(EngineEvent{
		Type:      eventType,
		GameDay:   gameDay,
		Data:      data,
		Timestamp: time.Now().UTC().Unix(),
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("%s.%s", e.subjectPrefix, eventType)
	return e.queue.Enqueue(subject, payload, &infra.EnqueueOptions{
		IdempotentKey: idempotentKey,
	})
}

func (e *emitter) Close() {
	if e.queue != nil {
		e.queue.Close()
	}
}

// NopEmitter drops every event. Used when NATS is disabled and in tests.
type NopEmitter struct{}

func (NopEmitter) EmitTicketPurchased(int64, TicketPurchased) error { return nil }
func (NopEmitter) EmitDrawRequested(int64, DrawRequested) error     { return nil }
func (NopEmitter) EmitDrawSettled(int64, DrawSettled) error         { return nil }
func (NopEmitter) EmitPrizeClaimed(int64, PrizeClaimed) error       { return nil }
func (NopEmitter) Close()                                           {}
