package ticketstore

import (
	"fmt"
	"strconv"

	"github.com/luckypool/lottery-engine/pkg/common/types"
	"github.com/luckypool/lottery-engine/pkg/infra"
)

const (
	ticketPrefix = "tickets"
	nextIDKey    = "tickets/next_id"
)

func ticketKey(id int64) string {
	return fmt.Sprintf("%s/by_id/%d", ticketPrefix, id)
}

// Day index keys hold one ticket id each so a purchase writes O(1) keys and
// the day's tickets are recovered with a prefix scan.
func dayIndexPrefix(day int64) string {
	return fmt.Sprintf("%s/by_day/%d/", ticketPrefix, day)
}

func dayIndexKey(day, id int64) string {
	return fmt.Sprintf("%s/by_day/%d/%d", ticketPrefix, day, id)
}

type Store interface {
	GetTicket(id int64) (*types.Ticket, error)
	// ListDayTicketIDs enumerates every ticket issued for the day. Only the
	// winner-count memoization and offline diagnostics may call this.
	ListDayTicketIDs(day int64) ([]int64, error)
	NextTicketID() (int64, error)

	StageTicket(b infra.Batch, t *types.Ticket)
	StageNextTicketID(b infra.Batch, id int64)

	Close() error
}

type ticketStore struct {
	kv infra.KVStore
}

func New(kv infra.KVStore) Store {
	return &ticketStore{kv: kv}
}

func (s *ticketStore) GetTicket(id int64) (*types.Ticket, error) {
	var t types.Ticket
	found, err := s.kv.GetAny(ticketKey(id), &t)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, infra.ErrKeyNotFound
	}
	return &t, nil
}

func (s *ticketStore) ListDayTicketIDs(day int64) ([]int64, error) {
	kvs, err := s.kv.List(dayIndexPrefix(day))
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(kvs))
	for _, kv := range kvs {
		var id int64
		if err := infra.JSON.Unmarshal(kv.Value, &id); err != nil {
			return nil, fmt.Errorf("corrupt day index entry %s: %w", kv.Key, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *ticketStore) NextTicketID() (int64, error) {
	raw, err := s.kv.Get(nextIDKey)
	if err != nil {
		if err == infra.ErrKeyNotFound {
			return 1, nil
		}
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (s *ticketStore) StageTicket(b infra.Batch, t *types.Ticket) {
	b[ticketKey(t.ID)] = t
	b[dayIndexKey(t.GameDay, t.ID)] = t.ID
}

func (s *ticketStore) StageNextTicketID(b infra.Batch, id int64) {
	b[nextIDKey] = id
}

func (s *ticketStore) Close() error {
	return s.kv.Close()
}
