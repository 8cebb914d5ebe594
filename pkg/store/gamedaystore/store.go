package gamedaystore

import (
	"fmt"

	"github.com/luckypool/lottery-engine/pkg/common/types"
	"github.com/luckypool/lottery-engine/pkg/infra"
)

const dayPrefix = "game_days"

func dayKey(day int64) string {
	return fmt.Sprintf("%s/%d", dayPrefix, day)
}

type Store interface {
	// GetDay returns nil when the day has no record yet; records are created
	// lazily on the first purchase of the day.
	GetDay(day int64) (*types.GameDay, error)
	// ListDays enumerates every recorded day. Diagnostics only.
	ListDays() ([]*types.GameDay, error)
	StageDay(b infra.Batch, d *types.GameDay)
	Close() error
}

type gameDayStore struct {
	kv infra.KVStore
}

func New(kv infra.KVStore) Store {
	return &gameDayStore{kv: kv}
}

func (s *gameDayStore) GetDay(day int64) (*types.GameDay, error) {
	var d types.GameDay
	found, err := s.kv.GetAny(dayKey(day), &d)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &d, nil
}

func (s *gameDayStore) ListDays() ([]*types.GameDay, error) {
	kvs, err := s.kv.List(dayPrefix + "/")
	if err != nil {
		return nil, err
	}

	days := make([]*types.GameDay, 0, len(kvs))
	for _, kv := range kvs {
		var d types.GameDay
		if err := infra.JSON.Unmarshal(kv.Value, &d); err != nil {
			return nil, fmt.Errorf("corrupt game day record %s: %w", kv.Key, err)
		}
		days = append(days, &d)
	}
	return days, nil
}

func (s *gameDayStore) StageDay(b infra.Batch, d *types.GameDay) {
	b[dayKey(d.Day)] = d
}

func (s *gameDayStore) Close() error {
	return s.kv.Close()
}
