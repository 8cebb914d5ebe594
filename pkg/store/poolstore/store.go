package poolstore

import (
	"github.com/luckypool/lottery-engine/pkg/common/types"
	"github.com/luckypool/lottery-engine/pkg/infra"
)

const (
	mainPoolsKey      = "pools/main"
	reservePoolsKey   = "pools/reserve"
	schedulerStateKey = "scheduler/state"
	pendingDrawKey    = "scheduler/pending_draw"
)

type Store interface {
	GetMainPools() (types.MainPools, error)
	GetReservePools() (types.ReservePools, error)
	GetSchedulerState() (types.SchedulerState, bool, error)
	GetPendingDraw() (types.PendingDrawRequest, error)

	StageMainPools(b infra.Batch, p types.MainPools)
	StageReservePools(b infra.Batch, p types.ReservePools)
	StageSchedulerState(b infra.Batch, s types.SchedulerState)
	StagePendingDraw(b infra.Batch, p types.PendingDrawRequest)

	Close() error
}

type poolStore struct {
	kv infra.KVStore
}

func New(kv infra.KVStore) Store {
	return &poolStore{kv: kv}
}

func (s *poolStore) GetMainPools() (types.MainPools, error) {
	var p types.MainPools
	_, err := s.kv.GetAny(mainPoolsKey, &p)
	return p, err
}

func (s *poolStore) GetReservePools() (types.ReservePools, error) {
	var p types.ReservePools
	_, err := s.kv.GetAny(reservePoolsKey, &p)
	return p, err
}

// GetSchedulerState reports found=false on first boot so the caller can seed
// the state from configuration.
func (s *poolStore) GetSchedulerState() (types.SchedulerState, bool, error) {
	var st types.SchedulerState
	found, err := s.kv.GetAny(schedulerStateKey, &st)
	return st, found, err
}

func (s *poolStore) GetPendingDraw() (types.PendingDrawRequest, error) {
	var p types.PendingDrawRequest
	_, err := s.kv.GetAny(pendingDrawKey, &p)
	return p, err
}

func (s *poolStore) StageMainPools(b infra.Batch, p types.MainPools) {
	b[mainPoolsKey] = p
}

func (s *poolStore) StageReservePools(b infra.Batch, p types.ReservePools) {
	b[reservePoolsKey] = p
}

func (s *poolStore) StageSchedulerState(b infra.Batch, st types.SchedulerState) {
	b[schedulerStateKey] = st
}

// StagePendingDraw with a zero-value request clears the outstanding slot.
func (s *poolStore) StagePendingDraw(b infra.Batch, p types.PendingDrawRequest) {
	b[pendingDrawKey] = p
}

func (s *poolStore) Close() error {
	return s.kv.Close()
}
