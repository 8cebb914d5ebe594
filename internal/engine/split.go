package engine

import (
	"github.com/luckypool/lottery-engine/pkg/common/config"
	"github.com/luckypool/lottery-engine/pkg/common/types"
)

const bpsDenominator = 10000

func bpsShare(amount, bps int64) int64 {
	return amount * bps / bpsDenominator
}

// purchaseSplit partitions one purchase between the reserve and main-pool
// sides and breaks the reserve side down per tier. All arithmetic is integer;
// whatever the tier shares do not consume lands in the reserve buffer so the
// sum of the parts always equals the input amount.
type purchaseSplit struct {
	MainPortion    int64
	ReservePortion int64

	ReserveFirst  int64
	ReserveSecond int64
	ReserveThird  int64
	ReserveBuffer int64
}

func splitPurchase(amount int64, s config.SplitConfig) purchaseSplit {
	reserve := bpsShare(amount, s.ReserveBps)
	split := purchaseSplit{
		MainPortion:    amount - reserve,
		ReservePortion: reserve,
		ReserveFirst:   bpsShare(reserve, s.ReserveFirstBps),
		ReserveSecond:  bpsShare(reserve, s.ReserveSecondBps),
		ReserveThird:   bpsShare(reserve, s.ReserveThirdBps),
	}
	split.ReserveBuffer = reserve - split.ReserveFirst - split.ReserveSecond - split.ReserveThird
	return split
}

// splitMainPortion breaks a day's accumulated main portion into the four
// main-pool credits. The integer remainder is returned separately and goes
// to the undistributed buffer, never to a named pool.
func splitMainPortion(mainPortion int64, s config.SplitConfig) (credits types.MainPools, remainder int64) {
	credits = types.MainPools{
		First:       bpsShare(mainPortion, s.MainFirstBps),
		Second:      bpsShare(mainPortion, s.MainSecondBps),
		Third:       bpsShare(mainPortion, s.MainThirdBps),
		Development: bpsShare(mainPortion, s.MainDevelopmentBps),
	}
	remainder = mainPortion - credits.Sum()
	return credits, remainder
}
