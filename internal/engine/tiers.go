package engine

import "github.com/luckypool/lottery-engine/pkg/common/types"

// EvaluateTier maps a ticket's numbers against the winning numbers. Pure.
//
// The precedence is intentional and ordering is load-bearing: four exact
// matches always take first prize, and four any-order matches outrank three
// exact matches even though both overlap heavily. anyOrderMatches treats the
// winning numbers as a multiset, so a duplicated winning value cannot be
// matched twice by a single ticket value.
func EvaluateTier(ticketNumbers, winningNumbers []int) types.Tier {
	if len(ticketNumbers) != len(winningNumbers) {
		return types.TierNone
	}

	exact := 0
	for i := range ticketNumbers {
		if ticketNumbers[i] == winningNumbers[i] {
			exact++
		}
	}

	consumed := make([]bool, len(winningNumbers))
	anyOrder := 0
	for _, n := range ticketNumbers {
		for j, w := range winningNumbers {
			if !consumed[j] && n == w {
				consumed[j] = true
				anyOrder++
				break
			}
		}
	}

	switch {
	case exact == len(ticketNumbers):
		return types.TierFirst
	case anyOrder == len(ticketNumbers):
		return types.TierSecond
	case exact == len(ticketNumbers)-1:
		return types.TierThird
	case anyOrder >= len(ticketNumbers)-1:
		return types.TierFreeTicket
	default:
		return types.TierNone
	}
}
