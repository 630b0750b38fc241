package domain

// RoundOf returns the 1-based round for a pick index. The round is clamped to
// the final round so that an index equal to TotalPicks (draft over) still maps
// to a valid round.
func RoundOf(pickIndex int) int {
	round := pickIndex/TeamCount + 1
	if round > TotalRounds {
		round = TotalRounds
	}
	return round
}

// RankOnClock returns the draft-order index whose turn it is at the given pick
// index. Odd rounds run 0..4, even rounds reverse to 4..0 (snake order).
func RankOnClock(pickIndex int) int {
	round := pickIndex/TeamCount + 1
	offset := pickIndex % TeamCount
	if round%2 == 0 {
		return TeamCount - 1 - offset
	}
	return offset
}
