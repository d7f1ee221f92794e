package members

import "slices"

// TrendOf compares the newest two points of a newest-first history.
func TrendOf(history []ScorePoint) Trend {
	if len(history) < 2 {
		return TrendFlat
	}
	latest, previous := history[0].ChurnScore, history[1].ChurnScore
	switch {
	case latest > previous:
		return TrendRising
	case latest < previous:
		return TrendFalling
	default:
		return TrendFlat
	}
}

// Chronological returns a copy of history ordered oldest first, which is the
// order charts plot it in.
func Chronological(history []ScorePoint) []ScorePoint {
	out := slices.Clone(history)
	slices.SortStableFunc(out, func(a, b ScorePoint) int {
		return a.ScoreDate.Compare(b.ScoreDate)
	})
	return out
}
