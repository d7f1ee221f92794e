package watchlist

import (
	"cmp"
	"slices"
	"time"

	"github.com/wolfman30/gymguard-dashboard/internal/members"
)

// DefaultCooldown is how long a contacted member stays off the watchlist.
const DefaultCooldown = 24 * time.Hour

// Eligible reports whether m belongs on the watchlist at now. A member
// contacted exactly cooldown ago is still cooling down.
func Eligible(m members.Member, now time.Time, cooldown time.Duration) bool {
	if !m.IsHighRisk {
		return false
	}
	if m.LastContactedAt == nil {
		return true
	}
	return m.LastContactedAt.Before(now.Add(-cooldown))
}

// Filter keeps the eligible members and returns them ranked by risk.
// The input slice is not modified.
func Filter(list []members.Member, now time.Time, cooldown time.Duration) []members.Member {
	out := make([]members.Member, 0, len(list))
	for _, m := range list {
		if Eligible(m, now, cooldown) {
			out = append(out, m)
		}
	}
	SortByRisk(out)
	return out
}

// SortByRisk orders members by churn score descending. Unscored members
// sort last; ties fall back to row id so the order is deterministic.
func SortByRisk(list []members.Member) {
	slices.SortStableFunc(list, func(a, b members.Member) int {
		switch {
		case a.LastChurnScore == nil && b.LastChurnScore == nil:
		case a.LastChurnScore == nil:
			return 1
		case b.LastChurnScore == nil:
			return -1
		default:
			if c := cmp.Compare(*b.LastChurnScore, *a.LastChurnScore); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
