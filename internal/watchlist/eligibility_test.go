package watchlist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/gymguard-dashboard/internal/members"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func score(v float64) *float64 { return &v }

func at(t time.Time) *time.Time { return &t }

func member(id string, s *float64) members.Member {
	return members.Member{
		ID:             id,
		MemberID:       "M-" + id,
		FirstName:      "First" + id,
		LastName:       "Last",
		IsHighRisk:     true,
		GymID:          "gym-1",
		LastChurnScore: s,
	}
}

func TestEligibleRequiresHighRisk(t *testing.T) {
	m := member("1", score(99))
	m.IsHighRisk = false
	assert.False(t, Eligible(m, testNow, DefaultCooldown))
}

func TestEligibleNeverContacted(t *testing.T) {
	assert.True(t, Eligible(member("1", score(80)), testNow, DefaultCooldown))
}

func TestEligibleCooldownBoundary(t *testing.T) {
	cases := []struct {
		name string
		ago  time.Duration
		want bool
	}{
		{"one hour ago", time.Hour, false},
		{"exactly 24h", 24 * time.Hour, false},
		{"24h and a second", 24*time.Hour + time.Second, true},
		{"three days", 72 * time.Hour, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := member("1", score(80))
			m.LastContactedAt = at(testNow.Add(-tc.ago))
			assert.Equal(t, tc.want, Eligible(m, testNow, DefaultCooldown))
		})
	}
}

func TestFilterOrdersByScoreDescending(t *testing.T) {
	low := member("c", score(40))
	high := member("a", score(95))
	mid := member("b", score(65))
	unscored := member("0", nil)
	lowRisk := member("d", score(99))
	lowRisk.IsHighRisk = false

	got := Filter([]members.Member{low, unscored, high, lowRisk, mid}, testNow, DefaultCooldown)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"a", "b", "c", "0"}, ids(got))

	for i := 0; i+1 < len(got); i++ {
		a, b := got[i].LastChurnScore, got[i+1].LastChurnScore
		if a != nil && b != nil {
			assert.GreaterOrEqual(t, *a, *b)
		}
	}
}

func TestSortByRiskTieBreaksOnID(t *testing.T) {
	list := []members.Member{member("b", score(80)), member("a", score(80)), member("z", nil), member("y", nil)}
	SortByRisk(list)
	assert.Equal(t, []string{"a", "b", "y", "z"}, ids(list))
}

func TestFilterDoesNotModifyInput(t *testing.T) {
	in := []members.Member{member("b", score(10)), member("a", score(90))}
	_ = Filter(in, testNow, DefaultCooldown)
	assert.Equal(t, []string{"b", "a"}, ids(in))
}

func TestTemplatesCarryOptOutNotice(t *testing.T) {
	assert.Contains(t, DefaultSingleTemplate, "Reply STOP to unsubscribe")
	assert.Contains(t, DefaultMassTemplate, "Reply STOP to unsubscribe")
	assert.Equal(t, "Hi Dana, just checking in on your fitness goals! Reply STOP to unsubscribe.",
		DraftFor(members.Member{FirstName: "Dana"}))
	assert.Equal(t, "Mass Message (3)", MassButtonLabel(3))
	assert.Equal(t, "/campaigns/c-1/progress", CampaignProgressPath("c-1"))
}

func ids(list []members.Member) []string {
	out := make([]string, len(list))
	for i, m := range list {
		out[i] = m.ID
	}
	return out
}
