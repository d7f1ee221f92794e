// Package campaigns reports the progress of mass outreach campaigns.
package campaigns

import (
	"errors"
	"math"
	"time"
)

// ErrCampaignNotFound is returned when no campaign matches within the gym.
var ErrCampaignNotFound = errors.New("campaigns: campaign not found")

// Status values written by the outreach API.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
)

// Campaign is one mass outreach run.
type Campaign struct {
	ID              string    `json:"id"`
	GymID           string    `json:"gym_id"`
	Status          string    `json:"status"`
	TotalRecipients int       `json:"total_recipients"`
	CreatedAt       time.Time `json:"created_at"`
}

// Counts tallies recipients by delivery status.
type Counts struct {
	Queued  int `json:"queued"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Processed is every recipient that reached a final state.
func (c Counts) Processed() int {
	return c.Sent + c.Failed + c.Skipped
}

// Snapshot is a campaign with its counts at one point in time.
type Snapshot struct {
	Campaign        Campaign  `json:"campaign"`
	Counts          Counts    `json:"counts"`
	PercentComplete int       `json:"percent_complete"`
	Done            bool      `json:"done"`
	TakenAt         time.Time `json:"taken_at"`
}

// PercentComplete rounds processed/total to a whole percent; an empty
// campaign is 0%.
func PercentComplete(total int, c Counts) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(c.Processed()) / float64(total) * 100))
}

func newSnapshot(c Campaign, counts Counts, now time.Time) *Snapshot {
	return &Snapshot{
		Campaign:        c,
		Counts:          counts,
		PercentComplete: PercentComplete(c.TotalRecipients, counts),
		Done:            c.Status == StatusCompleted && counts.Queued == 0,
		TakenAt:         now,
	}
}
