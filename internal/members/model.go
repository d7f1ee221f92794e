package members

import (
	"errors"
	"time"
)

// ErrMemberNotFound is returned when no member row matches within the gym.
var ErrMemberNotFound = errors.New("members: member not found")

// Member is the read-only projection of a member row used by the dashboard.
type Member struct {
	ID              string     `json:"id"`
	MemberID        string     `json:"member_id"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	LastChurnScore  *float64   `json:"last_churn_score"`
	LastScoreDate   *time.Time `json:"last_score_date,omitempty"`
	IsHighRisk      bool       `json:"is_high_risk"`
	LastContactedAt *time.Time `json:"last_contacted_at"`
	SMSOptedOut     bool       `json:"sms_opted_out"`
	GymID           string     `json:"gym_id"`
	Email           *string    `json:"email,omitempty"`
	Phone           *string    `json:"phone,omitempty"`
}

// FullName joins first and last name for display.
func (m Member) FullName() string {
	switch {
	case m.FirstName == "":
		return m.LastName
	case m.LastName == "":
		return m.FirstName
	default:
		return m.FirstName + " " + m.LastName
	}
}

// ScorePoint is one historical churn score for a member.
type ScorePoint struct {
	ID         string    `json:"id"`
	ChurnScore float64   `json:"churn_score"`
	ScoreDate  time.Time `json:"score_date"`
}

// Trend summarizes the direction of the two most recent score points.
type Trend string

const (
	TrendRising  Trend = "Rising"
	TrendFalling Trend = "Falling"
	TrendFlat    Trend = "Flat"
)
