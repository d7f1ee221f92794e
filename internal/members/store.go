package members

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// HistoryLimit caps how many score points the detail view loads.
const HistoryLimit = 30

const memberColumns = `id, member_id, first_name, last_name, last_churn_score, last_score_date,
		is_high_risk, last_contacted_at, sms_opted_out, gym_id, email, phone`

// Store reads member rows. It never writes them: contact timestamps and
// opt-out flags belong to the outreach API.
type Store struct {
	db DB
}

// NewStore creates a new member store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// ListWatchlist returns high-risk members of a gym that were never contacted
// or last contacted strictly before cutoff, highest score first. Unscored
// members sort last.
func (s *Store) ListWatchlist(ctx context.Context, gymID string, cutoff time.Time) ([]Member, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+memberColumns+`
		FROM members
		WHERE gym_id = $1
		  AND is_high_risk = true
		  AND (last_contacted_at IS NULL OR last_contacted_at < $2)
		ORDER BY last_churn_score DESC NULLS LAST, id ASC`, gymID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("members: list watchlist: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

// RosterOrder selects how ListRoster sorts a gym's members.
type RosterOrder int

const (
	// ByLastName sorts alphabetically for the member directory.
	ByLastName RosterOrder = iota
	// ByRisk sorts highest churn score first, unscored last.
	ByRisk
)

// ListRoster returns every member of a gym, regardless of risk or contact state.
func (s *Store) ListRoster(ctx context.Context, gymID string, order RosterOrder) ([]Member, error) {
	orderBy := `last_name ASC, first_name ASC, id ASC`
	if order == ByRisk {
		orderBy = `last_churn_score DESC NULLS LAST, id ASC`
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+memberColumns+`
		FROM members
		WHERE gym_id = $1
		ORDER BY `+orderBy, gymID)
	if err != nil {
		return nil, fmt.Errorf("members: list roster: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

// GetByMemberID loads a member by business identifier within a gym.
func (s *Store) GetByMemberID(ctx context.Context, gymID, memberID string) (*Member, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+memberColumns+`
		FROM members
		WHERE gym_id = $1 AND member_id = $2`, gymID, memberID)
	m, err := scanMember(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("members: get by member id: %w", err)
	}
	return &m, nil
}

// ScoreHistory returns up to HistoryLimit score points, newest first.
func (s *Store) ScoreHistory(ctx context.Context, gymID, memberID string) ([]ScorePoint, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, churn_score, score_date
		FROM member_score_history
		WHERE gym_id = $1 AND member_id = $2
		ORDER BY score_date DESC
		LIMIT $3`, gymID, memberID, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("members: score history: %w", err)
	}
	defer rows.Close()

	var history []ScorePoint
	for rows.Next() {
		var p ScorePoint
		if err := rows.Scan(&p.ID, &p.ChurnScore, &p.ScoreDate); err != nil {
			return nil, fmt.Errorf("members: scan score point: %w", err)
		}
		history = append(history, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("members: iterate score history: %w", err)
	}
	return history, nil
}

func scanMembers(rows pgx.Rows) ([]Member, error) {
	var out []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("members: scan member: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("members: iterate members: %w", err)
	}
	return out, nil
}

func scanMember(row pgx.Row) (Member, error) {
	var m Member
	err := row.Scan(
		&m.ID, &m.MemberID, &m.FirstName, &m.LastName, &m.LastChurnScore, &m.LastScoreDate,
		&m.IsHighRisk, &m.LastContactedAt, &m.SMSOptedOut, &m.GymID, &m.Email, &m.Phone,
	)
	return m, err
}
