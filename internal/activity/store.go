// Package activity serves the read-only audit trail, recent contacts and
// failed sends recorded by the outreach API.
package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// AuditLimit caps the audit trail page.
const AuditLimit = 100

// AuditEntry is one audit_logs row.
type AuditEntry struct {
	ID         string          `json:"id"`
	GymID      string          `json:"gym_id"`
	UserID     string          `json:"user_id,omitempty"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type,omitempty"`
	EntityID   string          `json:"entity_id,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ContactEntry is one contacted_log row.
type ContactEntry struct {
	ID          string    `json:"id"`
	MemberID    string    `json:"member_id"`
	Channel     string    `json:"channel"`
	MessageBody string    `json:"message_body"`
	SentAt      time.Time `json:"sent_at"`
}

// DeadLetter is a send the outreach API gave up on.
type DeadLetter struct {
	ID          string    `json:"id"`
	MemberID    string    `json:"member_id"`
	Channel     string    `json:"channel"`
	MessageBody string    `json:"message_body"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store reads activity tables through database/sql.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// AuditLog returns the newest AuditLimit entries, optionally limited to actions.
func (s *Store) AuditLog(ctx context.Context, gymID string, actions []string) ([]AuditEntry, error) {
	query := `
		SELECT id, gym_id, user_id, action, entity_type, entity_id, metadata, created_at
		FROM audit_logs
		WHERE gym_id = $1
	`
	args := []any{gymID}
	if actions = cleanActions(actions); len(actions) > 0 {
		query += ` AND action = ANY($2)`
		args = append(args, pq.Array(actions))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, AuditLimit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("activity: query audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]AuditEntry, 0)
	for rows.Next() {
		var (
			e                          AuditEntry
			userID, entityType, entity sql.NullString
			metadata                   []byte
		)
		if err := rows.Scan(&e.ID, &e.GymID, &userID, &e.Action, &entityType, &entity, &metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("activity: scan audit entry: %w", err)
		}
		e.UserID = userID.String
		e.EntityType = entityType.String
		e.EntityID = entity.String
		if len(metadata) > 0 {
			e.Metadata = json.RawMessage(metadata)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ContactedSince returns contacts sent at or after since, newest first.
func (s *Store) ContactedSince(ctx context.Context, gymID string, since time.Time) ([]ContactEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, member_id, channel, message_body, sent_at
		FROM contacted_log
		WHERE gym_id = $1 AND sent_at >= $2
		ORDER BY sent_at DESC
	`, gymID, since)
	if err != nil {
		return nil, fmt.Errorf("activity: query contacted log: %w", err)
	}
	defer rows.Close()

	entries := make([]ContactEntry, 0)
	for rows.Next() {
		var (
			e    ContactEntry
			body sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.MemberID, &e.Channel, &body, &e.SentAt); err != nil {
			return nil, fmt.Errorf("activity: scan contact: %w", err)
		}
		e.MessageBody = body.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeadLetters returns failed sends, newest first.
func (s *Store) DeadLetters(ctx context.Context, gymID string) ([]DeadLetter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, member_id, channel, message_body, reason, created_at
		FROM dead_letter_messages
		WHERE gym_id = $1
		ORDER BY created_at DESC
	`, gymID)
	if err != nil {
		return nil, fmt.Errorf("activity: query dead letters: %w", err)
	}
	defer rows.Close()

	out := make([]DeadLetter, 0)
	for rows.Next() {
		var (
			d            DeadLetter
			body, reason sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.MemberID, &d.Channel, &body, &reason, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("activity: scan dead letter: %w", err)
		}
		d.MessageBody = body.String
		d.Reason = reason.String
		out = append(out, d)
	}
	return out, rows.Err()
}

func cleanActions(actions []string) []string {
	out := actions[:0:0]
	for _, a := range actions {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
