package campaigns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of pgx used by Store.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads campaigns and recipient counts.
type Store struct {
	db  Querier
	now func() time.Time
}

func NewStore(db Querier) *Store {
	return &Store{db: db, now: time.Now}
}

const snapshotQuery = `
	SELECT c.id, c.gym_id, c.status, c.total_recipients, c.created_at,
		COUNT(r.id) FILTER (WHERE r.status = 'queued'),
		COUNT(r.id) FILTER (WHERE r.status = 'sent'),
		COUNT(r.id) FILTER (WHERE r.status = 'failed'),
		COUNT(r.id) FILTER (WHERE r.status = 'skipped_opted_out')
	FROM campaigns c
	LEFT JOIN campaign_recipients r ON r.campaign_id = c.id
	WHERE c.id = $1 AND c.gym_id = $2
	GROUP BY c.id, c.gym_id, c.status, c.total_recipients, c.created_at
`

// Snapshot reads a campaign and its status counts in one round trip.
func (s *Store) Snapshot(ctx context.Context, gymID, campaignID string) (*Snapshot, error) {
	var (
		c      Campaign
		counts Counts
	)
	err := s.db.QueryRow(ctx, snapshotQuery, campaignID, gymID).Scan(
		&c.ID, &c.GymID, &c.Status, &c.TotalRecipients, &c.CreatedAt,
		&counts.Queued, &counts.Sent, &counts.Failed, &counts.Skipped,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("campaigns: snapshot: %w", err)
	}
	return newSnapshot(c, counts, s.now().UTC()), nil
}
