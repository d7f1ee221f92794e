// Package accounts resolves the dashboard profile (gym and role) of a signed-in user.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrProfileNotFound is returned when the user has no gym profile.
	ErrProfileNotFound = errors.New("accounts: profile not found")
	// ErrGymNotFound is returned when no gym row matches.
	ErrGymNotFound = errors.New("accounts: gym not found")
)

// Role gates admin-only parts of the dashboard.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleGymOwner Role = "gym_owner"
)

// Profile links an auth user to the gym they operate.
type Profile struct {
	UserID string `json:"user_id"`
	GymID  string `json:"gym_id"`
	Role   Role   `json:"role"`
}

// IsAdmin reports whether the profile carries the admin role.
func (p Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// EffectiveGymID returns the gym the profile acts on. Admins may target
// another gym; everyone else is pinned to their own.
func (p Profile) EffectiveGymID(target string) string {
	target = strings.TrimSpace(target)
	if p.IsAdmin() && target != "" {
		return target
	}
	return p.GymID
}

// Gym is a tenant of the dashboard.
type Gym struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Querier is the subset of pgx used by Store.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads profiles.
type Store struct {
	db Querier
}

// NewStore creates a profile store.
func NewStore(db Querier) *Store {
	return &Store{db: db}
}

// GetProfile loads the profile for an auth user id. A blank role defaults to gym_owner.
func (s *Store) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var (
		p    = Profile{UserID: userID}
		role *string
	)
	err := s.db.QueryRow(ctx, `SELECT gym_id, role FROM profiles WHERE user_id = $1`, userID).Scan(&p.GymID, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("accounts: get profile: %w", err)
	}
	p.Role = RoleGymOwner
	if role != nil && strings.TrimSpace(*role) != "" {
		p.Role = Role(strings.TrimSpace(*role))
	}
	return &p, nil
}

// ResolveGym returns the gym a request acts on: the profile's own gym, or
// for admins the gym named in target.
func (s *Store) ResolveGym(ctx context.Context, userID, target string) (string, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	return p.EffectiveGymID(target), nil
}

// ListGyms returns every gym by name. Callers gate it to admins.
func (s *Store) ListGyms(ctx context.Context) ([]Gym, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, created_at FROM gyms ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("accounts: list gyms: %w", err)
	}
	defer rows.Close()

	gyms := make([]Gym, 0)
	for rows.Next() {
		var g Gym
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("accounts: scan gym: %w", err)
		}
		gyms = append(gyms, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("accounts: iterate gyms: %w", err)
	}
	return gyms, nil
}

// GetGym loads one gym by id.
func (s *Store) GetGym(ctx context.Context, gymID string) (*Gym, error) {
	var g Gym
	err := s.db.QueryRow(ctx, `SELECT id, name, created_at FROM gyms WHERE id = $1`, gymID).Scan(&g.ID, &g.Name, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGymNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("accounts: get gym: %w", err)
	}
	return &g, nil
}
