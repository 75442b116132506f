package player

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/adventquiz/calendar-platform/internal/datetime"
)

// ErrNotFound is returned when no player row matches the lookup.
var ErrNotFound = errors.New("player not found")

// Score is a player's cumulative score for one calendar year. At most one
// entry exists per distinct year value.
type Score struct {
	Year  string `json:"year"`
	Score int    `json:"score"`
}

// DoorRecord is the persisted fact that a player opened (and optionally
// answered) a specific door in a specific year. IsAnswered false means opened
// but not yet finalized.
type DoorRecord struct {
	Year       string `json:"year"`
	DoorNumber int    `json:"door_number"`
	IsAnswered bool   `json:"isAnswered,omitempty"`
}

// Player is the mutable per-account game state. The database owns it; any
// in-memory copy is a transient snapshot for the current request.
type Player struct {
	ID           uuid.UUID
	CreatedAt    time.Time
	Email        *string
	PasswordHash *string
	Name         string
	UserType     string
	Scores       []Score
	DoorsOpened  []DoorRecord
	LastLoginAt  *time.Time
}

// FindDoor returns the door record for (year, doorNumber), tolerant of
// mismatched year representations, or nil when none exists.
func (p *Player) FindDoor(year string, doorNumber int) *DoorRecord {
	for i := range p.DoorsOpened {
		d := &p.DoorsOpened[i]
		if d.DoorNumber == doorNumber && datetime.SameYear(d.Year, year) {
			return d
		}
	}
	return nil
}

// ScoreForYear returns the score entry matching year, or nil.
func (p *Player) ScoreForYear(year string) *Score {
	for i := range p.Scores {
		if datetime.SameYear(p.Scores[i].Year, year) {
			return &p.Scores[i]
		}
	}
	return nil
}

// OpenedDoors counts every door record the player holds, across all years.
// Leaderboard ties on score are broken by this total.
func (p *Player) OpenedDoors() int {
	return len(p.DoorsOpened)
}

// Store is the persistent player store client. Scores and doors_opened are
// written as full-array replacements; the store never merges.
type Store interface {
	Create(ctx context.Context, p *Player) error
	GetByID(ctx context.Context, id uuid.UUID) (*Player, error)
	GetByEmail(ctx context.Context, email string) (*Player, error)
	List(ctx context.Context) ([]Player, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
	ReplaceScores(ctx context.Context, id uuid.UUID, scores []Score) error
	ReplaceDoorsOpened(ctx context.Context, id uuid.UUID, doors []DoorRecord) error
	UpdateLogin(ctx context.Context, id uuid.UUID) error
}
