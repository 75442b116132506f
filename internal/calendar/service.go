package calendar

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/adventquiz/calendar-platform/internal/content"
	"github.com/adventquiz/calendar-platform/internal/datetime"
	"github.com/adventquiz/calendar-platform/internal/player"
)

var (
	// ErrNoPlayer: the operation was attempted without a player snapshot.
	ErrNoPlayer = errors.New("no player")
	// ErrNoYear: no year selected.
	ErrNoYear = errors.New("no year selected")
	// ErrInvalidDoor: the door number is outside 1..24.
	ErrInvalidDoor = errors.New("invalid door number")
	// ErrDoorLocked: the door's calendar date has not arrived.
	ErrDoorLocked = errors.New("door is locked")
)

var doorsOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "advent_doors_opened_total",
	Help: "Doors opened across all players and years.",
})

// Service provides validated door state transitions over the player store.
// Each mutation reads the caller's player snapshot, derives the new
// doors_opened array, persists it as a full replacement, and only then
// updates the snapshot. Two concurrent sessions on the same player can still
// lose updates to each other (last writer wins); that is an accepted
// limitation of the row-level array storage.
type Service struct {
	store  player.Store
	clock  datetime.Clock
	logger zerolog.Logger
}

func NewService(store player.Store, clock datetime.Clock, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		clock:  clock,
		logger: logger.With().Str("component", "doors").Logger(),
	}
}

// DoorStates derives the current per-door states for a (player, year) pair.
func (s *Service) DoorStates(p *player.Player, year *content.Year, policy GatePolicy) (*DoorStates, error) {
	return Compute(p, year, s.clock.Now(), policy)
}

func (s *Service) validate(p *player.Player, year *content.Year, doorNumber int) error {
	if p == nil {
		s.logger.Error().Msg("no player id")
		return ErrNoPlayer
	}
	if year == nil {
		s.logger.Error().Msg("no year selected")
		return ErrNoYear
	}
	if doorNumber < 1 || doorNumber > DoorCount {
		return fmt.Errorf("%w: %d", ErrInvalidDoor, doorNumber)
	}
	return nil
}

// canonicalYear is the 4-digit form new door records are stored with.
func canonicalYear(year *content.Year) string {
	if n, ok := datetime.YearNumber(year.Year); ok {
		return strconv.Itoa(n)
	}
	return year.Year
}

// OpenDoor records that the player opened a door. Opening an already-opened
// door is a no-op. The date gate is re-validated here, so a locked door
// cannot be opened by calling this directly; the gate check in the state
// derivation alone is not enough.
func (s *Service) OpenDoor(ctx context.Context, p *player.Player, year *content.Year, doorNumber int, policy GatePolicy) (DoorState, error) {
	if err := s.validate(p, year, doorNumber); err != nil {
		return "", err
	}

	states, err := Compute(p, year, s.clock.Now(), policy)
	if err != nil {
		return "", err
	}
	switch state := states.State(doorNumber); state {
	case StateLocked:
		return StateLocked, fmt.Errorf("%w: door %d", ErrDoorLocked, doorNumber)
	case StateOpen, StateAnswered:
		s.logger.Debug().Int("door", doorNumber).Msg("door already opened")
		return state, nil
	}

	updated := make([]player.DoorRecord, len(p.DoorsOpened), len(p.DoorsOpened)+1)
	copy(updated, p.DoorsOpened)
	updated = append(updated, player.DoorRecord{
		Year:       canonicalYear(year),
		DoorNumber: doorNumber,
	})

	if err := s.store.ReplaceDoorsOpened(ctx, p.ID, updated); err != nil {
		return "", fmt.Errorf("persist doors_opened: %w", err)
	}
	p.DoorsOpened = updated

	doorsOpenedTotal.Inc()
	s.logger.Info().
		Str("player_id", p.ID.String()).
		Str("year", year.Year).
		Int("door", doorNumber).
		Msg("door opened")
	return StateOpen, nil
}

// LockDoorAfterAnswer marks the door's record as answered, creating the
// record when the answer flow bypassed an explicit open. Existing record
// fields are preserved. The date gate applies here as in OpenDoor: a door
// whose date has not arrived cannot be finalized, so no answered record ever
// exists for a door still rendered locked.
func (s *Service) LockDoorAfterAnswer(ctx context.Context, p *player.Player, year *content.Year, doorNumber int, policy GatePolicy) error {
	if err := s.validate(p, year, doorNumber); err != nil {
		return err
	}

	states, err := Compute(p, year, s.clock.Now(), policy)
	if err != nil {
		return err
	}
	if states.State(doorNumber) == StateLocked {
		return fmt.Errorf("%w: door %d", ErrDoorLocked, doorNumber)
	}

	updated := make([]player.DoorRecord, len(p.DoorsOpened), len(p.DoorsOpened)+1)
	copy(updated, p.DoorsOpened)

	found := false
	for i := range updated {
		if updated[i].DoorNumber == doorNumber && datetime.SameYear(updated[i].Year, year.Year) {
			updated[i].IsAnswered = true
			found = true
			break
		}
	}
	if !found {
		updated = append(updated, player.DoorRecord{
			Year:       canonicalYear(year),
			DoorNumber: doorNumber,
			IsAnswered: true,
		})
	}

	if err := s.store.ReplaceDoorsOpened(ctx, p.ID, updated); err != nil {
		return fmt.Errorf("persist doors_opened: %w", err)
	}
	p.DoorsOpened = updated

	s.logger.Info().
		Str("player_id", p.ID.String()).
		Str("year", year.Year).
		Int("door", doorNumber).
		Msg("door locked after answer")
	return nil
}
