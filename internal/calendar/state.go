package calendar

import (
	"fmt"
	"time"

	"github.com/adventquiz/calendar-platform/internal/content"
	"github.com/adventquiz/calendar-platform/internal/datetime"
	"github.com/adventquiz/calendar-platform/internal/player"
)

// DoorCount is the number of doors in a calendar year.
const DoorCount = 24

// DoorState is the derived lifecycle state of a door for one player. It is
// computed fresh per request and never persisted.
type DoorState string

const (
	// StateLocked: the door's calendar date has not arrived yet.
	StateLocked DoorState = "locked"
	// StateClosed: unlockable, but the player has not opened it.
	StateClosed DoorState = "closed"
	// StateOpen: opened but the question is not finalized.
	StateOpen DoorState = "open"
	// StateAnswered: the answer flow has locked the door.
	StateAnswered DoorState = "answered"
)

// GatePolicy decides whether the calendar-date gate applies. Test mode
// injects a bypass so QA can unlock every door; production uses the zero
// value. Both paths run the same derivation code.
type GatePolicy struct {
	BypassDateGate bool
}

// DoorStates holds the derived state of all doors for a (player, year) pair.
// Door numbers are 1-indexed throughout the public API; the backing slice is
// the only 0-indexed view and is not exported.
type DoorStates struct {
	states [DoorCount]DoorState
}

// State returns the state of a door by its 1-indexed number.
func (d *DoorStates) State(doorNumber int) DoorState {
	if doorNumber < 1 || doorNumber > DoorCount {
		return StateLocked
	}
	return d.states[doorNumber-1]
}

// All returns the states ordered by door number, for rendering the grid.
func (d *DoorStates) All() []DoorState {
	out := make([]DoorState, DoorCount)
	copy(out, d.states[:])
	return out
}

// Compute derives the per-door states from the calendar date, the gate
// policy, and the player's persisted door records.
//
// For each door: a future door date means locked unless the policy bypasses
// the gate. Otherwise the player's record decides: none means closed, an
// answered record means answered, any other record means open.
func Compute(p *player.Player, year *content.Year, today time.Time, policy GatePolicy) (*DoorStates, error) {
	if p == nil {
		return nil, ErrNoPlayer
	}
	if year == nil {
		return nil, ErrNoYear
	}
	yearNum, ok := datetime.YearNumber(year.Year)
	if !ok {
		return nil, fmt.Errorf("invalid year value %q", year.Year)
	}

	today = datetime.DateOnly(today)
	var result DoorStates
	for door := 1; door <= DoorCount; door++ {
		doorDate := datetime.DoorDate(yearNum, door, today.Location())
		if doorDate.After(today) && !policy.BypassDateGate {
			result.states[door-1] = StateLocked
			continue
		}

		switch record := p.FindDoor(year.Year, door); {
		case record == nil:
			result.states[door-1] = StateClosed
		case record.IsAnswered:
			result.states[door-1] = StateAnswered
		default:
			result.states[door-1] = StateOpen
		}
	}
	return &result, nil
}
