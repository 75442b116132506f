package calendar

import (
	"fmt"
	"strconv"
)

// ParseDoorSlug splits a door slug into its year and door number. Slugs
// concatenate the 4-digit year and the door number, so "20253" is door 3
// of 2025 and "202512" is door 12.
func ParseDoorSlug(slug string) (string, int, error) {
	if len(slug) < 5 {
		return "", 0, fmt.Errorf("door slug %q too short", slug)
	}

	year := slug[:4]
	if _, err := strconv.Atoi(year); err != nil {
		return "", 0, fmt.Errorf("door slug %q has no year prefix", slug)
	}

	doorNumber, err := strconv.Atoi(slug[4:])
	if err != nil {
		return "", 0, fmt.Errorf("door slug %q has no door number", slug)
	}
	if doorNumber < 1 || doorNumber > DoorCount {
		return "", 0, fmt.Errorf("door number %d out of range", doorNumber)
	}

	return year, doorNumber, nil
}

// DoorSlug builds the canonical slug for a door.
func DoorSlug(year string, doorNumber int) string {
	return fmt.Sprintf("%s%d", year, doorNumber)
}
