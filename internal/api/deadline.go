package api

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrBadDeadline is returned when a deadline string matches none of the
// accepted formats.
var ErrBadDeadline = errors.New("invalid deadline format")

// absoluteDeadlineLayout is the accepted wall-clock deadline format,
// interpreted in the configured display timezone.
const absoluteDeadlineLayout = "2006-01-02 15:04"

// ParseDeadline parses a user-supplied deadline string. Accepted forms:
// empty (no deadline), "+Nh" and "+Nm" relative offsets from now, and an
// absolute "YYYY-MM-DD HH:MM" in the given location. The result is UTC.
func ParseDeadline(input string, now time.Time, location *time.Location) (*time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	if location == nil {
		location = time.UTC
	}

	if strings.HasPrefix(input, "+") {
		if len(input) < 3 {
			return nil, ErrBadDeadline
		}
		unit := input[len(input)-1]
		amount, err := strconv.Atoi(input[1 : len(input)-1])
		if err != nil || amount <= 0 {
			return nil, ErrBadDeadline
		}

		var d time.Duration
		switch unit {
		case 'h':
			d = time.Duration(amount) * time.Hour
		case 'm':
			d = time.Duration(amount) * time.Minute
		default:
			return nil, ErrBadDeadline
		}

		deadline := now.UTC().Add(d)
		return &deadline, nil
	}

	parsed, err := time.ParseInLocation(absoluteDeadlineLayout, input, location)
	if err != nil {
		return nil, ErrBadDeadline
	}

	deadline := parsed.UTC()
	return &deadline, nil
}
