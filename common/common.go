package common

import (
	"errors"
	"fmt"
	"strings"
)

// AppendError appends an error to a list of existing errors
// either can be nil
func AppendError(original, incoming error) error {
	if incoming == nil {
		return original
	}
	if original == nil {
		return incoming
	}
	return errors.Join(original, incoming)
}

// ParseDirection converts a case-insensitive string to a Direction
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToUpper(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", fmt.Errorf("%w %q", errUnknownDirection, s)
	}
	return d, nil
}

var errUnknownDirection = errors.New("unknown direction")
