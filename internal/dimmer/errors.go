package dimmer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMode is returned for a channel backend mode that is neither
	// hardware nor software.
	ErrInvalidMode = errors.New("dimmer: invalid mode")
	// ErrIO wraps a failed Sink write. The transition in progress is aborted.
	ErrIO = errors.New("dimmer: hardware write failed")
	// ErrLevelRange is returned for a brightness percent outside [0,100].
	ErrLevelRange = errors.New("dimmer: level out of range")
	// ErrNoChannels is returned when a fixture is built without channels.
	ErrNoChannels = errors.New("dimmer: fixture has no channels")
)

func ioErr(what string, id int, err error) error {
	return fmt.Errorf("%w: %s %d: %w", ErrIO, what, id, err)
}
