package imuse

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors.
// The errors returned by the Driver methods wrap these values,
// use errors.Is to check for them.
var (
	// ErrArgument is reported for out of range groups, volumes,
	// params, part indexes and so on. No state is changed.
	ErrArgument = errors.New("argument out of range")

	ErrUnknownSound = errors.New("sound is not registered")
	ErrSoundPlaying = errors.New("sound is already playing")
	ErrNotPlaying   = errors.New("sound is not playing")
	ErrTooManyCues  = errors.New("too many active cues")
)

func argumentErrorf(format string, args ...any) error {
	return errors.Wrapf(ErrArgument, format, args...)
}

// InvariantError describes an internal consistency violation
// detected by Driver.CheckInvariants.
type InvariantError struct {
	Message string

	Channel int
	Sound   SoundID
	Part    int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s (channel=%d sound=%d part=%d)",
		e.Message, e.Channel, e.Sound, e.Part)
}
