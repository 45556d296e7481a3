package missile

import (
	"errors"
	"fmt"
)

// Reasons a tick stopped before steering. None of them are fatal; the next tick retries.
var (
	ErrNotSetup      = errors.New("missile is not set up")
	ErrNoTarget      = errors.New("no target info on missile")
	ErrTargetParse   = errors.New("cannot parse target info")
	ErrNotReleased   = errors.New("missile has not been released")
	ErrLaunching     = errors.New("missile is still launching")
	ErrIncompleteRig = errors.New("incomplete missile rig")
)

// ErrMissingPart names a block the resolver could not find.
type ErrMissingPart string

func (e ErrMissingPart) Error() string {
	return fmt.Sprintf("missing %s", string(e))
}

const (
	PartGroup      ErrMissingPart = "missile group"
	PartRelease    ErrMissingPart = "merge block"
	PartGyro       ErrMissingPart = "gyroscope"
	PartNavigation ErrMissingPart = "remote control"
)

// ParseError carries the custom data that could not be read as a position.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: '%s'", ErrTargetParse, e.Raw)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrTargetParse
}
