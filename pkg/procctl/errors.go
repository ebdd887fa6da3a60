package procctl

import "errors"

var (
	// ErrOutOfRange is returned for a slot index outside [0, MaxSlots).
	ErrOutOfRange = errors.New("procctl: slot index out of range")
	// ErrIO is returned when the backing file cannot be created, opened or mapped.
	ErrIO = errors.New("procctl: backing file i/o failure")
	// ErrSizeMismatch is returned when an existing backing file has a length that
	// cannot be reconciled with the layout.
	ErrSizeMismatch = errors.New("procctl: backing file size mismatch")
	// ErrInvalidLayout is returned by Layout.Validate.
	ErrInvalidLayout = errors.New("procctl: invalid layout")
	// ErrClosed is returned for operations on a closed Region.
	ErrClosed = errors.New("procctl: region closed")
	// ErrStillUp is returned by Controller.WaitDown when the slot never went down.
	ErrStillUp = errors.New("procctl: process still up")
)
