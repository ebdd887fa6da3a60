package procctl

import (
	"fmt"
	"path/filepath"
)

const (
	// LayoutVersion is the version of DefaultLayout.
	LayoutVersion = 1

	defaultSlotSize      = 50
	defaultMaxSlots      = 10
	defaultUpOffset      = 0
	defaultCommandOffset = 1
	defaultUpValue       = 0x01
	defaultStopValue     = 0xFF

	// AppSlot is the slot conventionally assigned to the primary application process.
	AppSlot = 0
)

// Layout is the byte-level contract every participant of a control region must
// agree on before mapping it. It is never negotiated through the region itself.
type Layout struct {
	Version       uint8
	SlotSize      int
	MaxSlots      int
	UpOffset      int
	CommandOffset int
	UpValue       byte
	StopValue     byte
}

// DefaultLayout returns the layout used by supervised server processes:
// ten slots of 50 bytes, UP at offset 0, COMMAND at offset 1.
func DefaultLayout() Layout {
	return Layout{
		Version:       LayoutVersion,
		SlotSize:      defaultSlotSize,
		MaxSlots:      defaultMaxSlots,
		UpOffset:      defaultUpOffset,
		CommandOffset: defaultCommandOffset,
		UpValue:       defaultUpValue,
		StopValue:     defaultStopValue,
	}
}

// Validate checks that the layout is usable.
func (l Layout) Validate() error {
	switch {
	case l.SlotSize < 2:
		return fmt.Errorf("%w: slot size %d, need at least 2", ErrInvalidLayout, l.SlotSize)
	case l.MaxSlots < 1:
		return fmt.Errorf("%w: max slots %d", ErrInvalidLayout, l.MaxSlots)
	case l.UpOffset < 0 || l.UpOffset >= l.SlotSize:
		return fmt.Errorf("%w: up offset %d outside slot of %d bytes", ErrInvalidLayout, l.UpOffset, l.SlotSize)
	case l.CommandOffset < 0 || l.CommandOffset >= l.SlotSize:
		return fmt.Errorf("%w: command offset %d outside slot of %d bytes", ErrInvalidLayout, l.CommandOffset, l.SlotSize)
	case l.UpOffset == l.CommandOffset:
		return fmt.Errorf("%w: up and command share offset %d", ErrInvalidLayout, l.UpOffset)
	case l.UpValue == 0:
		return fmt.Errorf("%w: up value must not be zero", ErrInvalidLayout)
	case l.StopValue == 0:
		return fmt.Errorf("%w: stop value must not be zero", ErrInvalidLayout)
	}
	return nil
}

// TotalSize is the size in bytes of the whole control region.
func (l Layout) TotalSize() int {
	return l.SlotSize * l.MaxSlots
}

// Slot returns the byte range of slot index within the region.
func (l Layout) Slot(index int) (offset, length int, err error) {
	if index < 0 || index >= l.MaxSlots {
		return 0, 0, fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, index, l.MaxSlots)
	}
	return index * l.SlotSize, l.SlotSize, nil
}

func (l Layout) upOffset(index int) (int, error) {
	off, _, err := l.Slot(index)
	if err != nil {
		return 0, err
	}
	return off + l.UpOffset, nil
}

func (l Layout) commandOffset(index int) (int, error) {
	off, _, err := l.Slot(index)
	if err != nil {
		return 0, err
	}
	return off + l.CommandOffset, nil
}

// DefaultFilePath returns the conventional location of the backing file below a
// server installation directory.
func DefaultFilePath(baseDir string) string {
	return filepath.Join(baseDir, "temp", "sharedmemory")
}
