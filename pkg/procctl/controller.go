package procctl

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
)

// SlotState is the decoded state of one slot.
type SlotState struct {
	Index   int
	Up      bool
	Command Command
}

// Controller is the supervisor side of a region. It owns the COMMAND byte of
// every slot and may read any slot.
//
// Two controllers writing the same slot's COMMAND byte are not detected; the
// last write wins.
type Controller struct {
	region *Region
}

// NewController returns a controller over r.
func NewController(r *Region) *Controller {
	return &Controller{region: r}
}

// RequestStop asks the process in slot index to stop. It does not wait for the
// process to exit and gets no acknowledgment.
func (c *Controller) RequestStop(index int) error {
	off, err := c.region.layout.commandOffset(index)
	if err != nil {
		return err
	}
	if err := c.region.storeByte(off, c.region.layout.EncodeCommand(CommandStop)); err != nil {
		return err
	}
	c.region.inst.record("request_stop", index)
	return nil
}

// IsUp reports whether the process in slot index has published that it is up.
func (c *Controller) IsUp(index int) (bool, error) {
	return isUp(c.region, index)
}

// PendingCommand reads the COMMAND byte of slot index.
func (c *Controller) PendingCommand(index int) (Command, error) {
	return pendingCommand(c.region, index)
}

// Reset prepares slot index for a new process instance: UP and COMMAND are
// cleared, reserved bytes are left as they are.
func (c *Controller) Reset(index int) error {
	upOff, err := c.region.layout.upOffset(index)
	if err != nil {
		return err
	}
	cmdOff, err := c.region.layout.commandOffset(index)
	if err != nil {
		return err
	}
	if err := c.region.storeByte(cmdOff, c.region.layout.EncodeCommand(CommandNone)); err != nil {
		return err
	}
	if err := c.region.storeByte(upOff, c.region.layout.EncodeUp(false)); err != nil {
		return err
	}
	c.region.inst.record("reset", index)
	return nil
}

// Snapshot decodes every slot of the region.
func (c *Controller) Snapshot() ([]SlotState, error) {
	states := make([]SlotState, 0, c.region.layout.MaxSlots)
	for i := 0; i < c.region.layout.MaxSlots; i++ {
		up, err := c.IsUp(i)
		if err != nil {
			return nil, err
		}
		cmd, err := c.PendingCommand(i)
		if err != nil {
			return nil, err
		}
		states = append(states, SlotState{Index: i, Up: up, Command: cmd})
	}
	return states, nil
}

// WaitDown polls slot index with policy b until the process is no longer up.
// A nil b polls with backoff's default exponential policy. It returns
// ErrStillUp when b gives up and the context error when ctx ends.
func (c *Controller) WaitDown(ctx context.Context, index int, b backoff.BackOff) error {
	if _, _, err := c.region.layout.Slot(index); err != nil {
		return err
	}
	if b == nil {
		b = backoff.NewExponentialBackOff()
	}
	op := func() error {
		up, err := c.IsUp(index)
		if err != nil {
			return backoff.Permanent(err)
		}
		if up {
			return ErrStillUp
		}
		return nil
	}
	err := backoff.Retry(op, backoff.WithContext(b, ctx))
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, ErrStillUp):
		return fmt.Errorf("%w: slot %d", ErrStillUp, index)
	default:
		return err
	}
}
