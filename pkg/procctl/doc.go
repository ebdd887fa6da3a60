// Package procctl provides a lock-free, memory-mapped control channel between a
// supervisor and the long-running processes it manages.
//
// The channel is a single file of Layout.SlotSize × Layout.MaxSlots bytes mapped
// by every participant. Each managed process owns one slot: it publishes that it
// is up through the UP byte, and the controller asks it to stop through the
// COMMAND byte. Every byte has exactly one writer role, so no locks are needed
// between processes.
//
// Delivery of a stop request is at-most-once and unconfirmed: the controller
// writes the COMMAND byte and returns; the managed process notices it the next
// time it polls, shuts down and clears its UP byte.
//
// Example usage, controller side:
//
//	r, err := procctl.OpenDir(ctx, installDir)
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//	return procctl.NewController(r).RequestStop(procctl.AppSlot)
//
// Managed process side:
//
//	w, err := procctl.NewWriter(r, slot)
//	// ...
//	_ = w.PublishUp()
//	for {
//		if stopped, _ := w.Poll(shutdown); stopped {
//			return
//		}
//		// ...
//	}
package procctl
