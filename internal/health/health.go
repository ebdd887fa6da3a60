// Package health turns control region state into liveness and readiness checks.
package health

import (
	"fmt"
	"strconv"

	"github.com/heptiolabs/healthcheck"

	"github.com/srediag/shm-procctl/pkg/procctl"
)

// RegionCheck fails once the region has been closed or can no longer be read.
func RegionCheck(r *procctl.Region) healthcheck.Check {
	return func() error {
		_, err := r.ReadSlot(procctl.AppSlot)
		return err
	}
}

// SlotCheck fails while the process in slot index has not published that it
// is up, or has a stop request pending.
func SlotCheck(ctrl *procctl.Controller, index int) healthcheck.Check {
	return func() error {
		up, err := ctrl.IsUp(index)
		if err != nil {
			return err
		}
		if !up {
			return fmt.Errorf("slot %d is not up", index)
		}
		cmd, err := ctrl.PendingCommand(index)
		if err != nil {
			return err
		}
		if cmd == procctl.CommandStop {
			return fmt.Errorf("slot %d is stopping", index)
		}
		return nil
	}
}

// NewHandler serves /live from the region itself and /ready from the given slots.
func NewHandler(r *procctl.Region, slots []int) healthcheck.Handler {
	h := healthcheck.NewHandler()
	h.AddLivenessCheck("region", RegionCheck(r))
	ctrl := procctl.NewController(r)
	for _, s := range slots {
		h.AddReadinessCheck("slot-"+strconv.Itoa(s), SlotCheck(ctrl, s))
	}
	return h
}
