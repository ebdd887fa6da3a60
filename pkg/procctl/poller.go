package procctl

import (
	"context"
	"time"
)

// Poll checks this slot's COMMAND byte once and never blocks. When a stop is
// pending it runs onStop, the process's own shutdown, then publishes down and
// reports stopped. If onStop fails the UP byte is left alone.
//
// Responsiveness to a stop request is bounded only by how often Poll is called.
func (w *Writer) Poll(onStop func() error) (stopped bool, err error) {
	stop, err := w.StopRequested()
	if err != nil || !stop {
		return false, err
	}
	logger().Info("stop requested", "slot", w.index)
	if onStop != nil {
		if err := onStop(); err != nil {
			return false, err
		}
	}
	if err := w.PublishDown(); err != nil {
		return true, err
	}
	return true, nil
}

// Watch calls Poll every interval on the calling goroutine until the process
// has stopped or ctx ends.
func (w *Writer) Watch(ctx context.Context, interval time.Duration, onStop func() error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		stopped, err := w.Poll(onStop)
		if err != nil {
			return err
		}
		if stopped {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
