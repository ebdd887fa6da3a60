package procctl

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegion(t *testing.T) *Region {
	t.Helper()
	r, err := Open(context.Background(), filepath.Join(t.TempDir(), "sharedmemory"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestPoll_NoCommand(t *testing.T) {
	r := newTestRegion(t)
	w, err := NewWriter(r, 0)
	require.NoError(t, err)
	require.NoError(t, w.PublishUp())

	called := false
	stopped, err := w.Poll(func() error { called = true; return nil })
	require.NoError(t, err)
	assert.False(t, stopped)
	assert.False(t, called)

	up, err := NewController(r).IsUp(0)
	require.NoError(t, err)
	assert.True(t, up)
}

func TestPoll_StopRunsHookThenPublishesDown(t *testing.T) {
	r := newTestRegion(t)
	ctrl := NewController(r)
	w, err := NewWriter(r, 1)
	require.NoError(t, err)
	require.NoError(t, w.PublishUp())
	require.NoError(t, ctrl.RequestStop(1))

	var upDuringHook bool
	stopped, err := w.Poll(func() error {
		upDuringHook, _ = ctrl.IsUp(1)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, stopped)
	assert.True(t, upDuringHook)

	up, err := ctrl.IsUp(1)
	require.NoError(t, err)
	assert.False(t, up)
}

func TestPoll_HookFailureKeepsUp(t *testing.T) {
	r := newTestRegion(t)
	ctrl := NewController(r)
	w, err := NewWriter(r, 2)
	require.NoError(t, err)
	require.NoError(t, w.PublishUp())
	require.NoError(t, ctrl.RequestStop(2))

	boom := errors.New("boom")
	stopped, err := w.Poll(func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, stopped)

	up, err := ctrl.IsUp(2)
	require.NoError(t, err)
	assert.True(t, up)
}

func TestPoll_NilHook(t *testing.T) {
	r := newTestRegion(t)
	w, err := NewWriter(r, 3)
	require.NoError(t, err)
	require.NoError(t, w.PublishUp())
	require.NoError(t, NewController(r).RequestStop(3))

	stopped, err := w.Poll(nil)
	require.NoError(t, err)
	assert.True(t, stopped)
}

func TestWatch_ReturnsAfterStop(t *testing.T) {
	r := newTestRegion(t)
	ctrl := NewController(r)
	w, err := NewWriter(r, 0)
	require.NoError(t, err)
	require.NoError(t, w.PublishUp())

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = ctrl.RequestStop(0)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	shutdowns := 0
	require.NoError(t, w.Watch(ctx, 5*time.Millisecond, func() error { shutdowns++; return nil }))
	assert.Equal(t, 1, shutdowns)

	up, err := ctrl.IsUp(0)
	require.NoError(t, err)
	assert.False(t, up)
}

func TestWatch_ContextCanceled(t *testing.T) {
	r := newTestRegion(t)
	w, err := NewWriter(r, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Watch(ctx, 5*time.Millisecond, nil), context.DeadlineExceeded)
}

func TestWatch_ClosedRegion(t *testing.T) {
	r, err := Open(context.Background(), filepath.Join(t.TempDir(), "sharedmemory"))
	require.NoError(t, err)
	w, err := NewWriter(r, 0)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	assert.ErrorIs(t, w.Watch(context.Background(), time.Millisecond, nil), ErrClosed)
}
