package procctl

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/srediag/shm-procctl/internal/shm"
)

// Region is a control region mapped into this process.
type Region struct {
	mem    *shm.MappedRegion
	layout Layout
	inst   instruments
}

// Open maps the backing file at path, creating it when missing and extending it
// with zero bytes when shorter than the layout's total size. A file longer than
// the total size is rejected with ErrSizeMismatch.
func Open(ctx context.Context, path string, opts ...Option) (*Region, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.layout.Validate(); err != nil {
		return nil, err
	}

	_, span := o.tracer.Start(ctx, "procctl.Open", trace.WithAttributes(
		attribute.String("path", path),
		attribute.Int("size", o.layout.TotalSize()),
	))
	defer span.End()

	mem, err := shm.MapFile(shm.MapOptions{
		Path:   path,
		Size:   o.layout.TotalSize(),
		Create: o.create,
	})
	if err != nil {
		err = classify(path, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	logger().Debug("mapped control region", "path", path, "size", mem.Size())
	return &Region{mem: mem, layout: o.layout, inst: newInstruments(o)}, nil
}

// OpenDir opens the region at DefaultFilePath(baseDir). The directory must exist.
func OpenDir(ctx context.Context, baseDir string, opts ...Option) (*Region, error) {
	return Open(ctx, DefaultFilePath(baseDir), opts...)
}

// Create opens the region at path for a new supervision session and resets
// every slot, so no process is seen as up and no stop is pending.
func Create(ctx context.Context, path string, opts ...Option) (*Region, error) {
	r, err := Open(ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	c := NewController(r)
	for i := 0; i < r.layout.MaxSlots; i++ {
		if err := c.Reset(i); err != nil {
			_ = r.Close()
			return nil, err
		}
	}
	return r, nil
}

// Remove deletes the backing file at the end of a supervision session.
// A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %w", ErrIO, path, err)
	}
	return nil
}

func classify(path string, err error) error {
	switch {
	case errors.Is(err, shm.ErrTooLarge), errors.Is(err, shm.ErrTooSmall):
		return fmt.Errorf("%w: %s: %w", ErrSizeMismatch, path, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrIO, path, err)
	}
}

// Path returns the backing file path.
func (r *Region) Path() string { return r.mem.Path() }

// Layout returns the layout the region was opened with.
func (r *Region) Layout() Layout { return r.layout }

// Size returns the mapped size in bytes.
func (r *Region) Size() int { return r.mem.Size() }

// ReadSlot returns a copy of the raw bytes of slot index.
func (r *Region) ReadSlot(index int) ([]byte, error) {
	off, n, err := r.layout.Slot(index)
	if err != nil {
		return nil, err
	}
	b, err := r.mem.ReadAt(off, n)
	return b, r.wrap(err)
}

// Flush writes the region back to disk. Other mappings on the same machine see
// writes without it; it only matters for durability across reboots.
func (r *Region) Flush() error {
	return r.wrap(r.mem.Flush())
}

// Close unmaps the region and releases the backing file. It is safe to call
// more than once.
func (r *Region) Close() error {
	if err := r.mem.Unmap(); err != nil {
		logger().Warn("unmap control region", "path", r.Path(), "error", err)
		return fmt.Errorf("%w: unmap %s: %w", ErrIO, r.Path(), err)
	}
	logger().Debug("unmapped control region", "path", r.Path())
	return nil
}

func (r *Region) loadByte(off int) (byte, error) {
	v, err := r.mem.LoadByte(off)
	return v, r.wrap(err)
}

func (r *Region) storeByte(off int, v byte) error {
	return r.wrap(r.mem.StoreByte(off, v))
}

func (r *Region) wrap(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, shm.ErrUnmapped):
		return ErrClosed
	case errors.Is(err, shm.ErrOutOfBounds):
		return fmt.Errorf("%w: %w", ErrOutOfRange, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrIO, r.Path(), err)
	}
}
