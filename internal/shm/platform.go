// Package shm contains platform-specific helpers for mapping a backing file into memory.
package shm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shirou/gopsutil/v3/disk"
)

var (
	// ErrTooSmall means an existing file is shorter than the mapping and could not be extended.
	ErrTooSmall = errors.New("shm: file shorter than mapping size and cannot be extended")
	// ErrTooLarge means an existing file is longer than the mapping size.
	ErrTooLarge = errors.New("shm: file larger than mapping size")
	// ErrOutOfBounds is returned for accesses outside the mapped range.
	ErrOutOfBounds = errors.New("shm: access out of mapped bounds")
	// ErrUnmapped is returned for accesses after Unmap.
	ErrUnmapped = errors.New("shm: region is unmapped")
)

// MapOptions defines options for mapping a backing file.
type MapOptions struct {
	Path string
	Size int
	// Create the file when it does not exist. The parent directory is never created.
	Create bool
}

// MappedRegion represents a memory-mapped view over a backing file.
//
// The mapping lifecycle is guarded by mu; the bytes themselves are not.
// Single-byte loads and stores are the unit of cross-process communication.
type MappedRegion struct {
	mu   sync.RWMutex
	addr []byte
	file *os.File
	path string
	size int
	// platform-specific state (mapping handle on windows)
	handle uintptr
}

// Path returns the backing file path.
func (m *MappedRegion) Path() string { return m.path }

// Size returns the mapped length in bytes.
func (m *MappedRegion) Size() int { return m.size }

// Mapped reports whether the region is still mapped.
func (m *MappedRegion) Mapped() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.addr != nil
}

// LoadByte reads the byte at off.
func (m *MappedRegion) LoadByte(off int) (byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(off, 1); err != nil {
		return 0, err
	}
	return m.addr[off], nil
}

// StoreByte writes v at off. The write is visible to every other mapping of the file.
func (m *MappedRegion) StoreByte(off int, v byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(off, 1); err != nil {
		return err
	}
	m.addr[off] = v
	return nil
}

// ReadAt returns a copy of n bytes starting at off.
func (m *MappedRegion) ReadAt(off, n int) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(off, n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, m.addr[off:off+n])
	return out, nil
}

// WriteAt copies b into the region starting at off.
func (m *MappedRegion) WriteAt(off int, b []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(off, len(b)); err != nil {
		return err
	}
	copy(m.addr[off:], b)
	return nil
}

// Flush writes dirty pages back to the backing file.
func (m *MappedRegion) Flush() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.addr == nil {
		return ErrUnmapped
	}
	return flush(m)
}

// Unmap releases the mapping and the file handle. Calling it again is a no-op.
func (m *MappedRegion) Unmap() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addr == nil {
		return nil
	}
	err := unmap(m)
	m.addr = nil
	if cerr := m.file.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close: %w", cerr)
	}
	return err
}

func (m *MappedRegion) check(off, n int) error {
	if m.addr == nil {
		return ErrUnmapped
	}
	if off < 0 || n < 0 || off+n > len(m.addr) {
		return fmt.Errorf("%w: offset %d length %d size %d", ErrOutOfBounds, off, n, len(m.addr))
	}
	return nil
}

// MapFile opens (or creates) the file at opts.Path, makes sure it is exactly
// opts.Size bytes long and maps it read-write and shared.
func MapFile(opts MapOptions) (*MappedRegion, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("invalid mapping size %d", opts.Size)
	}
	flags := os.O_RDWR
	if opts.Create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(opts.Path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if err := ensureSize(f, int64(opts.Size)); err != nil {
		_ = f.Close()
		return nil, err
	}
	m := &MappedRegion{file: f, path: opts.Path, size: opts.Size}
	if err := mmap(m); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return m, nil
}

func ensureSize(f *os.File, size int64) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	switch {
	case info.Size() == size:
		return nil
	case info.Size() > size:
		return fmt.Errorf("%w: %s is %d bytes, want %d", ErrTooLarge, f.Name(), info.Size(), size)
	}
	need := uint64(size - info.Size())
	if !canExtend(need, filepath.Dir(f.Name())) {
		return fmt.Errorf("%w: not enough free space for %d bytes in %s", ErrTooSmall, need, filepath.Dir(f.Name()))
	}
	if err := f.Truncate(size); err != nil {
		return fmt.Errorf("%w: truncate %s: %w", ErrTooSmall, f.Name(), err)
	}
	return nil
}

// canExtend reports whether dir has room for need more bytes. When the usage
// cannot be determined the extension is attempted anyway.
func canExtend(need uint64, dir string) bool {
	stat, err := disk.Usage(dir)
	if err != nil {
		return true
	}
	return stat.Free >= need
}
