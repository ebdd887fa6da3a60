//go:build windows

package shm

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

func mmap(m *MappedRegion) error {
	size := uint64(m.size)
	h, err := windows.CreateFileMapping(windows.Handle(m.file.Fd()), nil, windows.PAGE_READWRITE,
		uint32(size>>32), uint32(size), nil)
	if err != nil {
		return fmt.Errorf("CreateFileMapping: %w", err)
	}
	ptr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE, 0, 0, uintptr(m.size))
	if err != nil {
		_ = windows.CloseHandle(h)
		return fmt.Errorf("MapViewOfFile: %w", err)
	}
	m.handle = uintptr(h)
	m.addr = unsafe.Slice((*byte)(unsafe.Pointer(ptr)), m.size)
	return nil
}

func flush(m *MappedRegion) error {
	if err := windows.FlushViewOfFile(uintptr(unsafe.Pointer(&m.addr[0])), uintptr(m.size)); err != nil {
		return err
	}
	return windows.FlushFileBuffers(windows.Handle(m.file.Fd()))
}

func unmap(m *MappedRegion) error {
	err := windows.UnmapViewOfFile(uintptr(unsafe.Pointer(&m.addr[0])))
	if cerr := windows.CloseHandle(windows.Handle(m.handle)); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
