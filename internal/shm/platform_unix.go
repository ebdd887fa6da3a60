//go:build unix

package shm

import (
	"golang.org/x/sys/unix"
)

func mmap(m *MappedRegion) error {
	addr, err := unix.Mmap(int(m.file.Fd()), 0, m.size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return err
	}
	m.addr = addr
	return nil
}

func flush(m *MappedRegion) error {
	return unix.Msync(m.addr, unix.MS_SYNC)
}

func unmap(m *MappedRegion) error {
	return unix.Munmap(m.addr)
}
