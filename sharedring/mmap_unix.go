//go:build linux || darwin

package sharedring

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func createFile(path string, size uint64) (*os.File, []byte, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("sharedring: create %s: %w", path, err)
	}
	if err := file.Truncate(int64(size)); err != nil {
		file.Close()
		os.Remove(path)
		return nil, nil, fmt.Errorf("sharedring: truncate %s: %w", path, err)
	}
	mem, err := mmapFD(int(file.Fd()), int(size))
	if err != nil {
		file.Close()
		os.Remove(path)
		return nil, nil, err
	}
	return file, mem, nil
}

func openFile(path string) (*os.File, []byte, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("sharedring: open %s: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("sharedring: stat %s: %w", path, err)
	}
	if info.Size() < headerFixedSize {
		file.Close()
		return nil, nil, ErrFileTooSmall
	}
	mem, err := mmapFD(int(file.Fd()), int(info.Size()))
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	return file, mem, nil
}

func mmapFD(fd int, size int) ([]byte, error) {
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("sharedring: mmap: %w", err)
	}
	return mem, nil
}

func munmap(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}
	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("sharedring: munmap: %w", err)
	}
	return nil
}

func mlock(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}
	if err := unix.Mlock(mem); err != nil {
		return fmt.Errorf("sharedring: mlock: %w", err)
	}
	return nil
}
