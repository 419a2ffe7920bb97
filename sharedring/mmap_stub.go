//go:build !linux && !darwin

package sharedring

import "os"

func createFile(path string, size uint64) (*os.File, []byte, error) {
	return nil, nil, ErrUnsupportedPlatform
}

func openFile(path string) (*os.File, []byte, error) {
	return nil, nil, ErrUnsupportedPlatform
}

func munmap(mem []byte) error {
	return ErrUnsupportedPlatform
}

func mlock(mem []byte) error {
	return ErrUnsupportedPlatform
}
