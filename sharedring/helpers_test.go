package sharedring

import "os"

func writeGarbageFile(path string) error {
	data := make([]byte, headerFixedSize+256)
	copy(data, []byte("NOTARING"))
	return os.WriteFile(path, data, 0600)
}
