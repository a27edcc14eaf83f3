//go:build !linux

package bytestore

import "os"

func openAnonymous(dir string) (*os.File, error) {
	return openUnlinked(dir)
}
