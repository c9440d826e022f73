//go:build !unix

package adapter

import (
	"fmt"
	"os"
)

// mmapFile reads path into memory in full on non-unix platforms, which
// have no syscall.Mmap; it gives FileAdapter's whole-file mode the same
// signature as mmap_unix.go's. Adapted from the teacher's
// internal/fastparser/mmap_other.go fallback.
func mmapFile(path string) ([]byte, func(), error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, func() {}, nil
}
