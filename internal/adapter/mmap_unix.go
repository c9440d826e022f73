//go:build unix

package adapter

import (
	"fmt"
	"os"
	"syscall"
)

// mmapFile memory-maps path for reading, returning the mapped bytes and a
// cleanup function that must be called to unmap and close the file.
// Adapted from the teacher's internal/fastparser/mmap_unix.go, rewritten
// as the unexported helper behind FileAdapter's whole-file mode instead of
// a package-level exported API.
func mmapFile(path string) ([]byte, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}

	size := stat.Size()
	if size == 0 {
		return []byte{}, func() { f.Close() }, nil
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	cleanup := func() {
		_ = syscall.Munmap(data)
		f.Close()
	}
	return data, cleanup, nil
}
