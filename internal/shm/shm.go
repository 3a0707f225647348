// Package shm provides named shared-memory buffers for window contents.
// Buffers are plain files in a shared-memory filesystem, mapped with mmap;
// the server creates them and clients open them by key.
package shm

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// KeyFor formats the well-known key for a buffer: "sys.<ident>.<bufid>".
func KeyFor(ident string, bufid uint32) string {
	return fmt.Sprintf("sys.%s.%d", ident, bufid)
}

var (
	shmDir     string
	shmDirOnce sync.Once
)

// Dir returns the directory backing shared buffers. ASTER_SHM_DIR overrides;
// otherwise /dev/shm when present, else the system temp directory.
func Dir() string {
	shmDirOnce.Do(func() {
		if dir := os.Getenv("ASTER_SHM_DIR"); dir != "" {
			shmDir = dir
			return
		}
		if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
			shmDir = "/dev/shm"
			return
		}
		shmDir = os.TempDir()
	})
	return shmDir
}

// ResetDirCache resets the cached Dir result. For testing only.
func ResetDirCache() {
	shmDirOnce = sync.Once{}
	shmDir = ""
}

// Buffer is a mapped shared-memory region.
type Buffer struct {
	Key  string
	Data []byte

	path string
}

// Create makes a new zero-filled buffer of the given size and maps it.
func Create(key string, size int) (*Buffer, error) {
	path := filepath.Join(Dir(), key)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create shm %s: %w", key, err)
	}
	defer f.Close()

	if err := f.Truncate(int64(size)); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("size shm %s: %w", key, err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("map shm %s: %w", key, err)
	}
	return &Buffer{Key: key, Data: data, path: path}, nil
}

// Open maps an existing buffer by key. The mapped length is the file's size.
func Open(key string) (*Buffer, error) {
	path := filepath.Join(Dir(), key)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open shm %s: %w", key, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat shm %s: %w", key, err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("map shm %s: %w", key, err)
	}
	return &Buffer{Key: key, Data: data, path: path}, nil
}

// Close unmaps the buffer. The backing file is untouched.
func (b *Buffer) Close() error {
	if b.Data == nil {
		return nil
	}
	data := b.Data
	b.Data = nil
	return unix.Munmap(data)
}

// Release unmaps the buffer and removes its backing file, so subsequent
// Opens of the same key fail.
func (b *Buffer) Release() error {
	err := b.Close()
	if rmErr := os.Remove(b.path); err == nil {
		err = rmErr
	}
	return err
}
