package storage

import (
	"os"
	"sync"
	"syscall"
)

// FileLock serializes access to one document across goroutines (via the
// embedded mutex) and across processes (via flock on a sidecar .lock file).
type FileLock struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewFileLock creates a lock guarding the document at path.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Lock acquires the lock, blocking until it is available.
func (l *FileLock) Lock() error {
	l.mu.Lock()

	f, err := os.OpenFile(l.path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		l.mu.Unlock()
		return err
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		l.mu.Unlock()
		return err
	}

	l.file = f
	return nil
}

// Unlock releases the lock and removes the sidecar file.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}

	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	l.file.Close()
	os.Remove(l.path + ".lock")

	l.file = nil
	l.mu.Unlock()
	return nil
}
