package git

import (
	"context"
	"sync"
)

// Serializer coordinates git access per repository path. Mutating calls for
// the same path are mutually exclusive; reads for the same path may interleave
// with each other; paths are independent. Lock entries are reference counted
// so the map does not grow without bound across many repositories.
type Serializer struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	refs int
	rw   sync.RWMutex
}

// NewSerializer returns an empty serializer.
func NewSerializer() *Serializer {
	return &Serializer{locks: make(map[string]*pathLock)}
}

func (s *Serializer) acquire(path string) *pathLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[path]
	if !ok {
		lock = &pathLock{}
		s.locks[path] = lock
	}
	lock.refs++
	return lock
}

func (s *Serializer) release(path string, lock *pathLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, path)
	}
}

// ExecuteWrite runs fn with a client bound to path, holding the path's write
// lock so no other write for the same path runs concurrently. Cancellation is
// delivered through ctx to the git commands fn issues, not by abandoning the
// lock wait.
func (s *Serializer) ExecuteWrite(ctx context.Context, path string, fn func(ctx context.Context, client *Client) error) error {
	client, err := NewClient(path)
	if err != nil {
		return err
	}
	lock := s.acquire(path)
	defer s.release(path, lock)
	lock.rw.Lock()
	defer lock.rw.Unlock()
	return fn(ctx, client)
}

// ExecuteRead runs fn with a client bound to path. Reads for the same path may
// run concurrently with each other but never alongside a write for that path.
func (s *Serializer) ExecuteRead(ctx context.Context, path string, fn func(ctx context.Context, client *Client) error) error {
	client, err := NewClient(path)
	if err != nil {
		return err
	}
	lock := s.acquire(path)
	defer s.release(path, lock)
	lock.rw.RLock()
	defer lock.rw.RUnlock()
	return fn(ctx, client)
}
