package state

import "sync"

// pathLocks serializes same-process writers per canonical state-file path
// before the OS-level lock is attempted.
var pathLocks sync.Map // canonical path -> *sync.Mutex

func lockForPath(canonical string) *sync.Mutex {
	mu, _ := pathLocks.LoadOrStore(canonical, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
