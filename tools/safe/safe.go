package safe

import (
	"IMClient/logger"
)

// Go starts a goroutine that recovers from panic, so a panicking task
// cannot crash the whole program.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] panic recovered: %v", r)
			}
		}()
		f()
	}()
}

// Call invokes f and recovers from panic, returning whether f completed.
// Used to isolate subscriber callbacks from each other.
func Call(f func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[safe.Call] panic recovered: %v", r)
			ok = false
		}
	}()
	f()
	return true
}
