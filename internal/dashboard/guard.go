package dashboard

import "sync"

// SubmitGuard admits one in-flight submission per session and control.
type SubmitGuard struct {
	mutex    sync.Mutex
	inFlight map[string]struct{}
}

// NewSubmitGuard returns an empty guard.
func NewSubmitGuard() *SubmitGuard {
	return &SubmitGuard{inFlight: make(map[string]struct{})}
}

// Acquire marks the control busy. It returns a release function, or false when
// the control is already busy. The release function is safe to call more than once.
func (guard *SubmitGuard) Acquire(sessionKey string, control string) (func(), bool) {
	key := sessionKey + "|" + control
	guard.mutex.Lock()
	defer guard.mutex.Unlock()
	if _, busy := guard.inFlight[key]; busy {
		return nil, false
	}
	guard.inFlight[key] = struct{}{}

	var releaseOnce sync.Once
	return func() {
		releaseOnce.Do(func() {
			guard.mutex.Lock()
			delete(guard.inFlight, key)
			guard.mutex.Unlock()
		})
	}, true
}
