package service

import (
	"sync"
	"time"
)

// VotingWindow bounds the period during which registrations and votes are
// accepted. The administrator can close it early; a closed window never
// reopens.
type VotingWindow struct {
	opensAt     time.Time
	closesAt    time.Time
	closedEarly bool
	mu          sync.RWMutex
}

func NewVotingWindow(duration time.Duration) *VotingWindow {
	now := time.Now()
	return &VotingWindow{
		opensAt:  now,
		closesAt: now.Add(duration),
	}
}

// IsOpen reports whether votes are currently accepted.
func (w *VotingWindow) IsOpen() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return !w.closedEarly && time.Now().Before(w.closesAt)
}

// CloseNow ends the window immediately.
func (w *VotingWindow) CloseNow() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closedEarly = true
}

// ClosesAt returns the scheduled close time.
func (w *VotingWindow) ClosesAt() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.closesAt
}
