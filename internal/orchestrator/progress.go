package orchestrator

import (
	"fmt"
	"sync"
)

// progressBuffer is the per-subscriber channel capacity.
const progressBuffer = 64

// ProgressReporter broadcasts progress events to every subscriber. Slow
// subscribers lose events rather than stall agent goroutines.
type ProgressReporter struct {
	mu     sync.RWMutex
	subs   []chan ProgressEvent
	closed bool
}

// NewProgressReporter creates a ProgressReporter with no subscribers.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{}
}

// Emit delivers event to each subscriber without blocking. Events emitted
// after Close are discarded.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	if pr.closed {
		return
	}
	for _, ch := range pr.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe returns a channel receiving every event emitted from now on.
// After Close it returns an already closed channel.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	ch := make(chan ProgressEvent, progressBuffer)
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.closed {
		close(ch)
		return ch
	}
	pr.subs = append(pr.subs, ch)
	return ch
}

// Close closes every subscriber channel. It is safe to call more than once.
func (pr *ProgressReporter) Close() {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.closed {
		return
	}
	pr.closed = true
	for _, ch := range pr.subs {
		close(ch)
	}
	pr.subs = nil
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case StatusPending:
		return fmt.Sprintf("  ○ [%s] %s (pending)", event.Phase, event.AgentID)
	case StatusRunning:
		return fmt.Sprintf("  ● [%s] %s...", event.Phase, event.AgentID)
	case StatusDone:
		return fmt.Sprintf("  ✓ [%s] %s done", event.Phase, event.AgentID)
	case StatusError:
		return fmt.Sprintf("  ✗ [%s] %s failed: %s", event.Phase, event.AgentID, event.Message)
	case StatusSkipped:
		return fmt.Sprintf("  - [%s] %s skipped: %s", event.Phase, event.AgentID, event.Message)
	default:
		return fmt.Sprintf("  ? [%s] %s (unknown status)", event.Phase, event.AgentID)
	}
}
