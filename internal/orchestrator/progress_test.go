package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReporter_EmitAndSubscribe(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()

	ch := pr.Subscribe()
	want := ProgressEvent{
		RequestID: "01J000",
		Phase:     PhaseDraft,
		AgentID:   "gpt",
		Status:    StatusRunning,
	}

	pr.Emit(want)

	select {
	case got := <-ch:
		assert.Equal(t, want, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for progress event")
	}
}

func TestProgressReporter_EmitWhenFull_DoesNotBlock(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()
	ch := pr.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 2*progressBuffer; i++ {
			pr.Emit(ProgressEvent{Phase: PhaseMetadata, AgentID: "gpt", Status: StatusRunning})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked when the channel was full")
	}
	assert.Len(t, ch, progressBuffer)
}

func TestProgressReporter_Broadcast(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()

	pr.Emit(ProgressEvent{AgentID: "before"})
	a, b := pr.Subscribe(), pr.Subscribe()
	ev := ProgressEvent{Phase: PhaseDraft, AgentID: "gpt", Status: StatusDone}
	pr.Emit(ev)

	for _, ch := range []<-chan ProgressEvent{a, b} {
		require.Len(t, ch, 1)
		assert.Equal(t, ev, <-ch)
	}
}

func TestProgressReporter_Close_ChannelClosed(t *testing.T) {
	pr := NewProgressReporter()
	ch := pr.Subscribe()
	pr.Close()

	_, ok := <-ch
	assert.False(t, ok)
}

func TestProgressReporter_AfterClose(t *testing.T) {
	pr := NewProgressReporter()
	pr.Close()

	assert.NotPanics(t, func() {
		pr.Emit(ProgressEvent{AgentID: "late"})
		pr.Close()
	})
	_, ok := <-pr.Subscribe()
	assert.False(t, ok)
}

func TestFormatProgress(t *testing.T) {
	tests := []struct {
		ev   ProgressEvent
		want string
	}{
		{ProgressEvent{Phase: PhaseDraft, AgentID: "gpt", Status: StatusPending}, "  ○ [draft] gpt (pending)"},
		{ProgressEvent{Phase: PhaseDraft, AgentID: "gpt", Status: StatusRunning}, "  ● [draft] gpt..."},
		{ProgressEvent{Phase: PhaseMetadata, AgentID: "gemini", Status: StatusDone}, "  ✓ [metadata] gemini done"},
		{ProgressEvent{Phase: PhaseDraft, AgentID: "llama", Status: StatusError, Message: "HTTP 500"}, "  ✗ [draft] llama failed: HTTP 500"},
		{ProgressEvent{Phase: PhaseDraft, AgentID: "gemma", Status: StatusSkipped, Message: "credential missing"}, "  - [draft] gemma skipped: credential missing"},
		{ProgressEvent{Phase: PhaseDraft, AgentID: "x", Status: "bogus"}, "  ? [draft] x (unknown status)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatProgress(tt.ev))
	}
}
