package thing

import (
	"context"
	"testing"
	"time"
)

func TestStatus_Terminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusCreated, false},
		{StatusPending, false},
		{StatusCompleted, true},
		{StatusError, true},
		{StatusCancelled, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("Terminal(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestAction_Transition(t *testing.T) {
	t.Run("created to pending to completed", func(t *testing.T) {
		a := newAction("thing-1", "fade", nil)
		if a.Status() != StatusCreated {
			t.Fatalf("initial status = %s, want created", a.Status())
		}
		if !a.transition(StatusPending) {
			t.Fatal("transition to pending refused")
		}
		if !a.transition(StatusCompleted) {
			t.Fatal("transition to completed refused")
		}
		if a.Status() != StatusCompleted {
			t.Errorf("status = %s, want completed", a.Status())
		}
	})

	t.Run("terminal state is final", func(t *testing.T) {
		a := newAction("thing-1", "fade", nil)
		a.transition(StatusPending)
		a.transition(StatusCancelled)

		if a.transition(StatusCompleted) {
			t.Error("transition out of cancelled succeeded")
		}
		if a.Status() != StatusCancelled {
			t.Errorf("status = %s, want cancelled", a.Status())
		}
	})

	t.Run("pending only from created", func(t *testing.T) {
		a := newAction("thing-1", "fade", nil)
		a.transition(StatusPending)
		if a.transition(StatusPending) {
			t.Error("second transition to pending succeeded")
		}
	})

	t.Run("terminal stamps completion time", func(t *testing.T) {
		a := newAction("thing-1", "fade", nil)
		a.transition(StatusPending)
		a.transition(StatusCompleted)

		desc := a.Describe("")["fade"].(map[string]any)
		if _, ok := desc["timeCompleted"]; !ok {
			t.Error("timeCompleted missing after terminal transition")
		}
	})
}

func TestAction_Cancel(t *testing.T) {
	a := newAction("thing-1", "fade", nil)

	select {
	case <-a.ctx.Done():
		t.Fatal("context done before cancel")
	default:
	}

	a.Cancel()

	select {
	case <-a.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}

	// Cancellation is a request; the status machine has not moved yet.
	if a.Status() != StatusCreated {
		t.Errorf("status after Cancel() = %s, want created", a.Status())
	}
}

func TestAction_Fail(t *testing.T) {
	a := newAction("thing-1", "fade", nil)
	a.transition(StatusPending)

	if !a.fail("device unreachable") {
		t.Fatal("fail() refused")
	}
	if a.Status() != StatusError {
		t.Errorf("status = %s, want error", a.Status())
	}

	desc := a.Describe("")["fade"].(map[string]any)
	if desc["error"] != "device unreachable" {
		t.Errorf("error = %v, want device unreachable", desc["error"])
	}

	if a.fail("again") {
		t.Error("fail() on terminal action succeeded")
	}
}

func TestAction_Describe(t *testing.T) {
	input := map[string]any{"level": 100.0}
	a := newAction("thing-1", "fade", input)

	desc := a.Describe("/0")
	body, ok := desc["fade"].(map[string]any)
	if !ok {
		t.Fatalf("Describe() = %v, want keyed by action name", desc)
	}
	if body["id"] != a.ID() {
		t.Errorf("id = %v, want %v", body["id"], a.ID())
	}
	wantHref := "/0/actions/fade/" + a.ID()
	if body["href"] != wantHref {
		t.Errorf("href = %v, want %v", body["href"], wantHref)
	}
	if body["status"] != "created" {
		t.Errorf("status = %v, want created", body["status"])
	}
	if _, ok := body["timeRequested"]; !ok {
		t.Error("timeRequested missing")
	}
	if _, ok := body["timeCompleted"]; ok {
		t.Error("timeCompleted present before terminal state")
	}
}

func TestOnComplete(t *testing.T) {
	t.Run("registers on an action context", func(t *testing.T) {
		a := newAction("thing-1", "fade", nil)
		ran := false
		if !OnComplete(a.ctx, func() { ran = true }) {
			t.Fatal("OnComplete() = false on action context")
		}
		for _, fn := range a.takeCompletions() {
			fn()
		}
		if !ran {
			t.Error("continuation not returned by takeCompletions")
		}
		if len(a.takeCompletions()) != 0 {
			t.Error("takeCompletions did not drain")
		}
	})

	t.Run("foreign context refused", func(t *testing.T) {
		if OnComplete(context.Background(), func() {}) {
			t.Error("OnComplete() = true on plain context")
		}
	})
}
