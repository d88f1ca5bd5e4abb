package thing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of an action.
type Status string

const (
	StatusCreated   Status = "created"
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final. A terminal action record is
// immutable apart from retention pruning.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCancelled
}

// Executor is the device-supplied strategy that performs an action. It may
// read and write the thing's properties and emit events as side effects.
//
// The context is cancelled when a client requests cancellation. Well-behaved
// executors watch ctx.Done() during long waits and return ctx.Err(); an
// executor that ignores its context leaves the action pending until it
// returns on its own.
type Executor interface {
	Execute(ctx context.Context, t *Thing, input any) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, t *Thing, input any) error

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, t *Thing, input any) error {
	return f(ctx, t, input)
}

// Action is one invocation of a registered action schema. Its status only
// moves forward: created, then pending, then exactly one of completed,
// error, or cancelled.
type Action struct {
	id      string
	name    string
	thingID string
	input   any

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	status        Status
	errMessage    string
	timeRequested time.Time
	timeCompleted time.Time
	completions   []func()
}

// newAction builds a record in the created state with a fresh id.
func newAction(thingID, name string, input any) *Action {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Action{
		id:            uuid.NewString(),
		name:          name,
		thingID:       thingID,
		input:         input,
		cancel:        cancel,
		status:        StatusCreated,
		timeRequested: time.Now().UTC(),
	}
	a.ctx = context.WithValue(ctx, actionCtxKey{}, a)
	return a
}

// actionCtxKey carries the action through its executor's context so
// continuations can be attached with OnComplete.
type actionCtxKey struct{}

// OnComplete registers a continuation to run after the action reaches the
// completed status and that status has been published to subscribers. It
// reports whether ctx belongs to a running action.
//
// Executors use this to split a scheduled task into its wait and its effect:
// wait inside Execute, attach the state mutation as a continuation. The
// continuation never runs for actions that end cancelled or in error.
func OnComplete(ctx context.Context, fn func()) bool {
	a, ok := ctx.Value(actionCtxKey{}).(*Action)
	if !ok {
		return false
	}
	a.mu.Lock()
	a.completions = append(a.completions, fn)
	a.mu.Unlock()
	return true
}

// takeCompletions removes and returns the registered continuations.
func (a *Action) takeCompletions() []func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	fns := a.completions
	a.completions = nil
	return fns
}

// ID returns the action's unique id.
func (a *Action) ID() string { return a.id }

// Name returns the registered action name.
func (a *Action) Name() string { return a.name }

// Input returns the validated input the action was requested with.
func (a *Action) Input() any { return a.input }

// Status returns the current lifecycle state.
func (a *Action) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Cancel requests cooperative cancellation. It is a request, not a
// guarantee: the transition to cancelled happens when the executor observes
// the cancelled context and returns.
func (a *Action) Cancel() {
	a.cancel()
}

// transition advances the status machine. It refuses to move backwards or
// out of a terminal state, so the same action never reports two terminal
// statuses. Returns true if the status changed.
func (a *Action) transition(next Status) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status.Terminal() {
		return false
	}
	if next == StatusPending && a.status != StatusCreated {
		return false
	}

	a.status = next
	if next.Terminal() {
		a.timeCompleted = time.Now().UTC()
		a.cancel()
	}
	return true
}

// fail records the executor's error message and moves to the error state.
func (a *Action) fail(msg string) bool {
	a.mu.Lock()
	if a.status.Terminal() {
		a.mu.Unlock()
		return false
	}
	a.errMessage = msg
	a.mu.Unlock()
	return a.transition(StatusError)
}

// Describe renders the action description used by the REST responses and
// the actionStatus push message.
func (a *Action) Describe(hrefPrefix string) map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()

	body := map[string]any{
		"id":            a.id,
		"href":          hrefPrefix + "/actions/" + a.name + "/" + a.id,
		"status":        string(a.status),
		"timeRequested": a.timeRequested.Format(time.RFC3339),
	}
	if a.input != nil {
		body["input"] = a.input
	}
	if !a.timeCompleted.IsZero() {
		body["timeCompleted"] = a.timeCompleted.Format(time.RFC3339)
	}
	if a.errMessage != "" {
		body["error"] = a.errMessage
	}
	return map[string]any{a.name: body}
}
