// Package progress delivers status events for a long-running operation to an
// optional caller-supplied sink.
package progress

import "context"

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Event is a single status update. A terminal event has Done set.
type Event struct {
	Description string
	Status      Status
	Done        bool
}

// Message is the envelope hosts receive on the wire:
// {"type":"status","data":{"status":...,"description":...,"done":...}}.
type Message struct {
	Type string      `json:"type"`
	Data MessageData `json:"data"`
}

type MessageData struct {
	Status      Status `json:"status"`
	Description string `json:"description"`
	Done        bool   `json:"done"`
}

func (e Event) Message() Message {
	return Message{
		Type: "status",
		Data: MessageData{
			Status:      e.Status,
			Description: e.Description,
			Done:        e.Done,
		},
	}
}

// Sink receives events. It may block; an error it returns is handed back to
// the emitter unchanged.
type Sink func(ctx context.Context, ev Event) error

type Notifier struct {
	sink Sink
}

func NewNotifier(sink Sink) *Notifier {
	return &Notifier{sink: sink}
}

type EmitOption func(*Event)

func WithStatus(s Status) EmitOption {
	return func(e *Event) { e.Status = s }
}

func Done() EmitOption {
	return func(e *Event) { e.Done = true }
}

// Emit sends one event, defaulting to in_progress and not done. Without a sink
// it does nothing.
func (n *Notifier) Emit(ctx context.Context, description string, opts ...EmitOption) error {
	if n == nil || n.sink == nil {
		return nil
	}

	ev := Event{
		Description: description,
		Status:      StatusInProgress,
	}
	for _, opt := range opts {
		opt(&ev)
	}

	return n.sink(ctx, ev)
}

func (n *Notifier) Complete(ctx context.Context, description string) error {
	return n.Emit(ctx, description, WithStatus(StatusComplete), Done())
}

func (n *Notifier) Fail(ctx context.Context, description string) error {
	return n.Emit(ctx, description, WithStatus(StatusError), Done())
}
