package progress

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type recorder struct {
	events []Event
}

func (r *recorder) sink(_ context.Context, ev Event) error {
	r.events = append(r.events, ev)
	return nil
}

func TestNotifier_Emit(t *testing.T) {
	tests := []struct {
		name string
		emit func(n *Notifier) error
		want Event
	}{
		{
			name: "defaults",
			emit: func(n *Notifier) error { return n.Emit(context.Background(), "working") },
			want: Event{Description: "working", Status: StatusInProgress},
		},
		{
			name: "complete",
			emit: func(n *Notifier) error { return n.Complete(context.Background(), "finished") },
			want: Event{Description: "finished", Status: StatusComplete, Done: true},
		},
		{
			name: "fail",
			emit: func(n *Notifier) error { return n.Fail(context.Background(), "broken") },
			want: Event{Description: "broken", Status: StatusError, Done: true},
		},
		{
			name: "explicit options",
			emit: func(n *Notifier) error {
				return n.Emit(context.Background(), "x", WithStatus(StatusError))
			},
			want: Event{Description: "x", Status: StatusError},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			n := NewNotifier(rec.sink)

			if err := tt.emit(n); err != nil {
				t.Fatalf("emit error = %v", err)
			}
			if len(rec.events) != 1 {
				t.Fatalf("sink called %d times, want 1", len(rec.events))
			}
			if rec.events[0] != tt.want {
				t.Errorf("event = %+v, want %+v", rec.events[0], tt.want)
			}
		})
	}
}

func TestNotifier_NoSink(t *testing.T) {
	n := NewNotifier(nil)
	if err := n.Emit(context.Background(), "ignored"); err != nil {
		t.Errorf("Emit() without sink error = %v", err)
	}

	var nilNotifier *Notifier
	if err := nilNotifier.Complete(context.Background(), "ignored"); err != nil {
		t.Errorf("Complete() on nil notifier error = %v", err)
	}
}

func TestNotifier_SinkErrorPropagates(t *testing.T) {
	sinkErr := errors.New("host closed")
	n := NewNotifier(func(context.Context, Event) error { return sinkErr })

	if err := n.Emit(context.Background(), "x"); !errors.Is(err, sinkErr) {
		t.Errorf("Emit() error = %v, want %v", err, sinkErr)
	}
}

func TestEvent_Message(t *testing.T) {
	ev := Event{Description: "Performing Exa search", Status: StatusInProgress}

	data, err := json.Marshal(ev.Message())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"type":"status","data":{"status":"in_progress","description":"Performing Exa search","done":false}}`
	if string(data) != want {
		t.Errorf("message = %s, want %s", data, want)
	}
}
