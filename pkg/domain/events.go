package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStage    EventType = "stage"
	EventComplete EventType = "complete"
	EventFailure  EventType = "failure"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// StageEvent is emitted when a run finishes one of its stages.
type StageEvent struct {
	EventBase
	Direction Direction     `json:"direction"`
	Stage     Stage         `json:"stage"`
	Elapsed   time.Duration `json:"elapsed"`
}

// RunEvent is emitted once per run, on success or failure.
type RunEvent struct {
	EventBase
	Direction Direction     `json:"direction"`
	Duration  time.Duration `json:"duration"`
	States    int           `json:"states,omitempty"` // converted machine size
	Inputs    int           `json:"inputs,omitempty"`
	Err       error         `json:"-"`
}

// LifecycleHooks defines callbacks for pipeline observability.
// Any hook may be nil.
type LifecycleHooks struct {
	OnStage    func(context.Context, *StageEvent)
	OnComplete func(context.Context, *RunEvent)
	OnFailure  func(context.Context, *RunEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStage: func(ctx context.Context, e *StageEvent) {
			if h.OnStage != nil {
				h.OnStage(ctx, e)
			}
			if other.OnStage != nil {
				other.OnStage(ctx, e)
			}
		},
		OnComplete: func(ctx context.Context, e *RunEvent) {
			if h.OnComplete != nil {
				h.OnComplete(ctx, e)
			}
			if other.OnComplete != nil {
				other.OnComplete(ctx, e)
			}
		},
		OnFailure: func(ctx context.Context, e *RunEvent) {
			if h.OnFailure != nil {
				h.OnFailure(ctx, e)
			}
			if other.OnFailure != nil {
				other.OnFailure(ctx, e)
			}
		},
	}
}
