// Package event delivers the outcome of cluster operations to interested parties. Notifications
// tell a user that an operation succeeded or failed, refresh events tell list views that the
// clusters of a Kubernetes cluster changed and should be fetched again.
package event

import (
	"context"
	"time"
)

type Type string

const (
	TypeNotification Type = "notification"
	TypeRefresh      Type = "refresh"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Event struct {
	Type              Type      `json:"type"`
	Level             Level     `json:"level,omitempty"`
	Operation         string    `json:"operation,omitempty"`
	Message           string    `json:"message,omitempty"`
	KubernetesCluster string    `json:"kubernetesCluster,omitempty"`
	Time              time.Time `json:"time"`
}

func Success(operation, message string) Event {
	return Event{Type: TypeNotification, Level: LevelSuccess, Operation: operation, Message: message, Time: time.Now()}
}

func Failure(operation, message string) Event {
	return Event{Type: TypeNotification, Level: LevelError, Operation: operation, Message: message, Time: time.Now()}
}

// Refresh signals that the clusters of kubernetesCluster should be fetched again.
func Refresh(kubernetesCluster string) Event {
	return Event{Type: TypeRefresh, KubernetesCluster: kubernetesCluster, Time: time.Now()}
}

type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Notifiers sends every event to each of its notifiers in order.
type Notifiers []Notifier

func (n Notifiers) Notify(ctx context.Context, event Event) {
	for _, notifier := range n {
		notifier.Notify(ctx, event)
	}
}
