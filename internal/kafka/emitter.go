package kafka

import (
	"context"
	"time"
)

type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
}

// Emitter writes every event to the events topic and, when the event needs
// an email, to the notifications topic as well.
type Emitter struct {
	producer           Publisher
	eventsTopic        string
	notificationsTopic string
}

func NewEmitter(producer Publisher, eventsTopic, notificationsTopic string) *Emitter {
	return &Emitter{producer: producer, eventsTopic: eventsTopic, notificationsTopic: notificationsTopic}
}

func (e *Emitter) Emit(ctx context.Context, key string, event Event) error {
	if e == nil || e.producer == nil {
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if e.eventsTopic != "" {
		if err := e.producer.Publish(ctx, e.eventsTopic, key, event); err != nil {
			return err
		}
	}
	if e.notificationsTopic != "" && event.Notifies() {
		return e.producer.Publish(ctx, e.notificationsTopic, key, event)
	}
	return nil
}
