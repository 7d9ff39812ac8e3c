package service

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// EventType defines the type of event
type EventType string

const (
	EventDeviceAdded       EventType = "device_added"
	EventDeviceRemoved     EventType = "device_removed"
	EventDeviceUpdated     EventType = "device_updated"
	EventPortsConnected    EventType = "ports_connected"
	EventPortDisconnected  EventType = "port_disconnected"
	EventTopologyLoaded    EventType = "topology_loaded"
	EventTopologySaved     EventType = "topology_saved"
	EventBootCompleted     EventType = "boot_completed"
	EventPipelineCompleted EventType = "pipeline_completed"
)

// Event represents an event that occurred in the system
type Event struct {
	Type     EventType   `json:"type"`
	Topology string      `json:"topology,omitempty"`
	Payload  interface{} `json:"payload,omitempty"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Unsubscribe removes a subscriber. The channel is not closed.
func (eb *EventBus) Unsubscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for i, sub := range eb.subscribers {
		if sub == ch {
			eb.subscribers = append(eb.subscribers[:i], eb.subscribers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}

// Publisher delivers events to an external system
type Publisher interface {
	Publish(eventType, topology string, payload interface{}) error
}

// Forward relays every bus event to pub until ctx is cancelled. Delivery
// failures are logged and the event is dropped.
func Forward(ctx context.Context, eb *EventBus, pub Publisher, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ch := make(chan Event, 256)
	eb.Subscribe(ch)
	defer eb.Unsubscribe(ch)

	for {
		select {
		case evt := <-ch:
			if err := pub.Publish(string(evt.Type), evt.Topology, evt.Payload); err != nil {
				logger.Warn("event forward failed", zap.String("type", string(evt.Type)), zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}
