// Package core provides the event types shared between the transport
// connector and the application shell.
package core

import "Wetty/pkg/models"

// EventType represents the type of event emitted by the connector.
type EventType string

const (
	// EventTypeMessage represents a new live-delivered message.
	EventTypeMessage EventType = "message"
	// EventTypeConfirmed represents an optimistic send confirmed by delivery.
	EventTypeConfirmed EventType = "confirmed"
	// EventTypeConnection represents a push-channel connectivity change.
	EventTypeConnection EventType = "connection"
)

// Event is the base interface for all connector events.
type Event interface {
	Type() EventType
}

// MessageEvent carries a message that was appended from a live delivery.
type MessageEvent struct {
	Message models.Message
}

// Type returns the event type for MessageEvent.
func (e MessageEvent) Type() EventType {
	return EventTypeMessage
}

// ConfirmedEvent carries the authoritative message that replaced a pending
// optimistic entry.
type ConfirmedEvent struct {
	ChatID            string
	ClientGeneratedID string
	Message           models.Message
}

// Type returns the event type for ConfirmedEvent.
func (e ConfirmedEvent) Type() EventType {
	return EventTypeConfirmed
}

// ConnectionEvent reports the push channel going up or down.
type ConnectionEvent struct {
	Connected bool
}

// Type returns the event type for ConnectionEvent.
func (e ConnectionEvent) Type() EventType {
	return EventTypeConnection
}
