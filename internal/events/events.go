package events

import (
	"context"
	"sync"
	"time"

	"ussd-gateway/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventSessionProcessed is emitted for every USSD request the engine
	// answers.
	EventSessionProcessed EventType = "session.processed"
	// EventPhoneRegistered is emitted when a phone number is added to the
	// registry.
	EventPhoneRegistered EventType = "phone.registered"
	// EventPhoneRemoved is emitted when a phone number is deleted.
	EventPhoneRemoved EventType = "phone.removed"
	// EventTunablesUpdated is emitted when the runtime configuration
	// changes.
	EventTunablesUpdated EventType = "tunables.updated"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// SessionProcessedData describes one answered USSD request.
type SessionProcessedData struct {
	SessionID   string
	PhoneNumber string
	USSDCode    string
	IMEI        string
	Terminal    bool // true when the response ended the session
	Depth       int  // menuPath length at the time of the request
}

// PhoneRegisteredData describes a registry addition.
type PhoneRegisteredData struct {
	Entry models.PhoneNumberEntry
}

// PhoneRemovedData describes a registry deletion.
type PhoneRemovedData struct {
	PhoneNumber string
}

// TunablesUpdatedData describes a runtime configuration change.
type TunablesUpdatedData struct {
	Replaced bool // true for wholesale replacement, false for a merge
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers. Handlers run
// asynchronously so publishing never delays a response.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	if !m.enabled {
		return
	}

	m.mu.RLock()
	handlers := m.handlers[eventType]
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	for _, handler := range handlers {
		go func(h Handler) {
			_ = h(ctx, event)
		}(handler)
	}
}

// PublishSessionProcessed publishes a session processed event.
func (m *Manager) PublishSessionProcessed(ctx context.Context, req models.USSDRequest, resp models.USSDResponse) {
	m.Publish(ctx, EventSessionProcessed, SessionProcessedData{
		SessionID:   req.SessionID,
		PhoneNumber: req.PhoneNumber,
		USSDCode:    req.USSDCode,
		IMEI:        req.IMEI,
		Terminal:    !resp.ContinueSession,
		Depth:       len(req.MenuPath),
	})
}

// PublishPhoneRegistered publishes a phone registered event.
func (m *Manager) PublishPhoneRegistered(ctx context.Context, entry models.PhoneNumberEntry) {
	m.Publish(ctx, EventPhoneRegistered, PhoneRegisteredData{Entry: entry})
}

// PublishPhoneRemoved publishes a phone removed event.
func (m *Manager) PublishPhoneRemoved(ctx context.Context, phoneNumber string) {
	m.Publish(ctx, EventPhoneRemoved, PhoneRemovedData{PhoneNumber: phoneNumber})
}

// PublishTunablesUpdated publishes a tunables updated event.
func (m *Manager) PublishTunablesUpdated(ctx context.Context, replaced bool) {
	m.Publish(ctx, EventTunablesUpdated, TunablesUpdatedData{Replaced: replaced})
}

// Shutdown shuts down the event manager.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
}
