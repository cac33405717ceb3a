// util/event_bus.go

package util

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/gatekeeper/logging"
)

const (
	// EventPrivilegesChanged carries a PrivilegeChange.
	EventPrivilegesChanged = "privileges.changed"
	// EventAccountLockedOut carries a LockoutNotice.
	EventAccountLockedOut = "account.locked_out"
)

// PrivilegeChange describes a grant, a revoke or a flush. Key and DataID
// are empty for a flush.
type PrivilegeChange struct {
	TenantID  string
	Principal string
	Action    string
	Key       string
	DataID    string
}

type LockoutNotice struct {
	TenantID  string
	AccountID string
	Email     string
	Failures  int
}

type Event struct {
	Type    string
	Payload interface{}
}

type EventHandler func(context.Context, Event) error

// EventBus fans events out to subscribers. Handlers run on their own
// goroutines; their errors are logged by the loop started with Start.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	errorChan   chan error
	inflight    sync.WaitGroup
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]EventHandler),
		errorChan:   make(chan error, 100),
	}
}

func (eb *EventBus) Subscribe(eventType string, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], handler)
}

// Publish hands the event to every subscriber of eventType. Handlers see a
// context detached from the publisher's cancellation.
func (eb *EventBus) Publish(ctx context.Context, eventType string, payload interface{}) {
	eb.mu.RLock()
	handlers := eb.subscribers[eventType]
	eb.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{Type: eventType, Payload: payload}
	handlerCtx := context.WithoutCancel(ctx)

	for _, handler := range handlers {
		eb.inflight.Add(1)
		go func(h EventHandler) {
			defer eb.inflight.Done()
			if err := h(handlerCtx, event); err != nil {
				select {
				case eb.errorChan <- fmt.Errorf("%s handler: %w", eventType, err):
				default:
					logger.Error("Error channel full, dropping event handler error",
						zap.Error(err),
						zap.String("eventType", eventType))
				}
			}
		}(handler)
	}
}

// Wait blocks until every handler started so far has returned.
func (eb *EventBus) Wait() {
	eb.inflight.Wait()
}

func (eb *EventBus) Start(ctx context.Context) {
	go eb.processErrors(ctx)
}

func (eb *EventBus) processErrors(ctx context.Context) {
	for {
		select {
		case err := <-eb.errorChan:
			logger.Error("Event handler error", zap.Error(err))
		case <-ctx.Done():
			return
		}
	}
}
