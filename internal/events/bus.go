// Package events carries lifecycle notifications from the booking core to
// the mail handlers. The bus is an explicit object wired at startup; there
// is no package-level singleton.
package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/therapease/booking-server-go/internal/model"
)

type Type string

const (
	TypeUserRegistered      Type = "userRegistered"
	TypeNewVerificationCode Type = "newVerificationCode"
	TypeSessionBooked       Type = "sessionBooked"
	TypeConfirmationDue     Type = "confirmationDue"
)

// Event is implemented by every payload published on the bus.
type Event interface {
	EventType() Type
}

type UserRegistered struct {
	Email string
	Code  int
}

func (UserRegistered) EventType() Type { return TypeUserRegistered }

type NewVerificationCode struct {
	Email string
	Code  int
}

func (NewVerificationCode) EventType() Type { return TypeNewVerificationCode }

type SessionBooked struct {
	Session model.Session
	Email   string
}

func (SessionBooked) EventType() Type { return TypeSessionBooked }

type ConfirmationDue struct {
	Session model.Session
	Email   string
}

func (ConfirmationDue) EventType() Type { return TypeConfirmationDue }

// Handler consumes one event. Errors are logged by the bus and never
// propagated to the publisher; there are no retries.
type Handler func(ctx context.Context, event Event) error

const busBuffer = 100

// Bus dispatches events to their registered handler on a background
// goroutine, so publishers never block on mail delivery.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type]Handler
	events   chan Event
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewBus() *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		handlers: make(map[Type]Handler),
		events:   make(chan Event, busBuffer),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go b.dispatch()
	return b
}

// Subscribe registers the handler for an event type. Each type has exactly
// one handler; subscribing again replaces the previous one.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	b.handlers[t] = h
	b.mu.Unlock()
}

// Publish enqueues the event without blocking. If the buffer is full or the
// bus is closed the event is dropped and logged; notifications are
// best-effort.
func (b *Bus) Publish(event Event) {
	select {
	case <-b.ctx.Done():
		log.Warn().Str("event", string(event.EventType())).Msg("event bus closed, dropping event")
	case b.events <- event:
	default:
		log.Warn().Str("event", string(event.EventType())).Msg("event bus full, dropping event")
	}
}

// Close stops the dispatcher. Queued events that were not yet handled are
// discarded.
func (b *Bus) Close() {
	b.cancel()
	<-b.done
}

func (b *Bus) dispatch() {
	defer close(b.done)

	for {
		select {
		case <-b.ctx.Done():
			return
		case event := <-b.events:
			b.handle(event)
		}
	}
}

func (b *Bus) handle(event Event) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Any("panic", p).Str("event", string(event.EventType())).Msg("event handler panicked")
		}
	}()

	b.mu.RLock()
	handler := b.handlers[event.EventType()]
	b.mu.RUnlock()

	if handler == nil {
		log.Warn().Str("event", string(event.EventType())).Msg("no handler registered for event")
		return
	}

	if err := handler(b.ctx, event); err != nil {
		log.Error().Err(err).Str("event", string(event.EventType())).Msg("event handler failed")
	}
}
