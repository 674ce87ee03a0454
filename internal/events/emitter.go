// Package events is the in-process notification bus of a pricing instance.
package events

import (
	"sync"
)

// Event names published by every pricing instance. Field scoped events are
// built with Set, Unset and ErrorFor.
const (
	// Change fires after every successful reprice
	Change = "change"
	// ChangeExternal fires after a non internal reprice that changed the price
	ChangeExternal = "change:external"
	// Error fires for every rejected operation and every soft calculation failure
	Error = "error"
)

// Set is the event fired when field gets a value, e.g. set.plan
func Set(field string) string { return "set." + field }

// Unset is the event fired when field is cleared, e.g. unset.coupon
func Unset(field string) string { return "unset." + field }

// ErrorFor is the field scoped twin of Error, e.g. error.coupon
func ErrorFor(field string) string { return "error." + field }

// Handler receives the payload of a published event
type Handler func(payload any)

// Token identifies one subscription
type Token struct {
	event string
	id    uint64
}

type subscription struct {
	id      uint64
	handler Handler
}

// Emitter delivers events synchronously, in subscription order, on the
// publishing goroutine.
type Emitter struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string][]subscription
}

func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[string][]subscription)}
}

// Subscribe registers h for event
func (e *Emitter) Subscribe(event string, h Handler) Token {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	e.handlers[event] = append(e.handlers[event], subscription{id: e.nextID, handler: h})
	return Token{event: event, id: e.nextID}
}

// Unsubscribe removes the subscription behind t. It reports whether the
// subscription still existed.
func (e *Emitter) Unsubscribe(t Token) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs := e.handlers[t.event]
	for i, s := range subs {
		if s.id != t.id {
			continue
		}
		e.handlers[t.event] = append(subs[:i:i], subs[i+1:]...)
		if len(e.handlers[t.event]) == 0 {
			delete(e.handlers, t.event)
		}
		return true
	}
	return false
}

// Publish calls every handler of event with payload. Handlers may subscribe
// or unsubscribe while being called; changes apply from the next Publish.
func (e *Emitter) Publish(event string, payload any) {
	e.mu.RLock()
	subs := e.handlers[event]
	e.mu.RUnlock()

	for _, s := range subs {
		s.handler(payload)
	}
}

// Len returns the number of handlers registered for event
func (e *Emitter) Len(event string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[event])
}
