////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package events contains the typed event variants exchanged between the
// interceptors, the reconciler, the store and the UI, and the Dispatcher that
// delivers them.
package events

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	jww "github.com/spf13/jwalterweatherman"
)

// Handler is called for every dispatched event of the Kind it is registered
// for.
type Handler func(ev Event)

// Dispatcher delivers events to the handlers registered for their Kind.
// Delivery is synchronous; handlers run on the goroutine calling Dispatch.
type Dispatcher struct {
	// handlers are keyed on Kind and then on the unique registration ID so
	// that a single handler can be removed.
	handlers map[Kind]map[uint64]Handler

	// kinds maps each registration ID back to its Kind.
	kinds map[uint64]Kind

	// nextID is the ID assigned to the next registered handler.
	nextID uint64

	// EventLogging indicates if a DEBUG message should be printed for every
	// dispatched event.
	EventLogging bool

	mux sync.RWMutex
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[Kind]map[uint64]Handler),
		kinds:    make(map[uint64]Kind),
	}
}

// Register adds the handler for the given Kind. Returns a unique ID that can be
// used to remove it. This function is thread safe.
func (d *Dispatcher) Register(kind Kind, h Handler) uint64 {
	d.mux.Lock()
	defer d.mux.Unlock()

	id := d.nextID
	d.nextID++

	if _, exists := d.handlers[kind]; !exists {
		d.handlers[kind] = make(map[uint64]Handler)
	}
	d.handlers[kind][id] = h
	d.kinds[id] = kind

	return id
}

// Unregister removes the handler with the given ID. Unknown IDs are ignored.
func (d *Dispatcher) Unregister(id uint64) {
	d.mux.Lock()
	defer d.mux.Unlock()

	kind, exists := d.kinds[id]
	if !exists {
		return
	}

	delete(d.kinds, id)
	delete(d.handlers[kind], id)
	if len(d.handlers[kind]) == 0 {
		delete(d.handlers, kind)
	}
}

// Dispatch calls every handler registered for the event's Kind, in
// registration order. A panicking handler is recovered and logged so that it
// cannot affect the other handlers or the caller. Returns the trace ID
// assigned to the event.
func (d *Dispatcher) Dispatch(ev Event) uuid.UUID {
	trace := uuid.New()
	if ev == nil {
		jww.ERROR.Printf("[EVT] Cannot dispatch nil event (%s)", trace)
		return trace
	}

	handlers := d.handlersFor(ev.Kind())
	if d.EventLogging {
		jww.DEBUG.Printf("[EVT] Dispatching %s (%s) to %d handlers",
			ev.Kind(), trace, len(handlers))
	}

	for _, h := range handlers {
		d.call(trace, ev, h)
	}

	return trace
}

// call runs a single handler and recovers from any panic it raises.
func (d *Dispatcher) call(trace uuid.UUID, ev Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			jww.ERROR.Printf("[EVT] Handler for %s (%s) panicked: %v",
				ev.Kind(), trace, r)
		}
	}()
	h(ev)
}

// handlersFor returns a copy of the handlers registered for the Kind sorted
// by registration ID.
func (d *Dispatcher) handlersFor(kind Kind) []Handler {
	d.mux.RLock()
	defer d.mux.RUnlock()

	ids := make([]uint64, 0, len(d.handlers[kind]))
	for id := range d.handlers[kind] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	handlers := make([]Handler, len(ids))
	for i, id := range ids {
		handlers[i] = d.handlers[kind][id]
	}
	return handlers
}
