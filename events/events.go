// Package events is the named-event observer bus that keeps the filter cache
// and the external scheduler informed of storage mutations. Handlers run
// synchronously on the firing goroutine; Fire iterates a snapshot of the
// handler list, so handlers may register and unregister re-entrantly.
package events

import (
	"github.com/rotisserie/eris"

	"github.com/strataforge/strata/types"
)

// Event names a lifecycle notification.
type Event string

const (
	ArchetypeCreated   Event = "archetypeCreated"
	ArchetypeDestroyed Event = "archetypeDestroyed"
	EntityCreated      Event = "entityCreated"
	EntityDestroyed    Event = "entityDestroyed"
	ComponentAdded     Event = "componentAdded"
	ComponentRemoved   Event = "componentRemoved"
	ComponentChanged   Event = "componentChanged"
	FilterCreated      Event = "filterCreated"
	FilterDestroyed    Event = "filterDestroyed"
	WorldReset         Event = "worldReset"
)

// Signal is the payload delivered to handlers. Fields are populated as
// applicable for the event; unused fields are zero.
type Signal struct {
	Entity    types.ID
	Type      types.ID
	Archetype types.ArchetypeID
}

// Handler is a subscribed callback.
type Handler func(Signal)

// HandlerID identifies one registration so it can be unregistered later.
type HandlerID uint64

type registration struct {
	id HandlerID
	fn Handler
}

// Bus is a synchronous pub/sub over named events. It is owned by one store
// and, like the rest of the engine, is not safe for concurrent use.
type Bus struct {
	handlers map[Event][]registration
	nextID   HandlerID
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Event][]registration)}
}

// Register subscribes fn to the named event and returns the id to pass to
// Unregister.
func (b *Bus) Register(event Event, fn Handler) HandlerID {
	b.nextID++
	id := b.nextID
	b.handlers[event] = append(b.handlers[event], registration{id: id, fn: fn})
	return id
}

// Unregister removes one registration. Unregistering an unknown id is an
// error so leaks show up in tests instead of silently accumulating.
func (b *Bus) Unregister(event Event, id HandlerID) error {
	regs := b.handlers[event]
	for i := range regs {
		if regs[i].id == id {
			b.handlers[event] = append(regs[:i:i], regs[i+1:]...)
			return nil
		}
	}
	return eris.Wrapf(types.ErrNotFound, "no handler %d registered for %q", id, event)
}

// Fire delivers sig to every handler registered for the event at the moment
// of the call. Handlers registered during delivery do not receive sig;
// handlers unregistered during delivery still receive it.
func (b *Bus) Fire(event Event, sig Signal) {
	regs := b.handlers[event]
	if len(regs) == 0 {
		return
	}
	snapshot := make([]registration, len(regs))
	copy(snapshot, regs)
	for _, reg := range snapshot {
		reg.fn(sig)
	}
}

// HandlerCount reports the number of live registrations for the event.
func (b *Bus) HandlerCount(event Event) int {
	return len(b.handlers[event])
}

// TotalHandlerCount reports the number of live registrations across all
// events.
func (b *Bus) TotalHandlerCount() int {
	total := 0
	for _, regs := range b.handlers {
		total += len(regs)
	}
	return total
}

// Clear drops every registration. World reset does not call it: standing
// subscriptions, such as the search engine's, survive a reset.
func (b *Bus) Clear() {
	b.handlers = make(map[Event][]registration)
}
