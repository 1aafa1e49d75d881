package transport

import (
	"sync"

	"IMClient/module/chat/model"
	"IMClient/tools/ids"
)

// Handler consumes one inbound frame of a subscribed kind.
type Handler func(resp *model.WSResponse)

type subscriber struct {
	id string
	fn Handler
}

// registry maps frame kinds to their subscribers. Subscribers of one kind are
// invoked in registration order; each kind is independent of the others.
type registry struct {
	mu     sync.RWMutex
	byKind map[int32][]*subscriber
}

func newRegistry() *registry {
	return &registry{byKind: make(map[int32][]*subscriber)}
}

// add registers fn for kind and returns the subscriber id used for removal.
func (r *registry) add(kind int32, fn Handler) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub := &subscriber{id: ids.GenerateString(), fn: fn}
	r.byKind[kind] = append(r.byKind[kind], sub)
	return sub.id
}

// remove drops exactly the subscriber with the given id. Removing the last
// subscriber of a kind frees the kind entry without touching other kinds.
func (r *registry) remove(kind int32, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := r.byKind[kind]
	for i, sub := range subs {
		if sub.id == id {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(r.byKind, kind)
		return
	}
	r.byKind[kind] = subs
}

// list returns a snapshot of the subscribers for kind, so a handler that
// unsubscribes mid-dispatch cannot corrupt the iteration.
func (r *registry) list(kind int32) []*subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subs := r.byKind[kind]
	if len(subs) == 0 {
		return nil
	}
	out := make([]*subscriber, len(subs))
	copy(out, subs)
	return out
}

func (r *registry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKind = make(map[int32][]*subscriber)
}
