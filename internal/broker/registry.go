package broker

import (
	"sync"

	"github.com/blockhost/gamebus/internal/wire"
)

// registry holds the broker's peer table: for each API name, the ordered
// list of currently connected peers registered as emitters, and
// separately as handlers. Mutations happen only in the accept/read
// goroutines; the mutex is held only for the duration of the map/slice
// operation, never across a channel send or other suspension point.
type registry struct {
	mu       sync.Mutex
	emitters map[string][]*peer
	handlers map[string][]*peer
}

func newRegistry() *registry {
	return &registry{
		emitters: make(map[string][]*peer),
		handlers: make(map[string][]*peer),
	}
}

func (r *registry) sideMap(kindEmits bool) map[string][]*peer {
	if kindEmits {
		return r.emitters
	}
	return r.handlers
}

// add registers p under its own specifier's side.
func (r *registry) add(p *peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	side := r.sideMap(p.spec.Kind == wire.SpecifierEmits)
	side[p.spec.Name] = append(side[p.spec.Name], p)
}

// remove unregisters p from whichever side it was registered on. Safe to
// call more than once for the same peer.
func (r *registry) remove(p *peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	side := r.sideMap(p.spec.Kind == wire.SpecifierEmits)
	list := side[p.spec.Name]
	for i, q := range list {
		if q == p {
			side[p.spec.Name] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

// complementOf returns a snapshot of the peers currently registered under
// name on one side: emitters if wantEmitters is true, handlers otherwise.
// The caller passes the side opposite to the sender's.
func (r *registry) complementOf(name string, wantEmitters bool) []*peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	side := r.sideMap(wantEmitters)
	list := side[name]
	out := make([]*peer, len(list))
	copy(out, list)
	return out
}

// counts returns, for logging/census purposes, the number of registered
// emitters and handlers per API name.
func (r *registry) counts() (emitters, handlers map[string]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	emitters = make(map[string]int, len(r.emitters))
	for name, list := range r.emitters {
		emitters[name] = len(list)
	}
	handlers = make(map[string]int, len(r.handlers))
	for name, list := range r.handlers {
		handlers[name] = len(list)
	}
	return emitters, handlers
}

// all returns every currently registered peer, used to broadcast the
// shutdown close frame.
func (r *registry) all() []*peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*peer
	for _, list := range r.emitters {
		out = append(out, list...)
	}
	for _, list := range r.handlers {
		out = append(out, list...)
	}
	return out
}
