// Package lifecycle tracks the host execution context a bridge is bound to.
package lifecycle

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

const logPrefix = "lifecycle:binder"

// ErrNotBound is returned when a host context is required but none is attached.
var ErrNotBound = errors.New("lifecycle: no host context is attached")

// Host is a host execution context (e.g. a foreground activity or view controller).
type Host interface {
	ID() string
	Platform() string
}

// HostInfo is the plain Host implementation carried by lifecycle notifications.
type HostInfo struct {
	HostID       string `json:"id" cbor:"id"`
	HostPlatform string `json:"platform,omitempty" cbor:"platform,omitempty"`
}

// ID returns the host identifier.
func (h HostInfo) ID() string { return h.HostID }

// Platform returns the host platform (android, ios, ...).
func (h HostInfo) Platform() string { return h.HostPlatform }

// State is the binder state.
type State int

const (
	Unbound State = iota
	Bound
	Rebinding
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Bound:
		return "bound"
	case Rebinding:
		return "rebinding"
	default:
		return "unknown"
	}
}

// Transition describes one state change.
type Transition struct {
	From       State
	To         State
	Previous   Host
	Current    Host
	Generation uint64
}

// Listener observes transitions. Listeners run synchronously, outside the binder lock.
type Listener func(Transition)

// Binder holds the current host context. Handler registrations live elsewhere
// and are untouched by transitions.
type Binder struct {
	mu         sync.RWMutex
	state      State
	host       Host
	generation uint64
	listeners  []Listener
}

// NewBinder returns an Unbound binder.
func NewBinder() *Binder {
	return &Binder{state: Unbound}
}

// OnChange registers a listener for subsequent transitions.
func (b *Binder) OnChange(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Attach binds host. Attaching while already bound is a reattach.
func (b *Binder) Attach(host Host) error {
	return b.bind("attach", host)
}

// Reattach replaces the bound host, passing through Rebinding so scoped
// resources built against the old host are dropped. Reattaching while
// unbound is a plain attach.
func (b *Binder) Reattach(host Host) error {
	return b.bind("reattach", host)
}

func (b *Binder) bind(op string, host Host) error {
	if host == nil || host.ID() == "" {
		return fmt.Errorf("%s - %s requires a host with an id", logPrefix, op)
	}
	steps := b.apply(host, func(from State) []State {
		if from == Unbound {
			return []State{Bound}
		}
		return []State{Rebinding, Bound}
	})
	if len(steps) == 1 {
		slog.Info(fmt.Sprintf("%s - attached to host %s (%s)", logPrefix, host.ID(), host.Platform()))
	} else {
		slog.Info(fmt.Sprintf("%s - reattached to host %s (%s)", logPrefix, host.ID(), host.Platform()))
	}
	return nil
}

// Detach drops the host context. Detaching while unbound is a no-op.
func (b *Binder) Detach() {
	steps := b.apply(nil, func(from State) []State {
		if from == Unbound {
			return nil
		}
		return []State{Unbound}
	})
	if len(steps) > 0 {
		slog.Info(fmt.Sprintf("%s - detached from host", logPrefix))
	}
}

// Current returns the bound host. During Rebinding the new host is reported as bound.
func (b *Binder) Current() (Host, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.state == Unbound || b.host == nil {
		return nil, false
	}
	return b.host, true
}

// snapshot returns host and generation read together.
func (b *Binder) snapshot() (Host, uint64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.state == Unbound || b.host == nil {
		return nil, b.generation, false
	}
	return b.host, b.generation, true
}

// State returns the binder state.
func (b *Binder) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Generation increments on every transition.
func (b *Binder) Generation() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.generation
}

// apply picks the states to pass through from the current one and commits
// them under a single lock hold, then notifies listeners in order.
func (b *Binder) apply(host Host, plan func(from State) []State) []Transition {
	b.mu.Lock()
	var steps []Transition
	for _, to := range plan(b.state) {
		t := Transition{
			From:     b.state,
			To:       to,
			Previous: b.host,
			Current:  host,
		}
		if to == Unbound {
			t.Current = nil
		}
		b.state = to
		b.host = t.Current
		b.generation++
		t.Generation = b.generation
		steps = append(steps, t)
	}
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, t := range steps {
		for _, l := range listeners {
			l(t)
		}
	}
	return steps
}
