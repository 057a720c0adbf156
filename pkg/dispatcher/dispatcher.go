package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/morezero/snapkit-bridge/pkg/lifecycle"
)

const logPrefix = "dispatcher:dispatch"

// HandlerFunc handles one command. It validates its own arguments and returns
// either a result or an error; the dispatcher turns that into exactly one reply.
type HandlerFunc func(ctx context.Context, call *Call) (interface{}, error)

// Route is one entry of the registration table.
type Route struct {
	Handler HandlerFunc
	// RequiresHost makes the dispatcher fail the command with NoHostContext
	// while no host context is bound.
	RequiresHost bool
}

// Call is what a handler receives for one request.
type Call struct {
	ID     string
	Method string
	Args   Arguments
	// Host is the host context bound when dispatch began; nil when unbound.
	Host lifecycle.Host
	Ctx  *InvocationContext
}

// HostSource reports the currently bound host context.
type HostSource interface {
	Current() (lifecycle.Host, bool)
}

// Dispatcher routes requests by method name to registered handlers.
// The registration table is fixed at construction.
type Dispatcher struct {
	routes   map[string]Route
	hosts    HostSource
	inFlight atomic.Int64
}

// NewDispatcher creates a Dispatcher over a copy of routes. hosts may be nil,
// in which case every RequiresHost route fails with NoHostContext.
func NewDispatcher(routes map[string]Route, hosts HostSource) *Dispatcher {
	table := make(map[string]Route, len(routes))
	for name, r := range routes {
		if name == "" || r.Handler == nil {
			continue
		}
		table[name] = r
	}
	return &Dispatcher{routes: table, hosts: hosts}
}

// Methods returns the registered method names, sorted.
func (d *Dispatcher) Methods() []string {
	names := make([]string, 0, len(d.routes))
	for name := range d.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InFlight returns the number of handlers currently running.
func (d *Dispatcher) InFlight() int64 {
	return d.inFlight.Load()
}

// Dispatch routes req and delivers exactly one reply through reply. It never
// blocks on a handler: unknown methods and host-less commands are answered
// inline, everything else runs on its own goroutine with its own continuation.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request, reply ReplyFunc) {
	slog.Debug(fmt.Sprintf("%s - method=%s id=%s", logPrefix, req.Method, req.ID))

	shot := newOneShot(req.ID, reply)

	route, ok := d.routes[req.Method]
	if !ok {
		shot.deliver(Unimplemented(req.ID))
		return
	}

	var host lifecycle.Host
	if d.hosts != nil {
		if h, bound := d.hosts.Current(); bound {
			host = h
		}
	}
	if route.RequiresHost && host == nil {
		shot.deliver(errorToReply(req.ID, StateError(req.Method)))
		return
	}

	call := &Call{
		ID:     req.ID,
		Method: req.Method,
		Args:   Arguments(req.Arguments),
		Host:   host,
		Ctx:    req.Ctx,
	}
	if call.Args == nil {
		call.Args = Arguments{}
	}

	d.inFlight.Add(1)
	go d.run(ctx, route, call, shot)
}

func (d *Dispatcher) run(ctx context.Context, route Route, call *Call, shot *oneShot) {
	defer d.inFlight.Add(-1)
	defer func() {
		if p := recover(); p != nil {
			slog.Error(fmt.Sprintf("%s - handler %s panicked: %v", logPrefix, call.Method, p))
			shot.deliver(Failure(call.ID, CodeInternal, fmt.Sprintf("handler %s failed", call.Method),
				map[string]interface{}{"kind": KindInternal}))
		}
	}()

	result, err := route.Handler(ctx, call)
	if err != nil {
		if errors.Is(err, lifecycle.ErrNotBound) {
			err = StateError(call.Method)
		}
		slog.Debug(fmt.Sprintf("%s - method=%s id=%s failed: %v", logPrefix, call.Method, call.ID, err))
		shot.deliver(errorToReply(call.ID, err))
		return
	}
	shot.deliver(Success(call.ID, result))
}

// Call dispatches req and waits for its reply or for ctx to end.
func (d *Dispatcher) Call(ctx context.Context, req *Request) *Reply {
	ch := make(chan *Reply, 1)
	d.Dispatch(ctx, req, func(r *Reply) { ch <- r })
	select {
	case r := <-ch:
		return r
	case <-ctx.Done():
		return Failure(req.ID, CodeInternal, ctx.Err().Error(), map[string]interface{}{"kind": KindInternal})
	}
}
