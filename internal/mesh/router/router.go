// Package router maps frame types to typed handlers.
package router

import (
	"fmt"

	"github.com/yndnr/chatmesh-go/internal/core/domain"
	"github.com/yndnr/chatmesh-go/internal/mesh/content"
	"github.com/yndnr/chatmesh-go/internal/mesh/wire"
)

// ActionID identifies an action. It travels as the frame type.
type ActionID int32

// Action id ranges: servers own [ServerRange, ClientRange), clients own
// [ClientRange, ...).
const (
	ServerRange ActionID = 0
	ClientRange ActionID = 1000
)

// Known actions.
const (
	ActionElectionToken  = ServerRange + 0
	ActionElectionLeader = ServerRange + 1
	ActionChat           = ClientRange + 0
)

// HandshakeType is the frame type of the identity message a server sends on
// a new client link. Clients consume it before routing starts.
const HandshakeType int32 = 0

// IsClientAction reports whether id lies in the client range.
func (id ActionID) IsClientAction() bool {
	return id >= ClientRange
}

func (id ActionID) String() string {
	switch id {
	case ActionElectionToken:
		return "election-token"
	case ActionElectionLeader:
		return "election-leader"
	case ActionChat:
		return "chat"
	default:
		return fmt.Sprintf("action(%d)", int32(id))
	}
}

// Scheduler runs a dispatched handler, possibly later.
type Scheduler interface {
	Schedule(fn func())
}

// SchedulerFunc picks the scheduler for one decoded message.
type SchedulerFunc func(id ActionID, c content.Content) Scheduler

// ErrorFunc receives errors returned by handlers that were not run inline.
type ErrorFunc func(id ActionID, err error)

type route[O any] struct {
	kind content.Kind
	call func(origin O, c content.Content) error
}

// Router dispatches frames to handlers registered per action id. O is the
// origin type handed to every handler, typically the connection the frame
// arrived on.
//
// Routes are registered while the owning node is built; Dispatch may then be
// called concurrently.
type Router[O any] struct {
	routes   map[ActionID]route[O]
	schedule SchedulerFunc
	onError  ErrorFunc
}

// Option configures a Router.
type Option func(*options)

type options struct {
	schedule SchedulerFunc
	onError  ErrorFunc
}

// WithScheduler routes handler execution through fn.
func WithScheduler(fn SchedulerFunc) Option {
	return func(o *options) { o.schedule = fn }
}

// WithErrorHandler sets the callback for errors from deferred handlers.
func WithErrorHandler(fn ErrorFunc) Option {
	return func(o *options) { o.onError = fn }
}

// New returns an empty router.
func New[O any](opts ...Option) *Router[O] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Router[O]{
		routes:   make(map[ActionID]route[O]),
		schedule: o.schedule,
		onError:  o.onError,
	}
}

// Register binds id to fn. The content kind fn accepts is taken from T.
// Registering an id twice panics.
func Register[T content.Content, O any](r *Router[O], id ActionID, fn func(origin O, msg T) error) {
	if _, dup := r.routes[id]; dup {
		panic(fmt.Sprintf("router: duplicate registration of %v", id))
	}
	var zero T
	r.routes[id] = route[O]{
		kind: zero.Kind(),
		call: func(origin O, c content.Content) error {
			msg, ok := c.(T)
			if !ok {
				return domain.ErrTypeMismatch.WithDetails(fmt.Sprintf("%v expects %T, got %T", id, zero, c))
			}
			return fn(origin, msg)
		},
	}
}

// Has reports whether id has a handler.
func (r *Router[O]) Has(id ActionID) bool {
	_, ok := r.routes[id]
	return ok
}

// Dispatch decodes the payload of f and hands it to the handler registered
// for f.Type. Decode failures, unknown ids and kind mismatches are
// MalformedAction errors and the handler is not called.
func (r *Router[O]) Dispatch(origin O, f wire.Frame) error {
	id := ActionID(f.Type)
	rt, ok := r.routes[id]
	if !ok {
		return domain.ErrUnknownAction.WithDetails(id.String())
	}
	c, err := content.Unmarshal(f.Payload)
	if err != nil {
		return fmt.Errorf("decode %v payload: %w", id, err)
	}
	return r.run(origin, id, rt, c)
}

// DispatchContent hands an already decoded content to the handler for id.
func (r *Router[O]) DispatchContent(origin O, id ActionID, c content.Content) error {
	rt, ok := r.routes[id]
	if !ok {
		return domain.ErrUnknownAction.WithDetails(id.String())
	}
	if c == nil {
		return domain.ErrMalformedAction.WithDetails("nil content")
	}
	return r.run(origin, id, rt, c)
}

func (r *Router[O]) run(origin O, id ActionID, rt route[O], c content.Content) error {
	if c.Kind() != rt.kind {
		return domain.ErrTypeMismatch.WithDetails(fmt.Sprintf("%v expects %v, got %v", id, rt.kind, c.Kind()))
	}
	if r.schedule == nil {
		return rt.call(origin, c)
	}
	sched := r.schedule(id, c)
	if sched == nil {
		return rt.call(origin, c)
	}
	sched.Schedule(func() {
		if err := rt.call(origin, c); err != nil && r.onError != nil {
			r.onError(id, err)
		}
	})
	return nil
}
