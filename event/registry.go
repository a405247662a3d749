package event

import (
	"context"
	"errors"
)

// Handler consumes propagated authentication-change events. Supports is
// consulted per message; Handle is only invoked for supported types and must
// be idempotent — the dedup marker collapses duplicates within its TTL
// window, not beyond it.
type Handler interface {
	Supports(eventType string) bool
	Handle(ctx context.Context, msg Message) error
}

// HandlerFunc adapts a function to [Handler] for a fixed set of types.
type HandlerFunc struct {
	Types []string
	Fn    func(ctx context.Context, msg Message) error
}

func (h HandlerFunc) Supports(eventType string) bool {
	for _, t := range h.Types {
		if t == eventType {
			return true
		}
	}
	return false
}

func (h HandlerFunc) Handle(ctx context.Context, msg Message) error {
	return h.Fn(ctx, msg)
}

// Registry maps event types to handlers by explicit registration. Register
// all handlers before starting the consumer; the registry is read-only
// afterwards and needs no locking.
type Registry struct {
	handlers []Handler
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a handler. Not safe to call once a consumer is running.
func (r *Registry) Register(h Handler) {
	if h == nil {
		return
	}
	r.handlers = append(r.handlers, h)
}

// dispatch invokes every supporting handler. All handlers run even when an
// earlier one fails; the joined error marks the message as unhandled so the
// retry sweep can re-dispatch it.
func (r *Registry) dispatch(ctx context.Context, msg Message) error {
	var errs []error
	for _, h := range r.handlers {
		if !h.Supports(msg.Type) {
			continue
		}
		if err := h.Handle(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
