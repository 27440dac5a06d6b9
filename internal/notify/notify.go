// Package notify defines the outbound message transports used when a
// campaign is dispatched. A Notifier delivers one message to one address;
// the Registry holds the set of active transports that every dispatch
// fans out to.
package notify

import "context"

// Notifier delivers a single message to a single recipient address.
// Implementations must be safe for concurrent use.
type Notifier interface {
	// Name identifies the transport in logs and dispatch error records.
	Name() string

	// Send delivers the message. Implementations should honor context
	// cancellation where the underlying transport allows it.
	Send(ctx context.Context, to, subject, body string) error
}

// Registry holds the active notifiers a dispatch fans out to. The zero
// value is usable and empty.
type Registry struct {
	notifiers []Notifier
}

// NewRegistry creates a registry with the given notifiers.
func NewRegistry(notifiers ...Notifier) *Registry {
	return &Registry{notifiers: notifiers}
}

// Register adds a notifier to the registry.
func (r *Registry) Register(n Notifier) {
	r.notifiers = append(r.notifiers, n)
}

// Notifiers returns the registered notifiers in registration order.
func (r *Registry) Notifiers() []Notifier {
	return r.notifiers
}

// Len returns the number of registered notifiers.
func (r *Registry) Len() int {
	return len(r.notifiers)
}
