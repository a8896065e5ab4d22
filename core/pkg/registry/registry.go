// Package registry holds RouteRegistry, the concurrent URI→handler map
// StreamHandler dispatches against.
package registry

import (
	"sync"

	"github.com/madcok-co/streamrpc/core/pkg/envelope"
	"github.com/madcok-co/streamrpc/core/pkg/kerrors"
)

// HandlerResult is what a route handler returns on success: either a
// Response payload to be wrapped into a reply envelope, or Acknowledge
// to signal "handled, no reply body".
type HandlerResult struct {
	acknowledge bool
	payload     any
}

// Response builds a HandlerResult carrying a reply payload.
func Response(payload any) HandlerResult {
	return HandlerResult{payload: payload}
}

// Acknowledge is the HandlerResult for "handled, nothing to send back".
var Acknowledge = HandlerResult{acknowledge: true}

// IsAcknowledge reports whether this result carries no payload.
func (r HandlerResult) IsAcknowledge() bool {
	return r.acknowledge
}

// Payload returns the reply payload (valid only when !IsAcknowledge()).
func (r HandlerResult) Payload() any {
	return r.payload
}

// Handler processes one parsed envelope.
type Handler func(env *envelope.Envelope) (HandlerResult, *kerrors.KafkaError)

// RouteRegistry is a concurrent mapping from uri to Handler, cheap to
// clone and share across goroutines. Registration is expected at
// startup; removal is not part of the contract.
type RouteRegistry struct {
	mu     sync.RWMutex
	routes map[string]Handler
}

// New creates a new, empty RouteRegistry.
func New() *RouteRegistry {
	return &RouteRegistry{routes: make(map[string]Handler)}
}

// NewWithRoutes seeds a RouteRegistry from a literal uri→handler table in
// one step.
func NewWithRoutes(routes map[string]Handler) *RouteRegistry {
	r := New()
	for uri, h := range routes {
		r.Register(uri, h)
	}
	return r
}

// Register installs or overwrites the handler for uri.
func (r *RouteRegistry) Register(uri string, h Handler) *RouteRegistry {
	r.mu.Lock()
	r.routes[uri] = h
	r.mu.Unlock()
	return r
}

// HasHandler reports whether a handler is registered for uri.
func (r *RouteRegistry) HasHandler(uri string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.routes[uri]
	return ok
}

// GetHandler returns the handler registered for uri, or nil.
func (r *RouteRegistry) GetHandler(uri string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.routes[uri]
}

// RegisteredUris returns every uri with a registered handler.
func (r *RouteRegistry) RegisteredUris() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	uris := make([]string, 0, len(r.routes))
	for uri := range r.routes {
		uris = append(uris, uri)
	}
	return uris
}
