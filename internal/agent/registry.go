package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrUnknownCapability   = errors.New("unknown capability")
	ErrDuplicateCapability = errors.New("capability already registered")
)

// CapabilityFunc runs a capability with its JSON-encoded parameters.
type CapabilityFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Registrar is the registration surface the agent populates at startup.
type Registrar interface {
	Register(name string, fn CapabilityFunc, schema Schema) error
}

type capability struct {
	fn     CapabilityFunc
	schema Schema
}

// Registry is an in-process Registrar that can also invoke what it holds.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]capability
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]capability)}
}

// Register adds a capability. Names must be unique.
func (r *Registry) Register(name string, fn CapabilityFunc, schema Schema) error {
	if name == "" || fn == nil {
		return fmt.Errorf("capability name and function are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCapability, name)
	}
	r.entries[name] = capability{fn: fn, schema: schema}
	r.order = append(r.order, name)
	return nil
}

// Invoke runs the named capability.
func (r *Registry) Invoke(ctx context.Context, name string, params json.RawMessage) (any, error) {
	r.mu.RLock()
	c, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCapability, name)
	}
	return c.fn(ctx, params)
}

// Schemas returns the registered schemas in registration order.
func (r *Registry) Schemas() []Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Schema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].schema)
	}
	return out
}

// Schema returns the schema registered under name.
func (r *Registry) Schema(name string) (Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.entries[name]
	return c.schema, ok
}
