// Package registry holds the named source and destination store handles for
// the lifetime of the orchestrator process.
package registry

import (
	"context"
	"fmt"
	"sync"

	"go-db-replicator/internal/model"
	"go-db-replicator/internal/store"
)

// StoreConnection is a validated, immutable handle to a tabular store.
type StoreConnection struct {
	Name       string
	Role       model.Role
	Descriptor model.ConnectionDescriptor
	Conn       store.Conn
}

// Registry maps (name, role) to live store handles. Source and destination
// namespaces are disjoint, so the same name may exist in both.
type Registry struct {
	mu           sync.RWMutex
	sources      map[string]*StoreConnection
	destinations map[string]*StoreConnection
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		sources:      make(map[string]*StoreConnection),
		destinations: make(map[string]*StoreConnection),
	}
}

// Register opens and probes a store, then stores the handle. A failed probe
// rejects the registration. Re-registering an existing (name, role) replaces
// the previous handle without error and closes it.
func (r *Registry) Register(ctx context.Context, name string, role model.Role, desc model.ConnectionDescriptor) (*StoreConnection, error) {
	conn, err := store.Open(desc)
	if err != nil {
		if ce, ok := err.(*model.ConnectionError); ok {
			ce.Name = name
			return nil, ce
		}
		return nil, &model.ConnectionError{Name: name, Reason: model.ReasonUnreachable, Err: err}
	}

	if err := conn.Probe(ctx); err != nil {
		conn.Close()
		return nil, &model.ConnectionError{Name: name, Reason: store.ProbeReason(err), Err: err}
	}

	sc := &StoreConnection{
		Name:       name,
		Role:       role,
		Descriptor: desc,
		Conn:       conn,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	ns, err := r.namespace(role)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if prev, ok := ns[name]; ok {
		// last registration wins; rerunning configuration is idempotent
		prev.Conn.Close()
	}
	ns[name] = sc

	fmt.Printf("🔌 Registered %s connection %q (%s)\n", role, name, desc.Driver)
	return sc, nil
}

// Get returns the handle registered for (name, role).
func (r *Registry) Get(name string, role model.Role) (*StoreConnection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ns, err := r.namespace(role)
	if err != nil {
		return nil, err
	}
	sc, ok := ns[name]
	if !ok {
		return nil, &model.ConfigurationError{Name: name, Role: role, Reason: model.ReasonMissingRegistration}
	}
	return sc, nil
}

// Names lists registered names for a role, for status reporting.
func (r *Registry) Names(role model.Role) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ns, err := r.namespace(role)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(ns))
	for name := range ns {
		names = append(names, name)
	}
	return names
}

// HasDestinations reports whether any destination is registered.
func (r *Registry) HasDestinations() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.destinations) > 0
}

// Close shuts down every held handle. Called once at orchestrator shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sc := range r.sources {
		sc.Conn.Close()
	}
	for _, sc := range r.destinations {
		sc.Conn.Close()
	}
	r.sources = make(map[string]*StoreConnection)
	r.destinations = make(map[string]*StoreConnection)
}

func (r *Registry) namespace(role model.Role) (map[string]*StoreConnection, error) {
	switch role {
	case model.RoleSource:
		return r.sources, nil
	case model.RoleDestination:
		return r.destinations, nil
	default:
		return nil, fmt.Errorf("unknown role: %q", role)
	}
}
