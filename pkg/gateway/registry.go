package gateway

import (
	"fmt"
	"sync"
)

// Registry resolves drivers by name. The core depends on this, never on a
// concrete vendor SDK.
type Registry struct {
	mu          sync.RWMutex
	drivers     map[string]Driver
	subDrivers  map[string]SubscriptionDriver
	defaultName string
}

func NewRegistry(defaultName string) *Registry {
	return &Registry{
		drivers:     make(map[string]Driver),
		subDrivers:  make(map[string]SubscriptionDriver),
		defaultName: defaultName,
	}
}

// Register adds a payment driver. If the same type also implements
// SubscriptionDriver it is registered for recurring billing too.
func (r *Registry) Register(d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[d.Name()] = d
	if sd, ok := d.(SubscriptionDriver); ok {
		r.subDrivers[sd.Name()] = sd
	}
}

// Driver resolves a payment driver by name; empty name means the default.
func (r *Registry) Driver(name string) (Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultName
	}
	d, ok := r.drivers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
	}
	return d, nil
}

// SubscriptionDriver resolves a recurring-billing driver by name.
func (r *Registry) SubscriptionDriver(name string) (SubscriptionDriver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultName
	}
	d, ok := r.subDrivers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (subscriptions)", ErrUnknownDriver, name)
	}
	return d, nil
}

// Default returns the configured default payment driver.
func (r *Registry) Default() (Driver, error) {
	return r.Driver("")
}
