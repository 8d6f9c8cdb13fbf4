// Package registry holds the capability registry: the static table of
// managed components with their last observed status and load. Components
// are created once at startup and never removed; a stopped component stays
// registered with StatusStopped.
package registry

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// Status is the last observed health classification of a component.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusStopped   Status = "stopped"
)

// Capability tags what a component does; the decision engine matches
// components by capability, never by name.
type Capability string

const (
	CapabilityCoordination     Capability = "coordination"
	CapabilityDashboard        Capability = "dashboard"
	CapabilityWorker           Capability = "worker"
	CapabilityLifecycleMonitor Capability = "lifecycle-monitor"
	CapabilityInference        Capability = "inference"
)

// Component is one managed unit of work.
type Component struct {
	Name         string
	Capabilities []Capability
	Status       Status
	Load         float64
	LastProbe    time.Time
}

// HasCapability reports whether the component carries the given tag.
func (c Component) HasCapability(capability Capability) bool {
	return slices.Contains(c.Capabilities, capability)
}

// Registry is the single source of truth for component status and load.
// It has a single writer (the control loop) between cycles; all reads
// return copies so a decision pass observes a consistent snapshot.
type Registry struct {
	mu         sync.RWMutex
	order      []string
	components map[string]*Component
}

// New creates a registry from the startup component declarations. Initial
// status is StatusUnknown until the first probe completes.
func New(components []Component) *Registry {
	r := &Registry{
		order:      make([]string, 0, len(components)),
		components: make(map[string]*Component, len(components)),
	}

	for i := range components {
		comp := components[i]
		if comp.Status == "" {
			comp.Status = StatusUnknown
		}

		r.order = append(r.order, comp.Name)
		r.components[comp.Name] = &comp
	}

	return r
}

// Get returns a copy of the named component.
func (r *Registry) Get(name string) (Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	comp, ok := r.components[name]
	if !ok {
		return Component{}, fmt.Errorf("get component %s: %w", name, ErrComponentNotFound)
	}

	return copyComponent(comp), nil
}

// Update refreshes the observed status and load of the named component.
func (r *Registry) Update(name string, status Status, load float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	comp, ok := r.components[name]
	if !ok {
		return fmt.Errorf("update component %s: %w", name, ErrComponentNotFound)
	}

	comp.Status = status
	comp.Load = load
	comp.LastProbe = time.Now()

	return nil
}

// UpdateStatus refreshes only the status, keeping the last observed load.
func (r *Registry) UpdateStatus(name string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	comp, ok := r.components[name]
	if !ok {
		return fmt.Errorf("update component status %s: %w", name, ErrComponentNotFound)
	}

	comp.Status = status
	comp.LastProbe = time.Now()

	return nil
}

// All returns copies of every component in declaration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Component, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, copyComponent(r.components[name]))
	}

	return result
}

// FindByCapability returns the first component (in declaration order)
// carrying the given capability.
func (r *Registry) FindByCapability(capability Capability) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		if r.components[name].HasCapability(capability) {
			return copyComponent(r.components[name]), true
		}
	}

	return Component{}, false
}

func copyComponent(comp *Component) Component {
	out := *comp
	out.Capabilities = slices.Clone(comp.Capabilities)

	return out
}
