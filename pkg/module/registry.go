package module

import (
	"fmt"
	"iter"
	"sync"

	"github.com/plaenen/bidibip/pkg/access"
	"github.com/plaenen/bidibip/pkg/command"
)

type registration struct {
	spec   command.Spec
	module Module
}

// Registry holds the loaded modules indexed by command name.
type Registry struct {
	mu       sync.RWMutex
	modules  []Module
	commands map[string]registration
	order    []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]registration)}
}

// Register adds a module and all of its commands. Either every command is
// added or none is: a collision leaves the registry unchanged and returns a
// *DuplicateCommandError.
func (r *Registry) Register(m Module) error {
	if m == nil {
		return fmt.Errorf("module: nil module")
	}
	specs := m.Commands()
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("module %s: %w", m.Name(), err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if existing, ok := r.commands[spec.Name()]; ok {
			return &DuplicateCommandError{Command: spec.Name(), Existing: existing.module.Name(), Incoming: m.Name()}
		}
		if _, ok := pending[spec.Name()]; ok {
			return &DuplicateCommandError{Command: spec.Name(), Existing: m.Name(), Incoming: m.Name()}
		}
		pending[spec.Name()] = struct{}{}
	}

	for _, spec := range specs {
		r.commands[spec.Name()] = registration{spec: spec, module: m}
		r.order = append(r.order, spec.Name())
	}
	r.modules = append(r.modules, m)
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(modules ...Module) {
	for _, m := range modules {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
}

// Resolve returns the module owning a command name.
func (r *Registry) Resolve(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.commands[name]
	return reg.module, ok
}

// Lookup returns the declaration and owning module of a command name.
func (r *Registry) Lookup(name string) (command.Spec, Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.commands[name]
	return reg.spec, reg.module, ok
}

// Specs yields, in registration order, every command the role set may run.
// A nil gate yields every command. Each iteration takes a fresh snapshot, so
// the sequence can be ranged over more than once.
func (r *Registry) Specs(roles access.RoleSet, gate access.Gate) iter.Seq[command.Spec] {
	return func(yield func(command.Spec) bool) {
		r.mu.RLock()
		specs := make([]command.Spec, 0, len(r.order))
		for _, name := range r.order {
			specs = append(specs, r.commands[name].spec)
		}
		r.mu.RUnlock()

		for _, spec := range specs {
			if gate != nil && !gate.Allows(roles, spec.Access()) {
				continue
			}
			if !yield(spec) {
				return
			}
		}
	}
}

// Modules returns the registered modules in registration order.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Module(nil), r.modules...)
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
