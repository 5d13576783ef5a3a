package ie

import (
	"sort"
	"sync"

	"github.com/wbrown/spanlog/datalog"
)

// Registry maps IE function names to their definitions
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Function
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Function)}
}

// NewDefaultRegistry creates a registry holding the built-in functions
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, fn := range Builtins() {
		_ = r.Register(fn)
	}
	return r
}

// Register adds or replaces a function
func (r *Registry) Register(fn Function) error {
	if fn.Name == "" || datalog.IsReservedName(fn.Name) {
		return datalog.Errorf(datalog.SchemaError, fn.Name, "invalid IE function name %q", fn.Name)
	}
	if fn.Func == nil {
		return datalog.Errorf(datalog.SchemaError, fn.Name, "IE function has no implementation")
	}
	if fn.OutputSchema == nil && fn.OutputSchemaFunc == nil {
		return datalog.Errorf(datalog.SchemaError, fn.Name, "IE function has no output schema")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[fn.Name] = fn
	return nil
}

// Lookup returns the function registered under name
func (r *Registry) Lookup(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Remove deletes a function and reports whether it existed
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.funcs[name]
	delete(r.funcs, name)
	return ok
}

// RemoveAll deletes every function
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs = make(map[string]Function)
}

// Names returns the registered names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Functions returns every registered function, sorted by name
func (r *Registry) Functions() []Function {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Function, 0, len(names))
	for _, name := range names {
		if fn, ok := r.funcs[name]; ok {
			out = append(out, fn)
		}
	}
	return out
}
