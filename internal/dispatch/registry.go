package dispatch

import (
	"fmt"
	"sort"
	"sync"
)

// ActionRegistry indexes actions by module and action name
type ActionRegistry struct {
	mu      sync.RWMutex
	modules map[string]map[string]Action
}

// NewActionRegistry creates an empty action registry
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{
		modules: make(map[string]map[string]Action),
	}
}

// Register adds an action under module/action. Registering the same pair
// twice is an error.
func (r *ActionRegistry) Register(module, action string, a Action) error {
	return r.RegisterModule(module, map[string]Action{action: a})
}

// RegisterModule adds every action of a module. Either all of them are
// registered or, on error, none are.
func (r *ActionRegistry) RegisterModule(module string, actions map[string]Action) error {
	names := make([]string, 0, len(actions))
	for name, a := range actions {
		if err := checkAction(module, name, a); err != nil {
			return err
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)

	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.modules[module]
	for _, name := range names {
		if _, exists := existing[name]; exists {
			return fmt.Errorf("%w: %s.%s", ErrDuplicateAction, module, name)
		}
	}

	if existing == nil {
		existing = make(map[string]Action, len(names))
		r.modules[module] = existing
	}
	for _, name := range names {
		existing[name] = actions[name]
	}
	return nil
}

func checkAction(module, action string, a Action) error {
	if module == "" || action == "" {
		return fmt.Errorf("module and action names are required (got %q/%q)", module, action)
	}
	if a == nil {
		return fmt.Errorf("action %s.%s is nil", module, action)
	}
	return nil
}

// Lookup finds the action for module/action
func (r *ActionRegistry) Lookup(module, action string) (Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actions, ok := r.modules[module]
	if !ok {
		return nil, &NotFoundError{Module: module}
	}
	a, ok := actions[action]
	if !ok {
		return nil, &NotFoundError{Module: module, Action: action}
	}
	return a, nil
}

// Modules returns the registered module names, sorted
func (r *ActionRegistry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Actions returns the action names of a module, sorted
func (r *ActionRegistry) Actions(module string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules[module]))
	for name := range r.modules[module] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
