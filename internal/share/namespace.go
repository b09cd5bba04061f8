package share

import (
	"fmt"
	"sort"

	"github.com/dop251/goja"
)

// binding pairs one name with its captured capsule.
type binding struct {
	name    string
	capsule *Capsule
}

// Namespace is an ordered batch of (name, capsule) pairs built once per
// cross-isolate call. Construction is all-or-nothing; application is
// first-failure with prior bindings left in place; release is unconditional.
type Namespace struct {
	items []binding
}

// BuildNamespace captures every binding into a new Namespace. Names are
// iterated in lexicographic order, the stable order for a Go map. If any
// capture fails, all capsules captured so far are released before the error
// surfaces, so no orphaned capsule remains. A nil or empty mapping yields a
// nil Namespace, which callers treat as "nothing to inject".
func BuildNamespace(bindings map[string]interface{}, origin int64) (*Namespace, error) {
	if len(bindings) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	items, err := captureBindings(names, bindings, origin)
	if err != nil {
		return nil, err
	}
	return &Namespace{items: items}, nil
}

// captureBindings captures each named value into a capsule, in order. The
// batch is all-or-nothing: on the first failure every capsule captured so
// far is released, and the released partial batch comes back alongside the
// error.
func captureBindings(names []string, bindings map[string]interface{}, origin int64) ([]binding, error) {
	items := make([]binding, 0, len(names))
	for _, name := range names {
		capsule, err := Capture(bindings[name], origin)
		if err != nil {
			for _, item := range items {
				item.capsule.Release()
			}
			return items, fmt.Errorf("binding %q: %w", name, err)
		}
		items = append(items, binding{name: name, capsule: capsule})
	}
	return items, nil
}

// Len returns the number of bindings.
func (ns *Namespace) Len() int {
	if ns == nil {
		return 0
	}
	return len(ns.items)
}

// Names returns the binding names in application order.
func (ns *Namespace) Names() []string {
	if ns == nil {
		return nil
	}
	names := make([]string, len(ns.items))
	for i, item := range ns.items {
		names[i] = item.name
	}
	return names
}

// Apply materializes each capsule in the target runtime and binds it under
// its name in the runtime's global namespace. It stops at the first
// materialization or binding failure with ErrApplyFailed; bindings applied
// before the failure stay in place, since the caller only ever observes the
// target's script outcome, not namespace atomicity.
func (ns *Namespace) Apply(vm *goja.Runtime) error {
	if ns == nil {
		return nil
	}
	for _, item := range ns.items {
		val, err := item.capsule.Materialize(vm)
		if err != nil {
			return fmt.Errorf("%w: binding %q: %v", ErrApplyFailed, item.name, err)
		}
		if err := vm.GlobalObject().Set(item.name, val); err != nil {
			return fmt.Errorf("%w: binding %q: %v", ErrApplyFailed, item.name, err)
		}
	}
	return nil
}

// Release releases every capsule in the batch. Called unconditionally once
// a cross-isolate call completes, whether it succeeded or failed. Safe on a
// nil Namespace and idempotent per capsule.
func (ns *Namespace) Release() {
	if ns == nil {
		return
	}
	for _, item := range ns.items {
		item.capsule.Release()
	}
}
