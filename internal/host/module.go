package host

import "github.com/fusabi-lang/fusabi/internal/vm"

// Module accumulates native bindings under a dotted namespace prefix
// (e.g. "List", "Db") before bulk-registering them into a Registry,
// collected into a single value object so internal/stdlib can build
// several independent modules side by side.
type Module struct {
	prefix   string
	bindings []entry
}

// NewModule starts a module whose bindings will be registered as
// "prefix.name".
func NewModule(prefix string) *Module {
	return &Module{prefix: prefix}
}

func (m *Module) qualify(name string) string {
	if m.prefix == "" {
		return name
	}
	return m.prefix + "." + name
}

func (m *Module) Func0(name string, fn func() (vm.Value, error)) *Module {
	m.bindings = append(m.bindings, entry{name: m.qualify(name), arity: 0,
		fn: func(args []vm.Value) (vm.Value, error) { return fn() }})
	return m
}

func (m *Module) Func1(name string, fn func(vm.Value) (vm.Value, error)) *Module {
	m.bindings = append(m.bindings, entry{name: m.qualify(name), arity: 1,
		fn: func(args []vm.Value) (vm.Value, error) { return fn(args[0]) }})
	return m
}

func (m *Module) Func2(name string, fn func(vm.Value, vm.Value) (vm.Value, error)) *Module {
	m.bindings = append(m.bindings, entry{name: m.qualify(name), arity: 2,
		fn: func(args []vm.Value) (vm.Value, error) { return fn(args[0], args[1]) }})
	return m
}

func (m *Module) Func3(name string, fn func(vm.Value, vm.Value, vm.Value) (vm.Value, error)) *Module {
	m.bindings = append(m.bindings, entry{name: m.qualify(name), arity: 3,
		fn: func(args []vm.Value) (vm.Value, error) { return fn(args[0], args[1], args[2]) }})
	return m
}

// FuncN registers a variadic-arity raw binding, for host functions
// whose argument count the marshaller itself must validate.
func (m *Module) FuncN(name string, arity int, fn Fn) *Module {
	m.bindings = append(m.bindings, entry{name: m.qualify(name), arity: arity, fn: fn})
	return m
}

// RegisterModule bulk-installs every binding m accumulated. The first
// name collision aborts with none of the remaining bindings installed,
// mirroring Register's single-name duplicate check.
func (r *Registry) RegisterModule(m *Module) error {
	for _, e := range m.bindings {
		if err := r.Register(e.name, e.arity, e.fn); err != nil {
			return err
		}
	}
	return nil
}
