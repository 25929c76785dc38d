package activator

import (
	"fmt"
)

// Module groups related registrations. The registry keeps every module it
// configures for as long as it lives, so creators bound to module state (for
// example method values) stay valid after RegisterModule returns.
type Module interface {
	Configure(r *Registry) error
}

// ModuleOption represents a registration action within a module. It is
// itself a Module.
type ModuleOption func(*Registry) error

// Configure runs the option against r.
func (o ModuleOption) Configure(r *Registry) error {
	return o(r)
}

type namedModule struct {
	name    string
	options []ModuleOption
}

func (m *namedModule) Name() string {
	return m.name
}

func (m *namedModule) Configure(r *Registry) error {
	for _, opt := range m.options {
		if opt == nil {
			continue
		}

		if err := opt(r); err != nil {
			return ModuleError{Module: m.name, Cause: err}
		}
	}

	return nil
}

// NewModule creates a named module from registration actions.
//
// Example:
//
//	var StorageModule = activator.NewModule("storage",
//	    activator.Provide[*sql.DB]("primary", openPrimary),
//	    activator.ProvideType[*UserRepository](activator.DefaultID, NewUserRepository),
//	)
//
//	var AppModule = activator.NewModule("app",
//	    activator.Include(StorageModule),
//	    activator.DecorateValueWith(withMetrics),
//	)
func NewModule(name string, options ...ModuleOption) Module {
	return &namedModule{name: name, options: options}
}

// Include nests m inside another module.
func Include(m Module) ModuleOption {
	return func(r *Registry) error {
		return r.RegisterModule(m)
	}
}

// RegisterModule configures m against the registry and retains it.
func (r *Registry) RegisterModule(m Module) error {
	if m == nil {
		return ErrModuleNil
	}

	if err := m.Configure(r); err != nil {
		if _, ok := err.(ModuleError); ok {
			return err
		}
		return ModuleError{Module: moduleName(m), Cause: err}
	}

	r.mu.Lock()
	r.modules = append(r.modules, m)
	r.mu.Unlock()

	return nil
}

// RegisterModules registers each module in order, stopping at the first
// failure.
func (r *Registry) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := r.RegisterModule(m); err != nil {
			return err
		}
	}
	return nil
}

// Modules returns the modules registered so far.
func (r *Registry) Modules() []Module {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Module, len(r.modules))
	copy(out, r.modules)
	return out
}

func moduleName(m Module) string {
	if n, ok := m.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", m)
}

// Provide creates a ModuleOption registering creator for T under id.
// annotations are attached to the definition.
func Provide[T any](id string, creator any, annotations ...any) ModuleOption {
	return func(r *Registry) error {
		reg, err := Register[T](r, id, creator)
		if err != nil {
			return err
		}
		return reg.Annotate(annotations...).Err()
	}
}

// ProvideDefault is Provide under DefaultID.
func ProvideDefault[T any](creator any, annotations ...any) ModuleOption {
	return Provide[T](DefaultID, creator, annotations...)
}

// ProvideWithDeleter is Provide with a deleter.
func ProvideWithDeleter[T any](id string, creator any, deleter func(*T)) ModuleOption {
	return func(r *Registry) error {
		_, err := RegisterWithDeleter(r, id, creator, deleter)
		return err
	}
}

// ProvideInstance creates a ModuleOption registering copies of v under id.
func ProvideInstance[T any](id string, v T) ModuleOption {
	return func(r *Registry) error {
		_, err := RegisterInstance(r, id, v)
		return err
	}
}

// ProvideType creates a ModuleOption for automatic registration of T.
func ProvideType[T any](id string, constructor any) ModuleOption {
	return func(r *Registry) error {
		_, err := RegisterType[T](r, id, constructor)
		return err
	}
}

// InterceptWith creates a ModuleOption adding an interceptor for T.
func InterceptWith[T any](fn any) ModuleOption {
	return func(r *Registry) error {
		return Intercept[T](r, fn)
	}
}

// DecorateWith creates a ModuleOption adding a decorator for T.
func DecorateWith[T any](fn func(*Context, *Owned[T]) (*T, error), deleter func(*T)) ModuleOption {
	return func(r *Registry) error {
		return Decorate(r, fn, deleter)
	}
}

// DecorateValueWith creates a ModuleOption adding a value decorator for T.
func DecorateValueWith[T any](fn func(*Context, T) (T, error)) ModuleOption {
	return func(r *Registry) error {
		return DecorateValue(r, fn)
	}
}
