// Package chi provides activator integration for the Chi router and any
// other net/http compatible mux.
//
// The middleware creates a root activation context for every request and
// attaches it to the request context. Handle activates a controller in a
// child of that root and destroys it when the handler returns.
//
// Example usage:
//
//	a, _ := registry.Build()
//
//	r := chi.NewRouter()
//	r.Use(activatorchi.ContextMiddleware(a))
//
//	r.Post("/login", activatorchi.Handle(AuthController.Login))
//	r.Get("/users/{id}", activatorchi.Handle(UserController.GetByID))
package chi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/junioryono/activator"
)

// DefaultContextID is the id of the per-request root context.
const DefaultContextID = "request"

// Config holds the configuration for the context middleware.
type Config struct {
	// ContextID is the id of the root context created per request.
	ContextID string

	// ErrorHandler is called when a middleware fails.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	// Middlewares run after the root context is created, in order. They
	// typically attach request data as annotations on the root.
	Middlewares []func(*activator.Context, *http.Request) error
}

// Option configures the context middleware.
type Option func(*Config)

// WithContextID sets the id of the per-request root context.
func WithContextID(id string) Option {
	return func(c *Config) {
		c.ContextID = id
	}
}

// WithErrorHandler sets the error handler for middleware failures.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a middleware function that runs after the root context
// is created. Multiple middlewares are executed in the order they are added.
//
// Example:
//
//	activatorchi.WithMiddleware(func(root *activator.Context, r *http.Request) error {
//	    root.Annotations().Set(RequestID(r.Header.Get("X-Request-ID")))
//	    return nil
//	})
func WithMiddleware(mw func(*activator.Context, *http.Request) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ContextID: DefaultContextID,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			zap.L().Error("request middleware failed", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
	}
}

// ContextMiddleware creates a middleware that creates a root activation
// context for each request. The root carries the request's context.Context,
// so activation spans join the request trace, and can be retrieved with
// activator.FromContext.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Use(activatorchi.ContextMiddleware(a))
func ContextMiddleware(a *activator.Activator, opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			root := activator.NewContextWith(r.Context(), a, cfg.ContextID, nil)

			// Attach the root to the request context
			r = r.WithContext(activator.IntoContext(r.Context(), root))

			// Run middlewares
			for _, mw := range cfg.Middlewares {
				if err := mw(root, r); err != nil {
					cfg.ErrorHandler(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// ID is the definition id the controller is activated under.
	ID string

	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(http.ResponseWriter, *http.Request, any)

	// ContextErrorHandler is called when no root context is attached.
	ContextErrorHandler func(http.ResponseWriter, *http.Request, error)

	// ActivationErrorHandler is called when the controller cannot be activated.
	ActivationErrorHandler func(http.ResponseWriter, *http.Request, error)
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

// WithID activates the controller under id instead of the default id.
func WithID(id string) HandlerOption {
	return func(c *HandlerConfig) {
		c.ID = id
	}
}

// WithPanicRecovery enables or disables panic recovery in the handler.
func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithPanicHandler sets the handler for panics.
func WithPanicHandler(h func(http.ResponseWriter, *http.Request, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContextErrorHandler sets the error handler for a missing root context.
func WithContextErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContextErrorHandler = h
	}
}

// WithActivationErrorHandler sets the error handler for activation failures.
func WithActivationErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ActivationErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		ID:            activator.DefaultID,
		PanicRecovery: false,
		PanicHandler: func(w http.ResponseWriter, r *http.Request, v any) {
			zap.L().Error("panic in handler", zap.Any("panic", v))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		ContextErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			zap.L().Error("failed to get activation context", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		ActivationErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			zap.L().Error("failed to activate controller", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
	}
}

// Handle wraps a controller method for type-safe activation from the request
// context. T is activated in a child of the request's root context and
// destroyed once method returns.
//
// The method signature should be: func(T, http.ResponseWriter, *http.Request)
//
// Example:
//
//	type UserController interface {
//	    GetByID(http.ResponseWriter, *http.Request)
//	}
//
//	r.Get("/users/{id}", activatorchi.Handle(UserController.GetByID))
func Handle[T any](method func(T, http.ResponseWriter, *http.Request), opts ...HandlerOption) http.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(w, r, v)
				}
			}()
		}

		if _, err := activator.FromContext(r.Context()); err != nil {
			cfg.ContextErrorHandler(w, r, err)
			return
		}

		controller, err := activator.ActivateFromContext[T](r.Context(), cfg.ID)
		if err != nil {
			cfg.ActivationErrorHandler(w, r, err)
			return
		}
		defer controller.Close()

		method(controller.Value(), w, r)
	}
}
