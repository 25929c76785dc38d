// Package fiber provides activator integration for the Fiber web framework.
//
// The middleware creates a root activation context for every request and
// stores it in fiber.Ctx.Locals and the user context. Handle activates a
// controller in a child of that root and destroys it when the handler
// returns.
//
// Example usage:
//
//	a, _ := registry.Build()
//
//	app := fiber.New()
//	app.Use(activatorfiber.ContextMiddleware(a))
//
//	app.Post("/login", activatorfiber.Handle(AuthController.Login))
//	app.Get("/users/:id", activatorfiber.Handle(UserController.GetByID))
package fiber

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/junioryono/activator"
)

// contextKey is the key used to store the root context in fiber.Ctx.Locals
const contextKey = "activator_context"

// DefaultContextID is the id of the per-request root context.
const DefaultContextID = "request"

// Config holds the configuration for the context middleware.
type Config struct {
	// ContextID is the id of the root context created per request.
	ContextID string

	// ErrorHandler is called when a middleware fails.
	// If nil, a default handler returning a JSON error is used.
	ErrorHandler func(*fiber.Ctx, error) error

	// Middlewares run after the root context is created, in order. They
	// typically attach request data as annotations on the root.
	Middlewares []func(*activator.Context, *fiber.Ctx) error
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
func WithErrorHandler(h func(*fiber.Ctx, error) error) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a middleware function that runs after the root context
// is created. Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(*activator.Context, *fiber.Ctx) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ContextID: DefaultContextID,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			zap.L().Error("request middleware failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal Server Error",
			})
		},
	}
}

// ContextMiddleware creates a Fiber middleware that creates a root activation
// context for each request. The root is stored in fiber.Ctx.Locals and
// attached to the UserContext.
//
// Example:
//
//	app := fiber.New()
//	app.Use(activatorfiber.ContextMiddleware(a))
func ContextMiddleware(a *activator.Activator, opts ...Option) fiber.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *fiber.Ctx) error {
		root := activator.NewContextWith(c.UserContext(), a, cfg.ContextID, nil)

		// Store the root in the user context and locals
		c.SetUserContext(activator.IntoContext(c.UserContext(), root))
		c.Locals(contextKey, root)

		// Run middlewares
		for _, mw := range cfg.Middlewares {
			if err := mw(root, c); err != nil {
				return cfg.ErrorHandler(c, err)
			}
		}

		return c.Next()
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// ID is the definition id the controller is activated under.
	ID string

	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(*fiber.Ctx, any) error

	// ContextErrorHandler is called when no root context is stored.
	ContextErrorHandler func(*fiber.Ctx, error) error

	// ActivationErrorHandler is called when the controller cannot be activated.
	ActivationErrorHandler func(*fiber.Ctx, error) error
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
func WithPanicHandler(h func(*fiber.Ctx, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContextErrorHandler sets the error handler for a missing root context.
func WithContextErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContextErrorHandler = h
	}
}

// WithActivationErrorHandler sets the error handler for activation failures.
func WithActivationErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ActivationErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		ID:            activator.DefaultID,
		PanicRecovery: false,
		PanicHandler: func(c *fiber.Ctx, v any) error {
			zap.L().Error("panic in handler", zap.Any("panic", v))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal Server Error",
			})
		},
		ContextErrorHandler: func(c *fiber.Ctx, err error) error {
			zap.L().Error("failed to get activation context", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal Server Error",
			})
		},
		ActivationErrorHandler: func(c *fiber.Ctx, err error) error {
			zap.L().Error("failed to activate controller", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal Server Error",
			})
		},
	}
}

// Handle wraps a controller method for type-safe activation from the request
// context. T is activated in a child of the root stored by ContextMiddleware
// and destroyed once method returns.
//
// The method signature should be: func(T, *fiber.Ctx) error
//
// Example:
//
//	type UserController interface {
//	    GetByID(*fiber.Ctx) error
//	}
//
//	app.Get("/users/:id", activatorfiber.Handle(UserController.GetByID))
func Handle[T any](method func(T, *fiber.Ctx) error, opts ...HandlerOption) fiber.Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *fiber.Ctx) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		if FromContext(c) == nil {
			return cfg.ContextErrorHandler(c, activator.ErrContextNotFound)
		}

		controller, activateErr := activator.ActivateFromContext[T](c.UserContext(), cfg.ID)
		if activateErr != nil {
			return cfg.ActivationErrorHandler(c, activateErr)
		}
		defer controller.Close()

		return method(controller.Value(), c)
	}
}

// FromContext retrieves the root context from fiber.Ctx.Locals.
// This is useful when you need to activate instances manually.
//
// Example:
//
//	root := activatorfiber.FromContext(c)
//	svc, err := activator.Activate[*UserService](root, activator.DefaultID).Owned()
func FromContext(c *fiber.Ctx) *activator.Context {
	root, ok := c.Locals(contextKey).(*activator.Context)
	if !ok {
		return nil
	}

	return root
}
