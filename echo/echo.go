// Package echo provides activator integration for the Echo web framework.
//
// The middleware creates a root activation context for every request and
// attaches it to the request context. Handle activates a controller in a
// child of that root and destroys it when the handler returns.
//
// Example usage:
//
//	a, _ := registry.Build()
//
//	e := echo.New()
//	e.Use(activatorecho.ContextMiddleware(a))
//
//	e.POST("/login", activatorecho.Handle(AuthController.Login))
//	e.GET("/users/:id", activatorecho.Handle(UserController.GetByID))
package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"
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
	// If nil, the error is returned (Echo's default error handling).
	ErrorHandler func(echo.Context, error) error

	// Middlewares run after the root context is created, in order. They
	// typically attach request data as annotations on the root.
	Middlewares []func(*activator.Context, echo.Context) error
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
func WithErrorHandler(h func(echo.Context, error) error) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a middleware function that runs after the root context
// is created. Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(*activator.Context, echo.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ContextID: DefaultContextID,
		ErrorHandler: func(c echo.Context, err error) error {
			zap.L().Error("request middleware failed", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
	}
}

// ContextMiddleware creates an Echo middleware that creates a root activation
// context for each request. The root is attached to the request context and
// can be retrieved using activator.FromContext.
//
// Example:
//
//	e := echo.New()
//	e.Use(activatorecho.ContextMiddleware(a))
func ContextMiddleware(a *activator.Activator, opts ...Option) echo.MiddlewareFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			root := activator.NewContextWith(req.Context(), a, cfg.ContextID, nil)

			// Attach the root to the request context
			c.SetRequest(req.WithContext(activator.IntoContext(req.Context(), root)))

			// Run middlewares
			for _, mw := range cfg.Middlewares {
				if err := mw(root, c); err != nil {
					return cfg.ErrorHandler(c, err)
				}
			}

			return next(c)
		}
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// ID is the definition id the controller is activated under.
	ID string

	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(echo.Context, any) error

	// ContextErrorHandler is called when no root context is attached.
	ContextErrorHandler func(echo.Context, error) error

	// ActivationErrorHandler is called when the controller cannot be activated.
	ActivationErrorHandler func(echo.Context, error) error
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
func WithPanicHandler(h func(echo.Context, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContextErrorHandler sets the error handler for a missing root context.
func WithContextErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContextErrorHandler = h
	}
}

// WithActivationErrorHandler sets the error handler for activation failures.
func WithActivationErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ActivationErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		ID:            activator.DefaultID,
		PanicRecovery: false,
		PanicHandler: func(c echo.Context, v any) error {
			zap.L().Error("panic in handler", zap.Any("panic", v))
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
		ContextErrorHandler: func(c echo.Context, err error) error {
			zap.L().Error("failed to get activation context", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
		ActivationErrorHandler: func(c echo.Context, err error) error {
			zap.L().Error("failed to activate controller", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
	}
}

// Handle wraps a controller method for type-safe activation from the request
// context. T is activated in a child of the request's root context and
// destroyed once method returns.
//
// The method signature should be: func(T, echo.Context) error
//
// Example:
//
//	type UserController interface {
//	    GetByID(echo.Context) error
//	}
//
//	e.GET("/users/:id", activatorecho.Handle(UserController.GetByID))
func Handle[T any](method func(T, echo.Context) error, opts ...HandlerOption) echo.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c echo.Context) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		ctx := c.Request().Context()
		if _, ctxErr := activator.FromContext(ctx); ctxErr != nil {
			return cfg.ContextErrorHandler(c, ctxErr)
		}

		controller, activateErr := activator.ActivateFromContext[T](ctx, cfg.ID)
		if activateErr != nil {
			return cfg.ActivationErrorHandler(c, activateErr)
		}
		defer controller.Close()

		return method(controller.Value(), c)
	}
}
