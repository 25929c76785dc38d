// Package gin provides activator integration for the Gin web framework.
//
// The middleware creates a root activation context for every request and
// attaches it to the request context. Handle activates a controller in a
// child of that root and destroys it when the handler returns.
//
// Example usage:
//
//	a, _ := registry.Build()
//
//	g := gin.New()
//	g.Use(activatorgin.ContextMiddleware(a))
//
//	g.POST("/login", activatorgin.Handle(AuthController.Login))
//	g.GET("/users/:id", activatorgin.Handle(UserController.GetByID))
package gin

import (
	"net/http"

	"github.com/gin-gonic/gin"
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
	ErrorHandler func(*gin.Context, error)

	// Middlewares run after the root context is created, in order. They
	// typically attach request data as annotations on the root.
	Middlewares []func(*activator.Context, *gin.Context) error
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
func WithErrorHandler(h func(*gin.Context, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a middleware function that runs after the root context
// is created. Multiple middlewares are executed in the order they are added.
//
// Example:
//
//	activatorgin.ContextMiddleware(a,
//	    activatorgin.WithMiddleware(func(root *activator.Context, c *gin.Context) error {
//	        root.Annotations().Set(TenantID(c.GetHeader("X-Tenant")))
//	        return nil
//	    }),
//	)
func WithMiddleware(mw func(*activator.Context, *gin.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ContextID: DefaultContextID,
		ErrorHandler: func(c *gin.Context, err error) {
			zap.L().Error("request middleware failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Internal Server Error",
			})
		},
	}
}

// ContextMiddleware creates a gin.HandlerFunc that creates a root activation
// context for each request. The root is attached to the request context and
// can be retrieved using activator.FromContext.
//
// Example:
//
//	g := gin.New()
//	g.Use(activatorgin.ContextMiddleware(a))
func ContextMiddleware(a *activator.Activator, opts ...Option) gin.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		root := activator.NewContextWith(c.Request.Context(), a, cfg.ContextID, nil)

		// Attach the root to the request context
		c.Request = c.Request.WithContext(activator.IntoContext(c.Request.Context(), root))

		// Run middlewares
		for _, mw := range cfg.Middlewares {
			if err := mw(root, c); err != nil {
				cfg.ErrorHandler(c, err)
				return
			}
		}

		c.Next()
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// ID is the definition id the controller is activated under.
	ID string

	// PanicRecovery enables panic recovery in the handler.
	// If true, panics are caught and handled by PanicHandler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	// If nil, a default handler returning 500 Internal Server Error is used.
	PanicHandler func(*gin.Context, any)

	// ContextErrorHandler is called when no root context is attached.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ContextErrorHandler func(*gin.Context, error)

	// ActivationErrorHandler is called when the controller cannot be activated.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ActivationErrorHandler func(*gin.Context, error)
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

// WithPanicHandler sets the handler for panics (requires WithPanicRecovery(true)).
func WithPanicHandler(h func(*gin.Context, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContextErrorHandler sets the error handler for a missing root context.
func WithContextErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContextErrorHandler = h
	}
}

// WithActivationErrorHandler sets the error handler for activation failures.
func WithActivationErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ActivationErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		ID:            activator.DefaultID,
		PanicRecovery: false,
		PanicHandler: func(c *gin.Context, r any) {
			zap.L().Error("panic in handler", zap.Any("panic", r))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Internal Server Error",
			})
		},
		ContextErrorHandler: func(c *gin.Context, err error) {
			zap.L().Error("failed to get activation context", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Internal Server Error",
			})
		},
		ActivationErrorHandler: func(c *gin.Context, err error) {
			zap.L().Error("failed to activate controller", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Internal Server Error",
			})
		},
	}
}

// Handle wraps a controller method for type-safe activation from the request
// context. T is activated in a child of the request's root context and
// destroyed once method returns.
//
// The method signature should be: func(T, *gin.Context)
//
// Example:
//
//	type UserController interface {
//	    GetByID(*gin.Context)
//	}
//
//	g.GET("/users/:id", activatorgin.Handle(UserController.GetByID))
func Handle[T any](method func(T, *gin.Context), opts ...HandlerOption) gin.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		if cfg.PanicRecovery {
			defer func() {
				if r := recover(); r != nil {
					cfg.PanicHandler(c, r)
				}
			}()
		}

		ctx := c.Request.Context()
		if _, err := activator.FromContext(ctx); err != nil {
			cfg.ContextErrorHandler(c, err)
			return
		}

		controller, err := activator.ActivateFromContext[T](ctx, cfg.ID)
		if err != nil {
			cfg.ActivationErrorHandler(c, err)
			return
		}
		defer controller.Close()

		method(controller.Value(), c)
	}
}
