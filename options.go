package activator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultMaxArity is the largest constructor arity RegisterType accepts unless
// WithMaxArity says otherwise.
const DefaultMaxArity = 256

// An Option configures an Activator built by Registry.Build.
type Option interface {
	applyOption(*options)
}

type options struct {
	trace          bool
	logger         *zap.Logger
	tracerProvider trace.TracerProvider
	registerer     prometheus.Registerer
	validate       *validator.Validate
	checkGraph     bool
}

func defaultOptions() options {
	return options{logger: zap.NewNop()}
}

type optionFunc func(*options)

func (f optionFunc) applyOption(o *options) {
	f(o)
}

// WithTrace enables development diagnostics: unresolved dependency errors list
// every registered key, and each activation is logged at debug level.
func WithTrace(enabled bool) Option {
	return traceOption(enabled)
}

type traceOption bool

func (o traceOption) String() string {
	return fmt.Sprintf("WithTrace(%t)", bool(o))
}

func (o traceOption) applyOption(opts *options) {
	opts.trace = bool(o)
}

// WithLogger sets the logger used for activation diagnostics. A nil logger
// restores the no-op default.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(o *options) {
		if logger == nil {
			logger = zap.NewNop()
		}
		o.logger = logger
	})
}

// WithTracerProvider records one span per activation. Spans of nested
// activations are children of the span of the activation that requested them.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return optionFunc(func(o *options) {
		o.tracerProvider = tp
	})
}

// WithMetrics registers activation counters and latency histograms with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return optionFunc(func(o *options) {
		o.registerer = reg
	})
}

// WithValidator runs v.Struct on every activated struct instance after the
// interceptors and before the decorators.
func WithValidator(v *validator.Validate) Option {
	return optionFunc(func(o *options) {
		o.validate = v
	})
}

// WithGraphValidation makes Build fail when Registry.Validate reports a
// missing constructor dependency or a dependency cycle.
func WithGraphValidation() Option {
	return optionFunc(func(o *options) {
		o.checkGraph = true
	})
}

// A RegistryOption configures a Registry.
type RegistryOption interface {
	applyRegistryOption(*registryOptions)
}

type registryOptions struct {
	maxArity int
}

// WithMaxArity bounds the constructor arity RegisterType accepts. Values
// below zero are treated as zero.
func WithMaxArity(n int) RegistryOption {
	return maxArityOption(max(n, 0))
}

type maxArityOption int

func (o maxArityOption) String() string {
	return fmt.Sprintf("WithMaxArity(%d)", int(o))
}

func (o maxArityOption) applyRegistryOption(opts *registryOptions) {
	opts.maxArity = int(o)
}
