package activator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/activator/internal/erased"
	"github.com/junioryono/activator/internal/typecache"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors that should be wrapped in typed errors when returned.

var (
	// Registration errors.
	ErrRegistryFrozen   = errors.New("registry is frozen: registrations are only accepted before Build")
	ErrDuplicate        = errors.New("definition already registered")
	ErrCreatorNil       = errors.New("creator cannot be nil")
	ErrInvalidCreator   = errors.New("invalid creator")
	ErrInvalidDecorator = errors.New("invalid decorator")
	ErrInvalidIntercept = errors.New("invalid interceptor")
	ErrArityExceeded    = errors.New("constructor arity exceeds the configured maximum")
	ErrArityMismatch    = errors.New("explicit parameters do not match constructor arity")
	ErrRegistrationNil  = errors.New("registration cannot be nil")
	ErrModuleNil        = errors.New("module cannot be nil")
	ErrRegistryNil      = errors.New("registry cannot be nil")
	ErrDigContainerNil  = errors.New("dig container cannot be nil")

	// Resolution errors.
	ErrUnresolved         = errors.New("unresolved dependency")
	ErrAnnotationNotFound = errors.New("annotation not found")
	ErrTypeMismatch       = errors.New("type mismatch")
	ErrNilArgument        = errors.New("untyped nil argument: wrap it with activator.Arg")
	ErrActivatorNil       = errors.New("activator cannot be nil")
	ErrContextNil         = errors.New("activation context cannot be nil")
	ErrNilInstance        = errors.New("nil instance")
	ErrCircularActivation = errors.New("circular activation detected")
	ErrActivationConsumed = errors.New("activation already consumed")
	ErrContextNotFound    = errors.New("no activation context found in context")
	ErrCircularDependency = errors.New("circular dependency detected")
)

var (
	_ error = DuplicateDefinitionError{}
	_ error = UnresolvedDependencyError{}
	_ error = AnnotationNotFoundError{}
	_ error = TypeMismatchError{}
	_ error = RegistrationError{}
	_ error = ModuleError{}
	_ error = CreatorError{}
	_ error = CreatorPanicError{}
	_ error = InterceptorError{}
	_ error = DecoratorError{}
	_ error = ValidationError{}
	_ error = CircularActivationError{}
	_ error = CircularDependencyError{}
	_ error = MissingDependencyError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// DuplicateDefinitionError is returned when a definition already exists for
// the same id and signature. The registry is left unchanged.
type DuplicateDefinitionError struct {
	Key Key
}

func (e DuplicateDefinitionError) Error() string {
	return fmt.Sprintf("duplicate definition: %s is already registered", e.Key)
}

func (e DuplicateDefinitionError) Is(target error) bool {
	return target == ErrDuplicate
}

// UnresolvedDependencyError is returned when no definition matches the
// requested id and signature. Known is only populated when tracing is enabled.
type UnresolvedDependencyError struct {
	Type  reflect.Type
	ID    string
	Args  []reflect.Type
	Known []Key
}

func (e UnresolvedDependencyError) Error() string {
	var b strings.Builder

	sig := Signature{Type: e.Type, Args: e.Args}
	if e.ID == DefaultID {
		b.WriteString(fmt.Sprintf("unresolved dependency: no default definition for %s", sig))
	} else {
		b.WriteString(fmt.Sprintf("unresolved dependency: no definition for %s with id %q", sig, e.ID))
	}

	if len(e.Known) > 0 {
		b.WriteString("\n\nRegistered definitions:\n")
		for _, k := range e.Known {
			b.WriteString(fmt.Sprintf("  • %s\n", k))
		}
	}

	return b.String()
}

func (e UnresolvedDependencyError) Is(target error) bool {
	return target == ErrUnresolved
}

// AnnotationNotFoundError is returned when a required annotation is absent.
type AnnotationNotFoundError struct {
	Type reflect.Type
	Tag  int
}

func (e AnnotationNotFoundError) Error() string {
	if e.Tag != 0 {
		return fmt.Sprintf("annotation not found: %s (tag %d)", formatType(e.Type), e.Tag)
	}
	return fmt.Sprintf("annotation not found: %s", formatType(e.Type))
}

func (e AnnotationNotFoundError) Is(target error) bool {
	return target == ErrAnnotationNotFound
}

// TypeMismatchError indicates a stored value was retrieved as the wrong type.
// It points at inconsistent registration bookkeeping rather than a normal
// runtime condition.
type TypeMismatchError struct {
	Expected reflect.Type
	Actual   reflect.Type
	Context  string // "deleter", "instance", "annotation", etc.
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Context, formatType(e.Expected), formatType(e.Actual))
}

func (e TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// RegistrationError wraps errors during registration.
type RegistrationError struct {
	Type      reflect.Type
	Operation string // "register", "intercept", "decorate", etc.
	Cause     error
}

func (e RegistrationError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, formatType(e.Type), e.Cause)
}

func (e RegistrationError) Unwrap() error {
	return e.Cause
}

// ModuleError wraps errors from module registration.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

// CreatorError wraps an error returned by a creator.
type CreatorError struct {
	Key   Key
	Cause error
}

func (e CreatorError) Error() string {
	return fmt.Sprintf("failed to create %s: %v", e.Key, e.Cause)
}

func (e CreatorError) Unwrap() error {
	return e.Cause
}

// CreatorPanicError indicates a creator panicked during activation.
// It captures the panic value and stack trace for debugging.
type CreatorPanicError struct {
	Key   Key
	Panic any
	Stack []byte
}

func (e CreatorPanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("creator for %s panicked: %v\n", e.Key, e.Panic))

	if len(e.Stack) > 0 {
		b.WriteString("\nStack trace:\n")
		b.Write(e.Stack)
	}

	return b.String()
}

func (e CreatorPanicError) Unwrap() error {
	if err, ok := e.Panic.(error); ok {
		return err
	}
	return nil
}

// InterceptorError wraps a failure raised by an interceptor.
type InterceptorError struct {
	Signature Signature
	Index     int
	Cause     error
}

func (e InterceptorError) Error() string {
	return fmt.Sprintf("interceptor %d for %s failed: %v", e.Index, e.Signature, e.Cause)
}

func (e InterceptorError) Unwrap() error {
	return e.Cause
}

// DecoratorError wraps a failure raised by a decorator.
type DecoratorError struct {
	Type  reflect.Type
	Index int
	Cause error
}

func (e DecoratorError) Error() string {
	return fmt.Sprintf("decorator %d for %s failed: %v", e.Index, formatType(e.Type), e.Cause)
}

func (e DecoratorError) Unwrap() error {
	return e.Cause
}

// ValidationError indicates an activated instance failed struct validation.
type ValidationError struct {
	Type  reflect.Type
	Cause error
}

func (e ValidationError) Error() string {
	if e.Type != nil {
		return fmt.Sprintf("%s: %v", formatType(e.Type), e.Cause)
	}
	return e.Cause.Error()
}

func (e ValidationError) Unwrap() error {
	return e.Cause
}

// CircularActivationError is returned by DetectCycle.
type CircularActivationError struct {
	Chain []string
}

func (e CircularActivationError) Error() string {
	return fmt.Sprintf("circular activation detected: %s", strings.Join(e.Chain, " -> "))
}

func (e CircularActivationError) Is(target error) bool {
	return target == ErrCircularActivation
}

// CircularDependencyError is reported by Registry.Validate when declared
// constructor dependencies form a cycle. The last key depends on the first.
type CircularDependencyError struct {
	Chain []Key
}

func (e CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency detected: ")
	for _, k := range e.Chain {
		b.WriteString(k.String())
		b.WriteString(" -> ")
	}
	if len(e.Chain) > 0 {
		b.WriteString(e.Chain[0].String())
	}
	return b.String()
}

func (e CircularDependencyError) Is(target error) bool {
	return target == ErrCircularDependency
}

// MissingDependencyError is reported by Registry.Validate for a required
// constructor dependency that has no definition.
type MissingDependencyError struct {
	Definition Key
	Dependency Key
}

func (e MissingDependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Definition, e.Unwrap())
}

func (e MissingDependencyError) Unwrap() error {
	return UnresolvedDependencyError{
		Type: e.Dependency.Signature.Type,
		ID:   e.Dependency.ID,
		Args: e.Dependency.Signature.Args,
	}
}

// IsUnresolved reports whether err carries an UnresolvedDependencyError.
func IsUnresolved(err error) bool {
	return errors.Is(err, ErrUnresolved)
}

// IsDuplicate reports whether err carries a DuplicateDefinitionError.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsAnnotationNotFound reports whether err carries an AnnotationNotFoundError.
func IsAnnotationNotFound(err error) bool {
	return errors.Is(err, ErrAnnotationNotFound)
}

// mismatch converts an erased-store failure into a TypeMismatchError.
func mismatch(err error, context string) error {
	var m *erased.MismatchError
	if errors.As(err, &m) {
		return TypeMismatchError{Expected: m.Expected, Actual: m.Actual, Context: context}
	}
	return err
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	return typecache.Name(t)
}
