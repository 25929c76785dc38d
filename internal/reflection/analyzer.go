// Package reflection analyzes creator, constructor and interceptor functions
// and invokes them with resolved arguments.
package reflection

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/dig"
)

var (
	inType  = reflect.TypeFor[dig.In]()
	errType = reflect.TypeFor[error]()
)

var (
	ErrNotFunc        = errors.New("value is not a function")
	ErrNilFunc        = errors.New("function cannot be nil")
	ErrVariadic       = errors.New("variadic functions are not supported")
	ErrGroupTag       = errors.New("group tags are not supported")
	ErrNotParamStruct = errors.New("In parameter must be a struct")
	ErrMissingTarget  = errors.New("missing target parameter")
)

// Analyzer inspects function signatures. Results are cached per function type,
// so two closures with the same signature share one analysis.
type Analyzer struct {
	contextType reflect.Type

	mu    sync.RWMutex
	cache map[cacheKey]*FuncInfo
}

type cacheKey struct {
	fn     reflect.Type
	target reflect.Type
}

// FuncInfo describes a function's parameters and results.
type FuncInfo struct {
	Type  reflect.Type
	Value reflect.Value

	// Target is the required leading parameter requested through
	// AnalyzeWithTarget, nil otherwise.
	Target reflect.Type

	// TakesContext is set when the activation context type follows the
	// target, or leads when there is no target.
	TakesContext bool

	// Params excludes the target and context parameters.
	Params []Param

	// Results excludes a trailing error result.
	Results        []reflect.Type
	HasErrorReturn bool

	// ParamObject is set when the only non-context parameter embeds In.
	ParamObject bool
	Fields      []Field
}

// Param is one positional parameter.
type Param struct {
	Type  reflect.Type
	Index int
}

// Field is one injectable field of an In parameter object.
type Field struct {
	Name     string
	Type     reflect.Type
	Index    int
	ID       string
	Optional bool
}

// TagInfo contains parsed struct tag information.
type TagInfo struct {
	ID       string
	Optional bool
	Group    string
	Ignore   bool
}

// New creates an Analyzer. contextType, when not nil, is recognised as an
// optional leading parameter.
func New(contextType reflect.Type) *Analyzer {
	return &Analyzer{
		contextType: contextType,
		cache:       make(map[cacheKey]*FuncInfo),
	}
}

// Analyze inspects fn, which must be a non-nil, non-variadic function.
func (a *Analyzer) Analyze(fn any) (*FuncInfo, error) {
	return a.AnalyzeWithTarget(fn, nil)
}

// AnalyzeWithTarget is Analyze for functions whose first parameter must be
// target, such as interceptors receiving the instance they observe.
func (a *Analyzer) AnalyzeWithTarget(fn any, target reflect.Type) (*FuncInfo, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}

	val := reflect.ValueOf(fn)
	if val.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %T", ErrNotFunc, fn)
	}

	if val.IsNil() {
		return nil, ErrNilFunc
	}

	typ := val.Type()
	key := cacheKey{fn: typ, target: target}

	a.mu.RLock()
	cached, ok := a.cache[key]
	a.mu.RUnlock()

	if !ok {
		var err error
		cached, err = a.analyzeType(typ, target)
		if err != nil {
			return nil, err
		}

		a.mu.Lock()
		a.cache[key] = cached
		a.mu.Unlock()
	}

	info := *cached
	info.Value = val
	return &info, nil
}

func (a *Analyzer) analyzeType(typ, target reflect.Type) (*FuncInfo, error) {
	if typ.IsVariadic() {
		return nil, fmt.Errorf("%w: %v", ErrVariadic, typ)
	}

	info := &FuncInfo{Type: typ, Target: target}
	if target != nil && (typ.NumIn() == 0 || typ.In(0) != target) {
		return nil, fmt.Errorf("%w: %v must take %v as its first parameter", ErrMissingTarget, typ, target)
	}

	if err := a.analyzeParameters(info); err != nil {
		return nil, fmt.Errorf("failed to analyze parameters: %w", err)
	}

	a.analyzeReturns(info)
	return info, nil
}

// analyzeParameters analyzes function parameters or In struct fields.
func (a *Analyzer) analyzeParameters(info *FuncInfo) error {
	fnType := info.Type

	start := 0
	if info.Target != nil {
		start = 1
	}

	if a.contextType != nil && fnType.NumIn() > start && fnType.In(start) == a.contextType {
		info.TakesContext = true
		start++
	}

	if fnType.NumIn()-start == 1 {
		paramType := fnType.In(start)
		if hasEmbeddedType(paramType, inType) {
			info.ParamObject = true
			info.Params = []Param{{Type: paramType, Index: start}}
			return a.analyzeParamObject(info, paramType)
		}
	}

	info.Params = make([]Param, 0, fnType.NumIn()-start)
	for i := start; i < fnType.NumIn(); i++ {
		info.Params = append(info.Params, Param{Type: fnType.In(i), Index: i})
	}

	return nil
}

// analyzeParamObject analyzes an In struct's fields.
func (a *Analyzer) analyzeParamObject(info *FuncInfo, structType reflect.Type) error {
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}

	if structType.Kind() != reflect.Struct {
		return fmt.Errorf("%w, got %v", ErrNotParamStruct, structType.Kind())
	}

	fields := make([]Field, 0, structType.NumField())

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)

		if !field.IsExported() {
			continue
		}

		if field.Anonymous && field.Type == inType {
			continue
		}

		tagInfo := a.parseFieldTags(field.Tag)
		if tagInfo.Ignore {
			continue
		}

		if tagInfo.Group != "" {
			return fmt.Errorf("field %s: %w", field.Name, ErrGroupTag)
		}

		fields = append(fields, Field{
			Name:     field.Name,
			Type:     field.Type,
			Index:    i,
			ID:       tagInfo.ID,
			Optional: tagInfo.Optional,
		})
	}

	info.Fields = fields
	return nil
}

// analyzeReturns splits off a trailing error result.
func (a *Analyzer) analyzeReturns(info *FuncInfo) {
	fnType := info.Type
	n := fnType.NumOut()

	if n > 0 && fnType.Out(n-1) == errType {
		info.HasErrorReturn = true
		n--
	}

	info.Results = make([]reflect.Type, n)
	for i := range n {
		info.Results[i] = fnType.Out(i)
	}
}

// parseFieldTags reads the id (or dig's name), optional and group tags.
func (a *Analyzer) parseFieldTags(tag reflect.StructTag) TagInfo {
	info := TagInfo{}

	if val, ok := tag.Lookup("optional"); ok {
		info.Optional = val == "true"
	}

	if val, ok := tag.Lookup("name"); ok {
		info.ID = val
	}

	// id takes precedence when both are present.
	if val, ok := tag.Lookup("id"); ok {
		info.ID = val
	}

	if val, ok := tag.Lookup("group"); ok {
		info.Group = val
	}

	if val, ok := tag.Lookup("inject"); ok && val == "-" {
		info.Ignore = true
	}

	return info
}

// CacheSize returns the number of cached analyses.
func (a *Analyzer) CacheSize() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.cache)
}

// ParamTypes returns the positional parameter types, excluding the context.
func (info *FuncInfo) ParamTypes() []reflect.Type {
	types := make([]reflect.Type, len(info.Params))
	for i, p := range info.Params {
		types[i] = p.Type
	}
	return types
}

// hasEmbeddedType checks if a type has an embedded field of the given type.
func hasEmbeddedType(t, embedded reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return false
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous && field.Type == embedded {
			return true
		}
	}

	return false
}

// IsParamObject reports whether t embeds In.
func IsParamObject(t reflect.Type) bool {
	return t != nil && hasEmbeddedType(t, inType)
}
