package testutil

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Common test errors
var (
	ErrTest        = errors.New("test error")
	ErrIntentional = errors.New("intentional error")
	ErrCreator     = errors.New("creator error")
)

// Widget is the basic activation target.
type Widget struct {
	Name string
	ID   string
}

// NewWidget creates a widget with a fresh id.
func NewWidget(name string) Widget {
	return Widget{Name: name, ID: uuid.NewString()}
}

// Greeter is an interface target used by derive and decorate tests.
type Greeter interface {
	Greet() string
}

// EnglishGreeter implements Greeter.
type EnglishGreeter struct {
	Name string
}

func (g *EnglishGreeter) Greet() string {
	return "hello " + g.Name
}

// LoudGreeter decorates a Greeter.
type LoudGreeter struct {
	Inner Greeter
}

func (g *LoudGreeter) Greet() string {
	return g.Inner.Greet() + "!"
}

// TestLogger is a test logger interface
type TestLogger interface {
	Log(msg string)
	Logs() []string
}

// TestLoggerImpl implements TestLogger
type TestLoggerImpl struct {
	logs []string
	mu   sync.Mutex
}

func NewTestLogger() TestLogger {
	return &TestLoggerImpl{}
}

func (l *TestLoggerImpl) Log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, msg)
}

func (l *TestLoggerImpl) Logs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := make([]string, len(l.logs))
	copy(result, l.logs)
	return result
}

// TestDatabase is a test database interface
type TestDatabase interface {
	Query(sql string) string
	Name() string
}

// TestDatabaseImpl implements TestDatabase
type TestDatabaseImpl struct {
	name string
}

func NewTestDatabase() TestDatabase {
	return &TestDatabaseImpl{name: "testdb"}
}

func NewTestDatabaseNamed(name string) TestDatabase {
	return &TestDatabaseImpl{name: name}
}

func (d *TestDatabaseImpl) Query(sql string) string {
	return fmt.Sprintf("%s: %s", d.name, sql)
}

func (d *TestDatabaseImpl) Name() string {
	return d.name
}

// TestService depends on a logger and a database.
type TestService struct {
	Logger   TestLogger
	Database TestDatabase
}

func NewTestService(logger TestLogger, db TestDatabase) *TestService {
	return &TestService{Logger: logger, Database: db}
}

// DestroyCounter counts deleter invocations per label.
type DestroyCounter struct {
	mu     sync.Mutex
	counts map[string]int
	total  atomic.Int64
}

func NewDestroyCounter() *DestroyCounter {
	return &DestroyCounter{counts: make(map[string]int)}
}

// Deleter returns a deleter for T that records label.
func Deleter[T any](c *DestroyCounter, label string) func(*T) {
	return func(*T) {
		c.mu.Lock()
		c.counts[label]++
		c.mu.Unlock()
		c.total.Add(1)
	}
}

// Count returns how often label's deleter ran.
func (c *DestroyCounter) Count(label string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[label]
}

// Total returns the number of deleter invocations.
func (c *DestroyCounter) Total() int64 {
	return c.total.Load()
}

// CallRecorder records calls in order.
type CallRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *CallRecorder) Record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *CallRecorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]string, len(r.calls))
	copy(result, r.calls)
	return result
}
