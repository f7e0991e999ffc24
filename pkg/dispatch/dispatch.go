// Package dispatch defines the contract the coach uses to execute a function
// requested by the model, and a typed dispatch table implementing it.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/blueberrycongee/llmcoach/pkg/catalog"
	cerrors "github.com/blueberrycongee/llmcoach/pkg/errors"
)

// Dispatcher executes a named function against live data and returns its
// JSON result. Implementations are supplied by the host.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error)
}

// Func adapts a function to the Dispatcher interface.
type Func func(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error)

// Dispatch implements Dispatcher.
func (f Func) Dispatch(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	return f(ctx, name, args)
}

// HandlerFunc handles one function with typed parameters.
type HandlerFunc[T any] func(ctx context.Context, params T) (any, error)

type entry struct {
	call func(ctx context.Context, args json.RawMessage) (any, error)
}

// Table routes function names to typed handlers. Handlers are registered once
// at startup; Dispatch is safe for concurrent use.
type Table struct {
	mu       sync.RWMutex
	handlers map[string]entry
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{handlers: make(map[string]entry)}
}

// Register binds name to a handler whose arguments decode into T.
func Register[T any](t *Table, name string, h HandlerFunc[T]) error {
	if name == "" {
		return fmt.Errorf("dispatch: empty function name")
	}
	if h == nil {
		return fmt.Errorf("dispatch: nil handler for %q", name)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, dup := t.handlers[name]; dup {
		return fmt.Errorf("dispatch: handler for %q already registered", name)
	}
	t.handlers[name] = entry{call: func(ctx context.Context, args json.RawMessage) (any, error) {
		var params T
		if len(args) > 0 {
			if err := json.Unmarshal(args, &params); err != nil {
				return nil, fmt.Errorf("decode %s arguments: %w", name, err)
			}
		}
		return h(ctx, params)
	}}
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister[T any](t *Table, name string, h HandlerFunc[T]) {
	if err := Register(t, name, h); err != nil {
		panic(err)
	}
}

// Names returns the registered function names, sorted.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.handlers))
	for name := range t.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Check verifies the table and catalog cover exactly the same functions.
func (t *Table) Check(c *catalog.Catalog) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var missing, extra []string
	for _, name := range c.Names() {
		if _, ok := t.handlers[name]; !ok {
			missing = append(missing, name)
		}
	}
	for name := range t.handlers {
		if !c.Has(name) {
			extra = append(extra, name)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	sort.Strings(extra)
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "no handler for "+strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		parts = append(parts, "handlers not in catalog: "+strings.Join(extra, ", "))
	}
	return cerrors.NewConfigurationError(
		fmt.Sprintf("dispatch table does not match catalog %s: %s", c.Version(), strings.Join(parts, "; ")), nil)
}

// Dispatch runs the handler registered under name and encodes its result.
// A panicking handler is reported as an error.
func (t *Table) Dispatch(ctx context.Context, name string, args json.RawMessage) (result json.RawMessage, err error) {
	t.mu.RLock()
	e, ok := t.handlers[name]
	t.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("dispatch: no handler for %q", name)
	}

	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = fmt.Errorf("dispatch: handler %q panicked: %v\n%s", name, p, debug.Stack())
		}
	}()

	out, err := e.call(ctx, args)
	if err != nil {
		return nil, err
	}
	if raw, ok := out.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", name, err)
	}
	return data, nil
}
