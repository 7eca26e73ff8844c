// Instrumentation layer for operations backed by the key-value store. A
// wrapped operation atomically counts its invocations and appends inputs and
// outputs to ordered history logs, which can be replayed later for
// inspection.
//
// Counter and log keys derive from an explicit, caller-supplied logical name;
// two operations sharing a name share instrumentation state.
package tracker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redtapehq/redtape/kvstore"
)

const (
	inputsSuffix  = ":inputs"
	outputsSuffix = ":outputs"
)

// Func is the call signature of an operation the tracker can wrap. Arguments
// and results are recorded in their textual form, so any value printable
// with %v works.
type Func func(ctx context.Context, args ...any) (any, error)

// CountCalls wraps fn so every invocation atomically increments the counter
// stored under name before delegating. Backend errors abort the call and
// propagate.
func CountCalls(kv kvstore.Store, name string, fn Func) Func {
	return func(ctx context.Context, args ...any) (any, error) {
		if _, err := kv.Incr(ctx, name); err != nil {
			return nil, err
		}
		return fn(ctx, args...)
	}
}

// CallHistory wraps fn so every invocation appends the rendered arguments to
// the input log and, after fn returns, the rendered result to the output
// log. The two appends are not atomic as a pair: a concurrent reader may
// observe a trailing input with no matching output yet, and a failed call
// leaves its input logged with no output at all.
func CallHistory(kv kvstore.Store, name string, fn Func) Func {
	return func(ctx context.Context, args ...any) (any, error) {
		if err := kv.RPush(ctx, name+inputsSuffix, []byte(formatArgs(args))); err != nil {
			return nil, err
		}
		out, err := fn(ctx, args...)
		if err != nil {
			return nil, err
		}
		if err := kv.RPush(ctx, name+outputsSuffix, []byte(formatValue(out))); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// Tracked is an instrumented operation: a wrapped Func plus the backend
// handle and logical name its counter and history logs live under.
type Tracked struct {
	Name string
	KV   kvstore.Store

	wrapped Func
}

// New instruments fn under the given logical name, counting innermost so the
// counter increments before the business logic runs, history outermost so
// the recorded call surrounds the counter side effect.
func New(kv kvstore.Store, name string, fn Func) *Tracked {
	return &Tracked{
		Name:    name,
		KV:      kv,
		wrapped: CallHistory(kv, name, CountCalls(kv, name, fn)),
	}
}

// Handle returns a read-only Tracked for an operation recorded elsewhere,
// suitable for Count, History, and Replay. Invoking it fails.
func Handle(kv kvstore.Store, name string) *Tracked {
	return &Tracked{Name: name, KV: kv}
}

func (t *Tracked) Invoke(ctx context.Context, args ...any) (any, error) {
	if t.wrapped == nil {
		return nil, fmt.Errorf("tracker: handle for %q is not invokable", t.Name)
	}
	trackedCalls.WithLabelValues(t.Name).Inc()
	return t.wrapped(ctx, args...)
}

// Count reads the invocation counter, 0 when the operation has never run.
func (t *Tracked) Count(ctx context.Context) (int64, error) {
	ok, err := t.KV.Exists(ctx, t.Name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	raw, err := t.KV.Get(ctx, t.Name)
	if err == kvstore.ErrNotFound {
		// expired between the two reads
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("tracker: counter for %q is not an integer: %w", t.Name, err)
	}
	return n, nil
}

// Record is one aligned input/output pair from an operation's history.
type Record struct {
	Input  string
	Output string
}

// History returns the aligned input/output pairs in call order. A trailing
// input with no matching output (concurrent caller mid-flight, or a call
// that failed) is ignored.
func (t *Tracked) History(ctx context.Context) ([]Record, error) {
	inputs, err := t.KV.LRange(ctx, t.Name+inputsSuffix, 0, -1)
	if err != nil {
		return nil, err
	}
	outputs, err := t.KV.LRange(ctx, t.Name+outputsSuffix, 0, -1)
	if err != nil {
		return nil, err
	}
	n := len(inputs)
	if len(outputs) < n {
		n = len(outputs)
	}
	recs := make([]Record, n)
	for i := 0; i < n; i++ {
		recs[i] = Record{Input: string(inputs[i]), Output: string(outputs[i])}
	}
	return recs, nil
}

// formatArgs renders an argument list as a tuple, e.g. (1, 2).
func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatValue(a)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatValue(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}
