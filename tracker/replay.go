package tracker

import (
	"context"
	"fmt"
	"io"
)

// Replay writes an operation's full invocation history to w: a header line
// with the call count, then one line per aligned input/output pair in call
// order, in the form
//
//	<name>(*<input>) -> <output>
//
// Replay is a diagnostic. A nil or unbound handle (no backend, or no name)
// writes nothing and returns nil rather than erroring. Backend read failures
// do surface.
func Replay(ctx context.Context, w io.Writer, t *Tracked) error {
	if t == nil || t.KV == nil || t.Name == "" {
		return nil
	}
	replaysServed.Inc()
	count, err := t.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s was called %d times:\n", t.Name, count)
	recs, err := t.History(ctx)
	if err != nil {
		return err
	}
	for _, r := range recs {
		fmt.Fprintf(w, "%s(*%s) -> %s\n", t.Name, r.Input, r.Output)
	}
	return nil
}
