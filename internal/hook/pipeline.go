package hook

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Func is a hook callback.
//
// For Collect invocations args are the caller's arguments. For Fold
// invocations the current accumulator is prepended: the callback
// receives (acc, args...) and its return value replaces the
// accumulator.
type Func func(ctx context.Context, args ...any) (any, error)

// subscription pairs a callback with its origin and insertion sequence.
type subscription struct {
	fn     Func
	origin string
	seq    int
}

// Pipeline maps hook names to ordered callback lists.
type Pipeline struct {
	mu   sync.RWMutex
	subs map[string][]subscription
	seq  int

	log zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used to report callback failures.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.log = log
	}
}

// NewPipeline creates an empty pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		subs: make(map[string][]subscription),
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subscribe appends fn to the hook's callback list, tagged with the
// plugin origin. Subscription order is invocation order and is stable
// for the process lifetime.
func (p *Pipeline) Subscribe(hook string, fn Func, origin string) {
	if fn == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	p.subs[hook] = append(p.subs[hook], subscription{fn: fn, origin: origin, seq: p.seq})
}

// Collect invokes every callback subscribed to the hook with args and
// returns their results in subscription order. Failing callbacks are
// omitted from the result without affecting their neighbors.
func (p *Pipeline) Collect(ctx context.Context, hook string, args ...any) []any {
	subs := p.snapshot(hook)
	if len(subs) == 0 {
		return nil
	}

	results := make([]any, 0, len(subs))
	for _, sub := range subs {
		out, err := p.invoke(ctx, hook, sub, args)
		if err != nil {
			continue
		}
		results = append(results, out)
	}
	return results
}

// Fold invokes the hook's callbacks sequentially, threading an
// accumulator seeded with seed. Each callback receives the current
// accumulator followed by args; its return value becomes the new
// accumulator. A failing callback leaves the accumulator unchanged at
// that step.
func (p *Pipeline) Fold(ctx context.Context, hook string, seed any, args ...any) any {
	acc := seed
	for _, sub := range p.snapshot(hook) {
		callArgs := make([]any, 0, len(args)+1)
		callArgs = append(callArgs, acc)
		callArgs = append(callArgs, args...)

		out, err := p.invoke(ctx, hook, sub, callArgs)
		if err != nil {
			continue
		}
		acc = out
	}
	return acc
}

// Subscribers returns the number of callbacks subscribed to the hook.
func (p *Pipeline) Subscribers(hook string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs[hook])
}

// Hooks returns the names of all hooks with at least one subscriber.
func (p *Pipeline) Hooks() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.subs))
	for name, subs := range p.subs {
		if len(subs) > 0 {
			names = append(names, name)
		}
	}
	return names
}

// DropOrigin removes every subscription tagged with the origin.
//
// Plugins are additive for the process lifetime; this exists only so
// the registry can replace a plugin's contributions on idempotent
// re-registration under the same name.
func (p *Pipeline) DropOrigin(origin string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name, subs := range p.subs {
		kept := subs[:0]
		for _, sub := range subs {
			if sub.origin != origin {
				kept = append(kept, sub)
			}
		}
		if len(kept) == 0 {
			delete(p.subs, name)
			continue
		}
		p.subs[name] = kept
	}
}

// snapshot returns a copy of the hook's subscription list so callbacks
// run without holding the pipeline lock.
func (p *Pipeline) snapshot(hook string) []subscription {
	p.mu.RLock()
	defer p.mu.RUnlock()

	subs := p.subs[hook]
	if len(subs) == 0 {
		return nil
	}
	out := make([]subscription, len(subs))
	copy(out, subs)
	return out
}

// invoke runs a single callback with panic recovery. Panics are
// converted to errors so one bad subscriber cannot take down a save or
// render.
func (p *Pipeline) invoke(ctx context.Context, hook string, sub subscription, args []any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook callback panic: %v", r)
			p.logFailure(hook, sub.origin, err)
		}
	}()

	out, err = sub.fn(ctx, args...)
	if err != nil {
		p.logFailure(hook, sub.origin, err)
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) logFailure(hook, origin string, err error) {
	p.log.Warn().
		Str("hook", hook).
		Str("plugin", origin).
		Err(err).
		Msg("hook callback failed; contribution skipped")
}
