// Package hierarchy expands a class's extends/implements chains into the
// ancestor methods it still has to implement.
package hierarchy

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"implementor/internal/engine/source"
	"implementor/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Unit is the structural view the walker needs of one source file.
type Unit interface {
	Identifier() string
	Parents() []string
	DeclaredMethods() []source.MethodSignature
	OwnMethods() []source.MethodSignature
}

// Locator loads the unit backing a fully-qualified identifier.
type Locator interface {
	Locate(ctx context.Context, identifier string) (Unit, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context, identifier string) (Unit, error)

func (f LocatorFunc) Locate(ctx context.Context, identifier string) (Unit, error) {
	return f(ctx, identifier)
}

// Entry is one ancestor and the methods it still requires.
type Entry struct {
	Identifier string                   `json:"identifier"`
	Methods    []source.MethodSignature `json:"methods"`
}

// Unresolved records an ancestor that was skipped because it could not be
// located.
type Unresolved struct {
	Identifier string
	Err        error
}

// Result is the outcome of one resolution.
type Result struct {
	Entries    []Entry
	Unresolved []Unresolved
	// Cycles lists references skipped because they were already on the
	// walk path.
	Cycles []string
}

type Walker struct {
	locator Locator
	logger  *slog.Logger
}

type Option func(*Walker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Walker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func NewWalker(locator Locator, opts ...Option) *Walker {
	w := &Walker{locator: locator, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Resolve returns the outstanding ancestor entries of unit in depth-first,
// extends-before-implements, root-to-nearest order.
func (w *Walker) Resolve(ctx context.Context, unit Unit) ([]Entry, error) {
	res, err := w.ResolveDetailed(ctx, unit)
	if err != nil {
		return nil, err
	}
	return res.Entries, nil
}

// ResolveDetailed is Resolve plus the ancestors that were skipped. Only
// context cancellation aborts a walk; locate failures drop their branch.
func (w *Walker) ResolveDetailed(ctx context.Context, unit Unit) (Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "hierarchy.Resolve",
		trace.WithAttributes(attribute.String("identifier", unit.Identifier())))
	defer span.End()
	start := time.Now()

	var res Result
	onPath := make(map[string]bool)
	if id := unit.Identifier(); id != "" {
		onPath[id] = true
	}
	entries, err := w.walk(ctx, unit, onPath, &res)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	res.Entries = entries

	observability.ResolveDuration.Observe(time.Since(start).Seconds())
	observability.OutstandingMethods.Observe(float64(countMethods(entries)))
	span.SetAttributes(
		attribute.Int("entries", len(entries)),
		attribute.Int("unresolved", len(res.Unresolved)),
	)
	return res, nil
}

func (w *Walker) walk(ctx context.Context, unit Unit, onPath map[string]bool, res *Result) ([]Entry, error) {
	var acc []Entry
	for _, id := range unit.Parents() {
		if onPath[id] {
			w.logger.Debug("skipping ancestor already on the walk path", "identifier", id, "from", unit.Identifier())
			observability.HierarchyCycles.Inc()
			res.Cycles = append(res.Cycles, id)
			continue
		}

		ancestor, err := w.locator.Locate(ctx, id)
		if err != nil {
			if isCancellation(err) {
				return nil, err
			}
			w.logger.Debug("ancestor not located", "identifier", id, "error", err)
			observability.AncestorsUnresolved.Inc()
			res.Unresolved = append(res.Unresolved, Unresolved{Identifier: id, Err: err})
			continue
		}

		onPath[id] = true
		inherited, err := w.walk(ctx, ancestor, onPath, res)
		delete(onPath, id)
		if err != nil {
			return nil, err
		}
		acc = append(acc, inherited...)
		acc = append(acc, Entry{Identifier: id, Methods: ancestor.DeclaredMethods()})
	}
	return withoutImplemented(acc, unit.OwnMethods()), nil
}

// withoutImplemented drops every method named in own and then every entry
// left with no methods. PHP method names compare case-insensitively.
func withoutImplemented(entries []Entry, own []source.MethodSignature) []Entry {
	implemented := make(map[string]bool, len(own))
	for _, m := range own {
		implemented[strings.ToLower(m.Name)] = true
	}
	out := entries[:0]
	for _, e := range entries {
		var methods []source.MethodSignature
		for _, m := range e.Methods {
			if !implemented[strings.ToLower(m.Name)] {
				methods = append(methods, m)
			}
		}
		if len(methods) == 0 {
			continue
		}
		out = append(out, Entry{Identifier: e.Identifier, Methods: methods})
	}
	return out
}

// Declarations flattens entries into one method list, keeping the first
// occurrence of each name so diamond hierarchies yield one stub per method.
func Declarations(entries []Entry) []source.MethodSignature {
	seen := make(map[string]bool)
	var out []source.MethodSignature
	for _, e := range entries {
		for _, m := range e.Methods {
			key := strings.ToLower(m.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, m)
		}
	}
	return out
}

func countMethods(entries []Entry) int {
	n := 0
	for _, e := range entries {
		n += len(e.Methods)
	}
	return n
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
