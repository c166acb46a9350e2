// Package blockregistry implements the (context, name)-keyed registry of
// block generators (spec §4.G), following the database/sql-style
// registration pattern used elsewhere in the corpus, but preserving
// registration order for first-match-wins lookup.
package blockregistry

import (
	"log/slog"

	"github.com/relaydlog/cfglex/lexcontext"
)

// Generator produces a synthetic include buffer for a block reference.
// lexer is an opaque, non-owning handle back to the calling engine
// (design note: avoid cyclic ownership — the registry owns generator
// records and their Data via Dtor; generators never own the lexer).
type Generator func(lexer interface{}, context lexcontext.Kind, name string, args interface{}, data interface{}) error

// Entry is one registered generator and its opaque data.
type Entry struct {
	Context   lexcontext.Kind
	Name      string
	Fn        Generator
	Data      interface{}
	Dtor      func(data interface{})
}

// Registry holds registered generators. Uniqueness is enforced per
// (effective context, name), where context Root (0) is the "any context"
// wildcard and collides with every concrete context during lookup.
type Registry struct {
	entries []Entry
	log     *slog.Logger
}

// New creates an empty Registry. log may be nil to discard diagnostics.
func New(log *slog.Logger) *Registry {
	return &Registry{log: log}
}

func (r *Registry) debugf(msg string, args ...any) {
	if r.log != nil {
		r.log.Debug(msg, args...)
	}
}

// indexOf returns the slice index of an existing entry whose effective
// context collides with (context, name), or -1.
func (r *Registry) indexOf(context lexcontext.Kind, name string) int {
	for i, e := range r.entries {
		if e.Name != name {
			continue
		}
		if e.Context == lexcontext.Root || context == lexcontext.Root || e.Context == context {
			return i
		}
	}
	return -1
}

// Register adds a generator. If an entry already collides on
// (effective context, name), this is a silent no-op: data's destructor
// (if any) runs on the *new* data being discarded, and a debug line is
// logged — the existing registration wins (spec §4.G).
func (r *Registry) Register(context lexcontext.Kind, name string, fn Generator, data interface{}, dtor func(interface{})) {
	if idx := r.indexOf(context, name); idx >= 0 {
		r.debugf("attempted to register the same generator multiple times, ignoring",
			"context", lexcontext.LookupName(context), "name", name)
		if dtor != nil {
			dtor(data)
		}
		return
	}
	r.entries = append(r.entries, Entry{Context: context, Name: name, Fn: fn, Data: data, Dtor: dtor})
}

// Find returns the first registered entry matching name in context,
// considering Root (0) entries as wildcards, in registration order.
func (r *Registry) Find(context lexcontext.Kind, name string) (Entry, bool) {
	for _, e := range r.entries {
		if e.Name != name {
			continue
		}
		if e.Context == lexcontext.Root || e.Context == context {
			return e, true
		}
	}
	return Entry{}, false
}

// Close runs every entry's destructor over its data, in registration
// order, and clears the registry. Generators live until the registry
// (and thus the owning lexer) is freed.
func (r *Registry) Close() {
	for _, e := range r.entries {
		if e.Dtor != nil {
			e.Dtor(e.Data)
		}
	}
	r.entries = nil
}
