// Package argscope implements the normalized name→value scope used to
// resolve backtick references and block call arguments (spec §4.A).
package argscope

import (
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/relaydlog/cfglex/cfgerrors"
)

// Scope is a mapping from normalized argument name to an owned string
// value. Normalization treats '-' and '_' as equivalent and is otherwise
// case-sensitive. Scopes have no parent pointer — callers chain them at
// use-site (globals, defs, args) rather than nesting them internally.
type Scope struct {
	values map[string]string
	// schema, when non-nil, additionally constrains the shape of values
	// accepted by Validate (opt-in; spec's presence-only check still
	// applies when schema is nil).
	schema *jsonschema.Schema
}

// New creates an empty scope.
func New() *Scope {
	return &Scope{values: make(map[string]string)}
}

// WithSchema attaches a compiled JSON Schema used by Validate to check
// value shape in addition to key presence.
func (s *Scope) WithSchema(schema *jsonschema.Schema) *Scope {
	s.schema = schema
	return s
}

func normalize(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// Set stores value under the normalized form of name.
func (s *Scope) Set(name, value string) {
	s.values[normalize(name)] = value
}

// Get looks up name as-is first, then its normalized form.
func (s *Scope) Get(name string) (string, bool) {
	if v, ok := s.values[name]; ok {
		return v, true
	}
	v, ok := s.values[normalize(name)]
	return v, ok
}

// Foreach calls fn for every stored key/value pair. Iteration order is
// unspecified (matches the original's hash-table-backed CfgArgs).
func (s *Scope) Foreach(fn func(key, value string)) {
	for k, v := range s.values {
		fn(k, v)
	}
}

// Keys returns the stored keys in sorted order, useful for deterministic
// tests and for __VARARGS__ construction.
func (s *Scope) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len reports how many entries are stored.
func (s *Scope) Len() int {
	return len(s.values)
}

// Validate reports the first key in s that is not present in defs (when
// defs is non-nil) as an UnknownArgument error naming context, the
// offending key, and its value. When s carries a schema, each value is
// additionally checked against it and the first schema violation is
// reported the same way.
func (s *Scope) Validate(defs *Scope, context string) error {
	for _, key := range s.Keys() {
		value := s.values[key]
		if defs != nil {
			if _, ok := defs.Get(key); !ok {
				return cfgerrors.New(cfgerrors.KindUnknownArgument, "unknown argument").
					WithTag("context", context).
					WithTag("arg", key).
					WithTag("value", value)
			}
		}
		if s.schema != nil {
			if err := s.schema.Validate(map[string]interface{}{key: value}); err != nil {
				return cfgerrors.Wrap(cfgerrors.KindUnknownArgument, fmt.Sprintf("argument %q failed schema validation", key), err).
					WithTag("context", context).
					WithTag("arg", key).
					WithTag("value", value)
			}
		}
	}
	return nil
}
