// Package backtick implements argument substitution of `` `name` ``
// references against layered scopes and the process environment
// (spec §4.F).
package backtick

import (
	"os"
	"runtime"
	"strings"

	"github.com/relaydlog/cfglex/argscope"
	"github.com/relaydlog/cfglex/cfgerrors"
)

// Scopes bundles the three layered lookup scopes; any may be nil.
// Resolution order is args -> defs -> globals -> process environment.
type Scopes struct {
	Globals *argscope.Scope
	Defs    *argscope.Scope
	Args    *argscope.Scope
}

func (s Scopes) lookup(name string) (string, bool) {
	if s.Args != nil {
		if v, ok := s.Args.Get(name); ok {
			return v, true
		}
	}
	if s.Defs != nil {
		if v, ok := s.Defs.Get(name); ok {
			return v, true
		}
	}
	if s.Globals != nil {
		if v, ok := s.Globals.Get(name); ok {
			return v, true
		}
	}
	if v, ok := os.LookupEnv(name); ok {
		if runtime.GOOS == "windows" {
			v = escapeWindowsPath(v)
		}
		return v, true
	}
	// Open question (spec §9): no match anywhere yields an empty
	// expansion with no diagnostic. Preserved intentionally.
	return "", false
}

// Substitute expands every `` `name` `` reference in raw using scopes.
// An empty reference (` `` `) emits a literal backtick. A trailing
// unmatched backtick returns UnterminatedBacktick.
func Substitute(scopes Scopes, raw string) (string, error) {
	var out strings.Builder
	out.Grow(len(raw))

	inRef := false
	refStart := 0

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case !inRef && c == '`':
			inRef = true
			refStart = i + 1
		case inRef && c == '`':
			inRef = false
			if refStart == i {
				out.WriteByte('`')
			} else {
				name := raw[refStart:i]
				if v, ok := scopes.lookup(name); ok {
					out.WriteString(v)
				}
			}
		case !inRef:
			out.WriteByte(c)
		}
	}

	if inRef {
		return "", cfgerrors.New(cfgerrors.KindUnterminatedBacktick, "unterminated backtick reference")
	}
	return out.String(), nil
}

// escapeWindowsPath escapes a value sourced from the process environment
// so it is safe to splice into a configuration file on a platform whose
// paths require shell-unsafe-character escaping. Backslashes are doubled,
// matching the original's escape_windows_path behavior for UNC/drive
// paths embedded in generated config text.
func escapeWindowsPath(v string) string {
	return strings.ReplaceAll(v, `\`, `\\`)
}
