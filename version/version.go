// Package version holds the language version bookkeeping that the
// original implementation keeps on a global "configuration" object (spec §4.K, design note "Global configuration coupling").
//
// Version strings are normalized semver ("3.4" -> "v3.4.0") and compared
// with golang.org/x/mod/semver so required_version gating (spec §4.E) and
// the @version pragma (spec §4.I step 4) share one comparison rule.
package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Normalize turns a config-style "MAJ.MIN" string into a semver string
// ("v3.4.0") suitable for semver.Compare. Returns "" if maj.min isn't
// well-formed.
func Normalize(majMin string) string {
	majMin = strings.TrimSpace(majMin)
	if majMin == "" {
		return ""
	}
	v := "v" + majMin
	parts := strings.Count(majMin, ".")
	if parts == 1 {
		v += ".0"
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// Compare compares two "MAJ.MIN"-style version strings the way
// semver.Compare does: -1, 0, or 1.
func Compare(a, b string) int {
	return semver.Compare(Normalize(a), Normalize(b))
}

// DefaultLegacy is committed when a configuration has no @version pragma
// at all, matching the original's VERSION_VALUE_2_1 fallback.
const DefaultLegacy = "2.1"

// Store is the interface LexerEngine depends on for version bookkeeping,
// so it can be constructed against a fake in tests rather than coupling
// to a global (design note "Global configuration coupling").
type Store interface {
	Version() (string, bool)
	SetVersion(v string)
	ParsedVersion() (string, bool)
	SetParsedVersion(v string)
}

// Config is the default Store implementation; there is no package-level
// instance. It carries no lock: spec §5 guarantees only one lexer
// compilation runs per process at a time, and all reads/writes happen on
// that lexer's owning goroutine.
type Config struct {
	version       string
	versionSet    bool
	parsedVersion string
	parsedSet     bool
}

// New returns a fresh, unset Config. Each lexer.Engine creates its own
// unless one is shared with lexer.WithVersionStore.
func New() *Config {
	return &Config{}
}

func (c *Config) Version() (string, bool) {
	return c.version, c.versionSet
}

func (c *Config) SetVersion(v string) {
	c.version = v
	c.versionSet = true
}

func (c *Config) ParsedVersion() (string, bool) {
	return c.parsedVersion, c.parsedSet
}

func (c *Config) SetParsedVersion(v string) {
	c.parsedVersion = v
	c.parsedSet = true
}

// String renders a "MAJ.MIN" version for diagnostics, or "unset".
func String(v string, ok bool) string {
	if !ok {
		return "unset"
	}
	return v
}
