// Package invariant implements cfglex's two recurring contract checks:
// tokenblock's Writing/Reading state-machine preconditions
// (tokenblock.Block.Add refusing to accept a token once draining has
// started) and the lexer engine's single-owner-goroutine invariant
// (lexer.Engine.checkOwner). A violation of either means cfglex's own
// bookkeeping is wrong, not that an operator wrote a bad config file,
// so both panic rather than return an error.
package invariant

import (
	"fmt"
	"runtime"
)

// Precondition checks a contract at the entry to a state transition,
// such as a tokenblock refusing Add once it has moved past writing.
func Precondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Invariant checks a fact that must hold for a component's entire
// lifetime, such as a lexer engine never being driven from more than
// one goroutine.
func Invariant(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// fail panics with the violated condition's call site. A single
// runtime.Caller lookup is enough here: cfglex never wraps
// Precondition/Invariant behind another helper, so the violation is
// always two frames up from fail itself.
func fail(kind, format string, args ...interface{}) {
	msg := fmt.Sprintf("%s VIOLATION: "+format, append([]interface{}{kind}, args...)...)
	if _, file, line, ok := runtime.Caller(2); ok {
		msg += fmt.Sprintf("\n  at %s:%d", file, line)
	}
	panic(msg)
}
