// Package keyword implements keyword resolution against the active
// context stack: dash/underscore-tolerant matching, required_version
// gating, and obsolescence warnings (spec §4.E).
package keyword

import (
	"io"
	"log/slog"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/relaydlog/cfglex/lexcontext"
	"github.com/relaydlog/cfglex/token"
	"github.com/relaydlog/cfglex/version"
)

// Result is what Resolve returns: either a Keyword token (ID set) or a
// plain Identifier (Text set).
type Result struct {
	Token token.Token
	// Suggestion, when non-empty, is a "did you mean" candidate computed
	// against the keyword names visible in the walked frames — purely a
	// diagnostic enrichment, never changes classification.
	Suggestion string
}

// Resolver walks a context stack to classify candidate identifier text.
type Resolver struct {
	versions version.Store
	log      *slog.Logger
}

// New creates a Resolver. log may be nil, in which case diagnostics are
// discarded (useful in unit tests that only care about the returned
// token).
func New(versions version.Store, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{versions: versions, log: log}
}

// Resolve classifies text against stack, per spec §4.E: walk top-down,
// dash/underscore-insensitive match, CFG_KEYWORD_STOP aborts the whole
// walk, required_version gates acceptance, obsolete status warns once
// then flips to Normal.
func (r *Resolver) Resolve(stack *lexcontext.Stack, text string, loc token.Location) Result {
	var (
		matchedTable lexcontext.KeywordTable
		matchedName  string
		matched      lexcontext.Keyword
		found        bool
		candidates   []string
	)

	stack.WalkTop(func(keywords lexcontext.KeywordTable) bool {
		if keywords == nil {
			return false
		}
		for name := range keywords {
			candidates = append(candidates, name)
		}
		if _, stop := keywords[lexcontext.StopSentinel]; stop {
			return true
		}
		for name, kw := range keywords {
			if name == lexcontext.StopSentinel {
				continue
			}
			if dashUnderscoreEqual(text, name) {
				matchedTable, matchedName, matched, found = keywords, name, kw, true
				return true
			}
		}
		return false
	})

	if !found {
		return Result{
			Token:      token.Token{Kind: token.Identifier, Text: text, Location: loc},
			Suggestion: bestSuggestion(text, candidates),
		}
	}

	if current, ok := r.versions.Version(); ok && matched.RequiredVersion != "" {
		if version.Compare(current, matched.RequiredVersion) < 0 {
			r.log.Warn("configuration uses a newly introduced reserved word as identifier; use a different name or enclose it in quotes",
				"keyword", matchedName,
				"config-version", current,
				"required-version", matched.RequiredVersion,
				"file", loc.File,
				"line", loc.FirstLine,
				"column", loc.FirstCol,
			)
			return Result{Token: token.Token{Kind: token.Identifier, Text: text, Location: loc}}
		}
	}

	if matched.Status == lexcontext.Obsolete {
		r.log.Warn("configuration file uses an obsoleted keyword, please update your configuration",
			"keyword", matchedName,
			"change", matched.Explain,
		)
		matched.Status = lexcontext.Normal
		matchedTable[matchedName] = matched
	}

	return Result{Token: token.Token{Kind: token.Keyword, ID: matched.ID, Text: matchedName, Location: loc}}
}

// dashUnderscoreEqual implements the original's asymmetric equivalence:
// the candidate (input) may use '-' or '_' where the table entry (kwName)
// must use '_'.
func dashUnderscoreEqual(input, kwName string) bool {
	if len(input) != len(kwName) {
		return false
	}
	for i := 0; i < len(input); i++ {
		ic, kc := input[i], kwName[i]
		if ic == '-' || ic == '_' {
			if kc != '_' {
				return false
			}
			continue
		}
		if ic != kc {
			return false
		}
	}
	return true
}

// bestSuggestion returns the closest candidate to text by Levenshtein
// distance, or "" if nothing is reasonably close.
func bestSuggestion(text string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	best := ""
	bestDist := -1
	for _, c := range candidates {
		d := fuzzy.LevenshteinDistance(text, c)
		if bestDist == -1 || d < bestDist {
			bestDist = d
			best = c
		}
	}
	// Only suggest when the edit is plausibly a typo, not an unrelated word.
	if bestDist > 0 && bestDist <= 2 {
		return best
	}
	return ""
}
