// Package lexer implements the orchestrating engine (spec §4.I): it
// ties the context stack, include stack, token-block injection queue,
// keyword resolver, backtick substitution, and block registry together
// into the single Lex() entry point the grammar parser drives.
package lexer

import (
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/relaydlog/cfglex/argscope"
	"github.com/relaydlog/cfglex/blockregistry"
	"github.com/relaydlog/cfglex/cfgerrors"
	"github.com/relaydlog/cfglex/include"
	"github.com/relaydlog/cfglex/invariant"
	"github.com/relaydlog/cfglex/keyword"
	"github.com/relaydlog/cfglex/lexcontext"
	"github.com/relaydlog/cfglex/scanner"
	"github.com/relaydlog/cfglex/token"
	"github.com/relaydlog/cfglex/tokenblock"
	"github.com/relaydlog/cfglex/userblock"
	"github.com/relaydlog/cfglex/version"
)

// keywordInclude is the identifier text the engine itself recognizes as
// the `include` directive, regardless of whether the embedding grammar's
// keyword table also declares it (spec §4.D). This module does not own
// the overall configuration grammar (non-goal), so "include" is handled
// directly rather than via a caller-supplied KeywordTable entry.
const keywordInclude = "include"

// traceCap bounds how many tokens Trace() retains, so a pathological
// config can't make diagnostics dumps grow without bound.
const traceCap = 4096

// Engine is the lexer's orchestrating state. Construct one with
// NewFromFile or NewFromBuffer per compilation; an Engine is not safe
// for concurrent use (spec §5, single-owner-goroutine invariant).
type Engine struct {
	ctx      *lexcontext.Stack
	includes *include.Stack
	scanners []*scanner.Scanner

	injected []*tokenblock.Block

	globals  *argscope.Scope
	registry *blockregistry.Registry
	keywords *keyword.Resolver
	versions version.Store

	pragmaParser   PragmaParser
	blockRefParser BlockRefParser

	suppress int
	inPragma bool
	preOut   []byte
	callLoc  token.Location

	log   *slog.Logger
	trace []token.Token

	ownerGoroutine int64
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger overrides the engine's diagnostic logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithVersionStore overrides the engine's version bookkeeping, letting
// callers share one version.Config across multiple lexers, or inject a
// fake in tests.
func WithVersionStore(v version.Store) Option {
	return func(e *Engine) { e.versions = v }
}

// WithGlobals seeds the engine's global argument scope (backtick
// resolution's outermost layer, spec §4.F).
func WithGlobals(globals *argscope.Scope) Option {
	return func(e *Engine) { e.globals = globals }
}

// WithPragmaParser overrides the `@` directive sub-parser.
func WithPragmaParser(p PragmaParser) Option {
	return func(e *Engine) { e.pragmaParser = p }
}

// WithBlockRefParser overrides the block-call-argument sub-parser.
func WithBlockRefParser(p BlockRefParser) Option {
	return func(e *Engine) { e.blockRefParser = p }
}

func newEngine(opts ...Option) *Engine {
	e := &Engine{
		ctx:            lexcontext.New(),
		includes:       include.New(),
		globals:        argscope.New(),
		versions:       version.New(),
		pragmaParser:   DefaultPragmaParser{},
		blockRefParser: DefaultBlockRefParser{},
		ownerGoroutine: currentGoroutineID(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	e.keywords = keyword.New(e.versions, e.log)
	e.registry = blockregistry.New(e.log)
	return e
}

// NewFromFile constructs an Engine whose sole input is the file at path.
func NewFromFile(path string, opts ...Option) (*Engine, error) {
	e := newEngine(opts...)
	if err := e.pushFile(path); err != nil {
		return nil, err
	}
	return e, nil
}

// NewFromBuffer constructs an Engine over an in-memory buffer named
// "<string>", matching the original's cfg_lexer_new_buffer. The buffer
// is pushed as-is: backtick references in it are not substituted.
func NewFromBuffer(content []byte, opts ...Option) (*Engine, error) {
	e := newEngine(opts...)
	if err := e.pushBuffer("<string>", content); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) checkOwner() {
	id := currentGoroutineID()
	invariant.Invariant(id == e.ownerGoroutine,
		"lexer.Engine used from goroutine %d, owned by %d", id, e.ownerGoroutine)
}

// currentGoroutineID extracts the calling goroutine's id by parsing the
// "goroutine N [...]" header runtime.Stack always produces first. There is
// no supported runtime accessor for this; parsing the debug stack header is
// the standard workaround, in the same spirit as invariant's own use of
// runtime.Caller for diagnostic context.
func currentGoroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	field := strings.Fields(string(buf[:n]))[1]
	id, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return -1
	}
	return id
}

// RegisterBlockGenerator exposes the block registry to callers that
// want to bind their own generator (spec §4.G); UserBlock callers should
// generally use RegisterUserBlock instead.
func (e *Engine) RegisterBlockGenerator(context lexcontext.Kind, name string, fn blockregistry.Generator, data interface{}, dtor func(interface{})) {
	e.registry.Register(context, name, fn, data, dtor)
}

// RegisterUserBlock registers a parameterized block template (spec
// §4.H) under (context, name), binding the standard UserBlockGenerator.
func (e *Engine) RegisterUserBlock(context lexcontext.Kind, name string, block *userblock.Block) {
	e.registry.Register(context, name, UserBlockGenerator, block, nil)
}

// PushContext pushes a new context frame (spec §4.C); callers besides
// the (unimplemented) grammar parser use this directly in tests.
func (e *Engine) PushContext(kind lexcontext.Kind, keywords lexcontext.KeywordTable, desc string) {
	e.ctx.Push(kind, keywords, desc)
}

// PopContext pops the current context frame.
func (e *Engine) PopContext() {
	e.ctx.Pop()
}

// ContextKind reports the current context's kind.
func (e *Engine) ContextKind() lexcontext.Kind {
	return e.ctx.CurrentKind()
}

// CurrentIncludeLevel reports the depth of the active include stack.
func (e *Engine) CurrentIncludeLevel() int {
	return e.includes.Depth()
}

// PreprocessOutput returns the accumulated, token-order reconstruction
// of everything scanned so far that wasn't suppressed or injected (spec
// §4.I step 5), byte-for-byte including pretext.
func (e *Engine) PreprocessOutput() string {
	return string(e.preOut)
}

// Unput re-injects tok so the next Lex() call returns it before any
// further scanning happens (spec §4.I, "re-lexing"). tok.Injected is
// forced true.
func (e *Engine) Unput(tok token.Token) {
	tok.Injected = true
	blk := tokenblock.New()
	blk.Add(tok)
	e.injected = append([]*tokenblock.Block{blk}, e.injected...)
}

// InjectTokenBlock pushes a fully-built token block to be drained ahead
// of any further scanning.
func (e *Engine) InjectTokenBlock(blk *tokenblock.Block) {
	e.injected = append([]*tokenblock.Block{blk}, e.injected...)
}

func (e *Engine) pushFile(path string) error {
	if err := e.includes.PushFile(path); err != nil {
		return err
	}
	e.scanners = append(e.scanners, scanner.New(e.includes.Top().Content))
	return nil
}

func (e *Engine) pushBuffer(name string, content []byte) error {
	if err := e.includes.PushBuffer(name, content); err != nil {
		return err
	}
	e.scanners = append(e.scanners, scanner.New(e.includes.Top().Content))
	return nil
}

// IncludeFile pushes path as a new include level (spec §4.D).
func (e *Engine) IncludeFile(path string) error {
	return e.pushFile(path)
}

// IncludeBuffer pushes an already-expanded in-memory buffer as a new
// include level, the mechanism block expansion uses to splice its
// generated content into the stream (spec §4.H).
func (e *Engine) IncludeBuffer(name string, content []byte) error {
	return e.pushBuffer(name, content)
}

func (e *Engine) popInclude() {
	e.includes.Pop()
	if len(e.scanners) > 0 {
		e.scanners = e.scanners[:len(e.scanners)-1]
	}
}

func (e *Engine) curScanner() *scanner.Scanner {
	if len(e.scanners) == 0 {
		return nil
	}
	return e.scanners[len(e.scanners)-1]
}

// Trace returns a CBOR-encoded dump of the most recent tokens returned
// by Lex(), for offline diagnostics (spec §4.I [ADDED]).
func (e *Engine) Trace() ([]byte, error) {
	return cbor.Marshal(e.trace)
}

func (e *Engine) recordTrace(tok token.Token) {
	e.trace = append(e.trace, tok)
	if len(e.trace) > traceCap {
		e.trace = e.trace[len(e.trace)-traceCap:]
	}
}

// Lex returns the next token, implementing spec §4.I's full algorithm:
// injected tokens drain first; otherwise the external tokenizer is
// switched into raw-capture mode for BlockContent/BlockArg contexts;
// pragma, include, and block-reference tokens are handled inline and
// re-loop rather than being returned to the caller; version commit
// happens lazily on first non-pragma token; preprocess output
// accumulates each scanned token's pretext and verbatim source text
// while output is not suppressed, and injected tokens never reach it.
func (e *Engine) Lex() (token.Token, error) {
	e.checkOwner()

	for {
		if blk := e.topInjected(); blk != nil {
			tok, ok := blk.Next()
			if !ok {
				e.injected = e.injected[1:]
				continue
			}
			tok.Injected = true
			e.recordTrace(tok)
			return tok, nil
		}

		sc := e.curScanner()
		if sc == nil {
			return token.Token{Kind: token.EOF}, nil
		}

		var (
			raw scanner.RawToken
			err error
		)
		switch e.ctx.CurrentKind() {
		case lexcontext.BlockContent:
			raw, err = sc.NextRaw('{', '}')
		case lexcontext.BlockArg:
			raw, err = sc.NextRaw('(', ')')
		default:
			raw, err = sc.Next()
		}
		if err != nil {
			return token.Token{Kind: token.Error}, err
		}

		if e.suppress == 0 {
			e.preOut = append(e.preOut, raw.Pretext...)
		}

		if raw.Kind == scanner.RawEOF {
			e.popInclude()
			if e.includes.Depth() == 0 {
				e.commitDefaultVersion()
				tok := token.Token{Kind: token.EOF}
				e.recordTrace(tok)
				return tok, nil
			}
			continue
		}

		loc := e.locationFor(raw.Pos)
		tok := e.classify(raw, loc)

		if e.suppress == 0 {
			e.preOut = append(e.preOut, e.includes.Top().Content[raw.Pos.Offset:sc.Position().Offset]...)
		}

		if tok.Kind == token.Pragma {
			e.inPragma = true
			err := e.pragmaParser.Parse(e)
			e.inPragma = false
			if err != nil {
				return token.Token{Kind: token.Error, Location: loc}, err
			}
			continue
		}

		if (tok.Kind == token.Keyword || tok.Kind == token.Identifier) && tok.Text == keywordInclude {
			if err := e.handleInclude(); err != nil {
				return token.Token{Kind: token.Error, Location: loc}, err
			}
			continue
		}

		if tok.Kind == token.Identifier || tok.Kind == token.Keyword {
			if entry, ok := e.registry.Find(e.ctx.CurrentKind(), tok.Text); ok {
				if err := e.expandBlockRef(entry, tok.Text, loc); err != nil {
					return token.Token{Kind: token.Error, Location: loc}, err
				}
				continue
			}
		}

		if !e.inPragma {
			e.commitDefaultVersion()
		}

		e.recordTrace(tok)
		return tok, nil
	}
}

func (e *Engine) topInjected() *tokenblock.Block {
	for len(e.injected) > 0 {
		blk := e.injected[0]
		if blk.Exhausted() && blk.Len() > 0 {
			e.injected = e.injected[1:]
			continue
		}
		return blk
	}
	return nil
}

func (e *Engine) locationFor(pos scanner.Position) token.Location {
	lvl := e.includes.Top()
	loc := token.Location{
		File:         lvl.Name,
		FirstLine:    pos.Line,
		FirstCol:     pos.Col,
		IncludeLevel: e.includes.Depth() - 1,
	}
	if cur := e.curScanner(); cur != nil {
		end := cur.Position()
		loc.LastLine = end.Line
		loc.LastCol = end.Col
	} else {
		loc.LastLine, loc.LastCol = pos.Line, pos.Col
	}
	return loc
}

func (e *Engine) classify(raw scanner.RawToken, loc token.Location) token.Token {
	switch raw.Kind {
	case scanner.RawIdentifier:
		result := e.keywords.Resolve(e.ctx, raw.Text, loc)
		if result.Suggestion != "" {
			e.log.Debug("unresolved identifier resembles a known keyword",
				"identifier", raw.Text, "suggestion", result.Suggestion)
		}
		tok := result.Token
		tok.Pretext = raw.Pretext
		return tok
	case scanner.RawString:
		return token.Token{Kind: token.String, Text: raw.Text, Location: loc, Pretext: raw.Pretext}
	case scanner.RawNumber:
		return token.Token{Kind: token.Number, Text: raw.Text, Location: loc, Pretext: raw.Pretext}
	case scanner.RawAt:
		return token.Token{Kind: token.Pragma, Punct: '@', Location: loc, Pretext: raw.Pretext}
	default: // RawPunct
		return token.Token{Kind: token.Punct, Punct: raw.Punct, Location: loc, Pretext: raw.Pretext}
	}
}

func (e *Engine) commitDefaultVersion() {
	if _, ok := e.versions.Version(); ok {
		return
	}
	if parsed, ok := e.versions.ParsedVersion(); ok {
		e.versions.SetVersion(parsed)
		return
	}
	e.log.Warn("configuration file has no @version line, assuming an older, legacy version",
		"assumed-version", version.DefaultLegacy)
	e.versions.SetVersion(version.DefaultLegacy)
}

// handleInclude implements spec §4.D's directive form:
// `include "path";` or `include path;` (identifier/string), reading its
// own operands via recursive Lex() calls the way the original's grammar
// action does.
func (e *Engine) handleInclude() error {
	e.suppress++
	defer func() { e.suppress-- }()

	pathTok, err := e.Lex()
	if err != nil {
		return err
	}
	if pathTok.Kind != token.String && pathTok.Kind != token.Identifier {
		return cfgerrors.New(cfgerrors.KindIncludeNotAString, "include directive requires a string path").
			WithTag("line", pathTok.Location.FirstLine)
	}

	semi, err := e.Lex()
	if err != nil {
		return err
	}
	if semi.Kind != token.Punct || semi.Punct != ';' {
		return cfgerrors.New(cfgerrors.KindIncludeMissingSemi, "include directive requires a trailing ';'").
			WithTag("line", semi.Location.FirstLine)
	}

	return e.pushFile(pathTok.Text)
}

// expandBlockRef implements spec §4.H/§4.G's dispatch: parse the call's
// arguments and invoke the registered generator with them.
func (e *Engine) expandBlockRef(entry blockregistry.Entry, name string, loc token.Location) error {
	e.suppress++
	defer func() { e.suppress-- }()

	e.callLoc = loc

	pop := e.ctx.Guard(lexcontext.BlockRef, nil, fmt.Sprintf("%s block reference", name))
	args, err := e.blockRefParser.Parse(e)
	pop()
	if err != nil {
		return err
	}

	// Undeclared call arguments are not rejected here: fillVarargs (inside
	// userblock.Block.Expand) is exactly the mechanism that lets them flow
	// through as __VARARGS__ instead. argscope.Scope.Validate exists for
	// callers that want strict rejection instead of vararg pass-through.
	return entry.Fn(e, e.ctx.CurrentKind(), name, args, entry.Data)
}

// UserBlockGenerator is the standard blockregistry.Generator bound when
// registering a *userblock.Block (spec §4.H's "standard generator
// function"). Kept alongside Engine, mirroring the original's
// co-location of cfg_block_generate in the same file as CfgLexer.
func UserBlockGenerator(lexerIface interface{}, context lexcontext.Kind, name string, argsIface interface{}, data interface{}) error {
	e, ok := lexerIface.(*Engine)
	if !ok {
		return cfgerrors.New(cfgerrors.KindBlockExpansionFailed, "block generator invoked with a non-Engine lexer handle")
	}
	args, _ := argsIface.(*argscope.Scope)
	block, ok := data.(*userblock.Block)
	if !ok {
		return cfgerrors.New(cfgerrors.KindBlockExpansionFailed, "user block generator invoked with mismatched data")
	}

	site := userblock.CallSite{
		IncludeLevel: e.callLoc.IncludeLevel,
		Line:         e.callLoc.FirstLine,
		Col:          e.callLoc.FirstCol,
	}
	sourceName, content, err := block.Expand(e.globals, context, name, args, site)
	if err != nil {
		return err
	}
	return e.IncludeBuffer(sourceName, content)
}
