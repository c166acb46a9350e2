// Package include implements the bounded LIFO of input sources (file or
// buffer) with source-location tracking that backs nested `include` and
// block expansion (spec §4.D).
package include

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/relaydlog/cfglex/cfgerrors"
	"github.com/relaydlog/cfglex/token"
)

// MaxDepth bounds include nesting, matching the original's
// MAX_INCLUDE_DEPTH recommendation.
const MaxDepth = 16

// DirSuffixGlob is the pattern used to select files when an include
// target is a directory (spec §4.D "directory include enumeration"),
// matched with doublestar against each file's path relative to that
// directory. It is a package constant, not configurable at run time, and
// as "*.conf" it matches only files directly in the directory.
const DirSuffixGlob = "*.conf"

type kind int

const (
	kindFile kind = iota
	kindBuffer
)

// Level is one frame of the active input stack. Regardless of Kind, the
// scanner reads from Content, which is always double-NUL terminated to
// satisfy the tokenizer's scan-buffer contract (spec §3, design note on
// double-NUL termination). File levels additionally retain the list of
// physically opened paths for diagnostics/cleanup bookkeeping, and Buffer
// levels own their expanded content bytes.
type Level struct {
	kind    kind
	Name    string
	Content []byte
	Files   []string // File levels: every path that contributed content

	Loc token.Location // mutable cursor the scanner updates in place
}

// doubleNulTerminate appends the two NUL bytes the scan-buffer contract
// requires.
func doubleNulTerminate(content []byte) []byte {
	out := make([]byte, len(content)+2)
	copy(out, content)
	return out
}

// Stack is the bounded LIFO of Levels.
type Stack struct {
	levels []*Level
}

// New returns an empty Stack.
func New() *Stack {
	return &Stack{}
}

// Depth reports the number of active levels.
func (s *Stack) Depth() int {
	return len(s.levels)
}

// Top returns the current (innermost) level, or nil if the stack is
// empty.
func (s *Stack) Top() *Level {
	if len(s.levels) == 0 {
		return nil
	}
	return s.levels[len(s.levels)-1]
}

// CurrentLocation returns the mutable location of the current level, for
// the scanner to update as it advances. Returns nil if the stack is
// empty.
func (s *Stack) CurrentLocation() *token.Location {
	top := s.Top()
	if top == nil {
		return nil
	}
	return &top.Loc
}

func (s *Stack) push(level *Level) error {
	if len(s.levels) >= MaxDepth {
		return cfgerrors.New(cfgerrors.KindIncludeTooDeep, "include depth exceeds maximum").
			WithTag("max_depth", MaxDepth)
	}
	level.Loc = token.Location{File: level.Name, FirstLine: 1, FirstCol: 1, LastLine: 1, LastCol: 1, IncludeLevel: len(s.levels)}
	s.levels = append(s.levels, level)
	return nil
}

// PushFile opens path (or, if path is a directory, every regular file
// under it matching DirSuffixGlob in sorted order) and pushes one
// composite Level over their concatenated contents. Fails with
// IncludeTooDeep or IncludeOpenFailed.
func (s *Stack) PushFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return cfgerrors.Wrap(cfgerrors.KindIncludeOpenFailed, "cannot stat include path", err).
			WithTag("path", path)
	}

	var files []string
	if info.IsDir() {
		files, err = matchingFiles(path, DirSuffixGlob)
		if err != nil {
			return cfgerrors.Wrap(cfgerrors.KindIncludeOpenFailed, "cannot enumerate include directory", err).
				WithTag("path", path)
		}
	} else {
		files = []string{path}
	}

	var content []byte
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return cfgerrors.Wrap(cfgerrors.KindIncludeOpenFailed, "cannot open include file", err).
				WithTag("path", f)
		}
		content = append(content, b...)
		if len(b) > 0 && b[len(b)-1] != '\n' {
			content = append(content, '\n')
		}
	}

	return s.push(&Level{
		kind:    kindFile,
		Name:    path,
		Content: doubleNulTerminate(content),
		Files:   files,
	})
}

// matchingFiles returns the sorted list of regular files directly under
// dir whose name matches glob (a doublestar pattern, so "**/*.conf"
// recurses).
func matchingFiles(dir, glob string) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return relErr
		}
		ok, matchErr := doublestar.Match(glob, rel)
		if matchErr != nil {
			return matchErr
		}
		if ok {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// PushBuffer takes ownership of content (already substituted, not yet
// NUL-terminated) and pushes it as a named in-memory Level.
func (s *Stack) PushBuffer(name string, content []byte) error {
	return s.push(&Level{
		kind:    kindBuffer,
		Name:    name,
		Content: doubleNulTerminate(content),
	})
}

// Pop removes the current level. No-op on an empty stack.
func (s *Stack) Pop() {
	if len(s.levels) == 0 {
		return
	}
	s.levels = s.levels[:len(s.levels)-1]
}
