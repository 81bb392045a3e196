// backtrace.go parses raw stack frames and provides the default filter chain.

package hoptoad

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"github.com/samber/lo"
)

// Placeholders written by the default filters.
const (
	ProjectRootPlaceholder = "[PROJECT_ROOT]"
	LibraryRootPlaceholder = "[GEM_ROOT]"
)

// notifierPathSegment marks frames that belong to this library.
const notifierPathSegment = "/pkg/hoptoad/"

// BacktraceFilter rewrites one raw frame. Returning false drops the frame.
type BacktraceFilter func(line string) (string, bool)

// Line is one parsed backtrace frame. Number is kept as text.
type Line struct {
	File   string
	Number string
	Method string
}

// String renders the frame in the same shape ParseLine accepts:
// "file:number" or "file:number:in `method'". There is no space before
// "in", unlike the older ": in `method'" rendering, so parse then render
// returns the raw frame text unchanged.
func (l Line) String() string {
	s := l.File + ":" + l.Number
	if l.Method != "" {
		s += ":in `" + l.Method + "'"
	}
	return s
}

var backtraceLine = regexp.MustCompile("^([^:]+):(\\d+)(?::in `([^']+)')?$")

// ParseLine parses "file:number" or "file:number:in `method'".
// A line that does not match yields an empty Line.
func ParseLine(raw string) Line {
	m := backtraceLine.FindStringSubmatch(raw)
	if m == nil {
		return Line{}
	}
	return Line{File: m[1], Number: m[2], Method: m[3]}
}

// ParseBacktrace runs every raw frame through filters in order and parses
// the survivors. Order of surviving frames is preserved.
func ParseBacktrace(raw []string, filters []BacktraceFilter) []Line {
	lines := lo.FilterMap(raw, func(line string, _ int) (Line, bool) {
		for _, filter := range filters {
			var keep bool
			if line, keep = filter(line); !keep {
				return Line{}, false
			}
		}
		return ParseLine(line), true
	})
	if lines == nil {
		return []Line{}
	}
	return lines
}

// DefaultBacktraceFilters returns the default chain: project root rewrite,
// library root rewrite, removal of this library's own frames, "./" stripping.
func DefaultBacktraceFilters(projectRoot string, libraryRoots ...string) []BacktraceFilter {
	return []BacktraceFilter{
		ProjectRootFilter(projectRoot),
		LibraryRootFilter(libraryRoots...),
		NotifierFilter(),
		DotSlashFilter(),
	}
}

// ProjectRootFilter rewrites paths under root to [PROJECT_ROOT]/<relative>.
// An empty root leaves lines untouched.
func ProjectRootFilter(root string) BacktraceFilter {
	root = strings.TrimSuffix(root, "/")
	return func(line string) (string, bool) {
		if root == "" {
			return line, true
		}
		return replaceRoot(line, root, ProjectRootPlaceholder), true
	}
}

// LibraryRootFilter rewrites paths under any of roots to [GEM_ROOT]/<relative>.
func LibraryRootFilter(roots ...string) BacktraceFilter {
	roots = lo.FilterMap(roots, func(r string, _ int) (string, bool) {
		r = strings.TrimSuffix(r, "/")
		return r, r != ""
	})
	return func(line string) (string, bool) {
		for _, root := range roots {
			if rewritten := replaceRoot(line, root, LibraryRootPlaceholder); rewritten != line {
				return rewritten, true
			}
		}
		return line, true
	}
}

// NotifierFilter drops frames from this library's sources. Test files of
// the library are caller code and are kept.
func NotifierFilter() BacktraceFilter {
	return func(line string) (string, bool) {
		if strings.Contains(line, notifierPathSegment) && !strings.Contains(line, "_test.go:") {
			return "", false
		}
		return line, true
	}
}

// DotSlashFilter strips a leading "./".
func DotSlashFilter() BacktraceFilter {
	return func(line string) (string, bool) {
		return strings.TrimPrefix(line, "./"), true
	}
}

func replaceRoot(line, root, placeholder string) string {
	if strings.HasPrefix(line, root+"/") {
		return placeholder + line[len(root):]
	}
	return line
}

// captureBacktrace formats the calling goroutine's stack as raw frames,
// skipping skip frames above the caller of captureBacktrace.
func captureBacktrace(skip int) []string {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var raw []string
	for {
		frame, more := frames.Next()
		if frame.File != "" {
			raw = append(raw, fmt.Sprintf("%s:%d:in `%s'", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}
	return raw
}
