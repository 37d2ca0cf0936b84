// Package highlight marks search hits in terminal-rendered text without
// touching ANSI escape sequences.
package highlight

import (
	"regexp"
	"strings"
)

var ansiCSI = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)

type Result struct {
	Text      string
	Count     int
	LineIndex []int
}

type Highlighter struct {
	pattern *regexp.Regexp
	wrap    func(string) string
}

// New returns nil for a blank query. Matching is literal and
// case-insensitive.
func New(query string, wrap func(string) string) *Highlighter {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if wrap == nil {
		wrap = func(s string) string { return s }
	}
	return &Highlighter{
		pattern: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(query)),
		wrap:    wrap,
	}
}

// Apply wraps every hit. A match never spans an escape sequence or a line
// break. A nil Highlighter returns the input unchanged.
func (h *Highlighter) Apply(input string) Result {
	if h == nil {
		return Result{Text: input}
	}

	lines := strings.Split(input, "\n")
	res := Result{LineIndex: make([]int, 0, 16)}
	for i, line := range lines {
		out, n := h.applyLine(line)
		lines[i] = out
		if n > 0 {
			res.Count += n
			res.LineIndex = append(res.LineIndex, i)
		}
	}
	res.Text = strings.Join(lines, "\n")
	return res
}

func (h *Highlighter) applyLine(line string) (string, int) {
	escapes := ansiCSI.FindAllStringIndex(line, -1)
	if len(escapes) == 0 {
		return h.applyPlain(line)
	}

	var b strings.Builder
	total, pos := 0, 0
	for _, esc := range escapes {
		out, n := h.applyPlain(line[pos:esc[0]])
		b.WriteString(out)
		b.WriteString(line[esc[0]:esc[1]])
		total += n
		pos = esc[1]
	}
	out, n := h.applyPlain(line[pos:])
	b.WriteString(out)
	return b.String(), total + n
}

func (h *Highlighter) applyPlain(s string) (string, int) {
	if s == "" {
		return s, 0
	}
	count := 0
	out := h.pattern.ReplaceAllStringFunc(s, func(hit string) string {
		count++
		return h.wrap(hit)
	})
	return out, count
}
