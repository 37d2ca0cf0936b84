package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"querychat/internal/session"
)

const (
	Title          = "How can I help you?"
	SQLQueryLabel  = "SQL Sorgusu:"
	SQLResultLabel = "Sorgu Sonucu:"
)

var ErrEmptyTranscript = errors.New("nothing to export")

type Exporter struct {
	overrideDir string
	cwd         string
}

func New(overrideDir string) (*Exporter, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve cwd: %w", err)
	}
	return &Exporter{overrideDir: strings.TrimSpace(overrideDir), cwd: cwd}, nil
}

// Export writes the transcript as a standalone markdown document. The file is
// never read back by the client.
func (e *Exporter) Export(transcript []session.Message, now time.Time) (string, error) {
	if len(transcript) == 0 {
		return "", ErrEmptyTranscript
	}
	path := e.outputPath(now)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	md := BuildDocument(transcript, now.UTC())
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return path, nil
}

func BuildTranscriptMarkdown(transcript []session.Message) string {
	var b strings.Builder
	for _, m := range transcript {
		switch m.Role {
		case session.RoleUser:
			b.WriteString("## You\n\n")
			b.WriteString(bodyText(m.Text) + "\n\n")
		case session.RoleAssistant:
			if m.IsError {
				b.WriteString("## Assistant (error)\n\n")
				b.WriteString("> " + strings.ReplaceAll(bodyText(m.Text), "\n", "\n> ") + "\n\n")
				continue
			}
			b.WriteString("## Assistant\n\n")
			b.WriteString(bodyText(m.Text) + "\n\n")
			b.WriteString(SQLMarkdown(m))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return ""
	}
	return out + "\n"
}

// SQLMarkdown renders the query and result sections of an assistant entry,
// or nothing when the entry carries no query.
func SQLMarkdown(m session.Message) string {
	if !m.HasSQL() {
		return ""
	}
	var b strings.Builder
	b.WriteString("**" + SQLQueryLabel + "**\n\n")
	b.WriteString(fence("sql", m.SQLQuery))
	b.WriteString("**" + SQLResultLabel + "**\n\n")
	b.WriteString(fence("text", m.SQLResult))
	return b.String()
}

// fence picks a backtick run longer than any inside s.
func fence(lang, s string) string {
	ticks := "```"
	for strings.Contains(s, ticks) {
		ticks += "`"
	}
	return ticks + lang + "\n" + strings.TrimRight(s, "\n") + "\n" + ticks + "\n\n"
}

// bodyText turns free text into markdown that reads back as the same text:
// inline markup is escaped, block markers at line starts are neutralised and
// line breaks are kept as hard breaks.
func bodyText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "_(empty)_"
	}
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, line := range lines {
		line = escapeLineStart(inlineEscaper.Replace(strings.TrimLeft(line, " \t")))
		if i+1 < len(lines) && line != "" && strings.TrimSpace(lines[i+1]) != "" {
			line += "\\"
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

var inlineEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	`*`, `\*`,
	`_`, `\_`,
	`[`, `\[`,
	`]`, `\]`,
	`<`, `\<`,
	`>`, `\>`,
	`|`, `\|`,
	`~`, `\~`,
	`&`, `\&`,
)

var orderedMarker = regexp.MustCompile(`^(\d{1,9})([.)])`)

func escapeLineStart(line string) string {
	if line == "" {
		return line
	}
	switch line[0] {
	case '#', '-', '+', '=':
		return `\` + line
	}
	return orderedMarker.ReplaceAllString(line, `$1\$2`)
}

func BuildDocument(transcript []session.Message, now time.Time) string {
	var b strings.Builder
	b.WriteString("# " + Title + "\n\n")
	b.WriteString("Exported: " + now.Format(time.RFC3339) + "\n\n")
	b.WriteString(fmt.Sprintf("```text\nmessages: %d\nquestions: %d\nerrors: %d\n```\n\n",
		len(transcript), countRole(transcript, session.RoleUser), countErrors(transcript)))
	b.WriteString(BuildTranscriptMarkdown(transcript))
	return b.String()
}

func (e *Exporter) outputPath(now time.Time) string {
	dir := filepath.Join(e.cwd, "docs", "querychat")
	if e.overrideDir != "" {
		dir = e.overrideDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(e.cwd, dir)
		}
	}
	return filepath.Join(dir, "chat-"+now.UTC().Format("20060102-150405")+".md")
}

func countRole(transcript []session.Message, role session.Role) int {
	n := 0
	for _, m := range transcript {
		if m.Role == role {
			n++
		}
	}
	return n
}

func countErrors(transcript []session.Message) int {
	n := 0
	for _, m := range transcript {
		if m.IsError {
			n++
		}
	}
	return n
}
