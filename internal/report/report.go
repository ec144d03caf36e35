// Package report prints what a conversion did: the replaced snippets with
// their differing segments highlighted, unified diffs, and the constructs
// that need manual changes.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/digitaldomain/QtPyConvert/internal/convert"
)

// styles render one kind of segment. A nil func leaves text as is.
type styles struct {
	changed func(string) string // differing segment
	same    func(string) string // unchanged segment
	removed func(string) string // segment with no counterpart
	header  func(string) string
	warning func(string) string
	failure func(string) string
	added   func(string) string // diff line
	deleted func(string) string // diff line
	hunk    func(string) string // diff hunk header
}

func render(style func(string) string, s string) string {
	if style == nil || s == "" {
		return s
	}
	return style(s)
}

func lipglossStyles(r *lipgloss.Renderer) styles {
	fn := func(s lipgloss.Style) func(string) string {
		return func(text string) string { return s.Render(text) }
	}
	return styles{
		changed: fn(r.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))),
		same:    fn(r.NewStyle().Foreground(lipgloss.Color("8"))),
		removed: fn(r.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("2"))),
		header:  fn(r.NewStyle().Bold(true)),
		warning: fn(r.NewStyle().Foreground(lipgloss.Color("3"))),
		failure: fn(r.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))),
		added:   fn(r.NewStyle().Foreground(lipgloss.Color("2"))),
		deleted: fn(r.NewStyle().Foreground(lipgloss.Color("1"))),
		hunk:    fn(r.NewStyle().Foreground(lipgloss.Color("6"))),
	}
}

// ColorEnabled reports whether f is a terminal and NO_COLOR is unset.
func ColorEnabled(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Printer writes reports to one writer. Safe for concurrent use; each call
// writes its block in one piece.
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	styles styles
}

// NewPrinter returns a Printer writing to out, colored when color is true.
func NewPrinter(out io.Writer, color bool) *Printer {
	p := &Printer{out: out}
	if color {
		p.styles = lipglossStyles(lipgloss.NewRenderer(out))
	}
	return p
}

func (p *Printer) write(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	io.WriteString(p.out, s)
}

// ChangeLine formats one replacement as
// Replacing "original" with "replacement" at line N.
func (p *Printer) ChangeLine(c convert.Change) string {
	before, after := p.Highlight(c.Original, c.Replacement)
	if c.Replacement == "" {
		return fmt.Sprintf("Removing \"%s\" at line %d", before, c.Row+1)
	}
	return fmt.Sprintf("Replacing \"%s\" with \"%s\" at line %d", before, after, c.Row+1)
}

// Changes prints the replacements made in path under a header line.
func (p *Printer) Changes(path string, changes []convert.Change) {
	if len(changes) == 0 {
		return
	}
	var b strings.Builder
	b.WriteString(render(p.styles.header, path))
	b.WriteString("\n")
	for _, c := range changes {
		fmt.Fprintf(&b, "  [%s] %s\n", c.Pass, p.ChangeLine(c))
	}
	p.write(b.String())
}

// Warnings prints the warnings of one file.
func (p *Printer) Warnings(path string, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	var b strings.Builder
	for _, w := range warnings {
		b.WriteString(render(p.styles.warning, "WARNING:"))
		fmt.Fprintf(&b, " %s: %s\n", path, w)
	}
	p.write(b.String())
}

// Errors prints the records of one file with the lines they point at.
// source is the text the rows refer to.
func (p *Printer) Errors(path, source string, records []convert.ErrorRecord) {
	err := convert.NewUserInputRequired(path, source, records)
	if err == nil {
		return
	}
	text := err.Error()
	header, rest, _ := strings.Cut(text, "\n")
	p.write(render(p.styles.failure, "ERROR:") + " " + header + "\n" + rest)
}

// Failure prints an error that stopped the conversion of path.
func (p *Printer) Failure(path string, err error) {
	p.write(render(p.styles.failure, "ERROR:") + " " + path + ": " + err.Error() + "\n")
}

// Summary is the outcome of a batch.
type Summary struct {
	Files     int
	Converted int
	Unchanged int
	Skipped   int
	Failed    int
	Manual    map[string]int // path -> records needing manual changes
}

// Summary prints the batch totals and the files that need manual work.
func (p *Printer) Summary(s Summary) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d file(s): %d converted, %d unchanged, %d skipped, %d failed\n",
		render(p.styles.header, "Done."), s.Files, s.Converted, s.Unchanged, s.Skipped, s.Failed)
	paths := make([]string, 0, len(s.Manual))
	for path := range s.Manual {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		fmt.Fprintf(&b, "  %s %s: %d issue(s)\n", render(p.styles.warning, "manual"), path, s.Manual[path])
	}
	p.write(b.String())
}
