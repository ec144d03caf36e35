package report

import (
	"bytes"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/go-diff/diff"
)

// DefaultContext is the number of unchanged lines around each hunk.
const DefaultContext = 3

// splitLines splits s after every newline. A last line without one gets it,
// so the diff body stays line oriented.
func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for i, l := range lines {
		if !strings.HasSuffix(l, "\n") {
			lines[i] = l + "\n"
		}
	}
	return lines
}

// FileDiff builds the unified diff of a conversion of path. It returns nil
// when before and after are equal.
func FileDiff(path, before, after string, context int) *diff.FileDiff {
	if before == after {
		return nil
	}
	a, b := splitLines(before), splitLines(after)
	fd := &diff.FileDiff{OrigName: "a/" + path, NewName: "b/" + path}
	for _, group := range difflib.NewMatcher(a, b).GetGroupedOpCodes(context) {
		first, last := group[0], group[len(group)-1]
		h := &diff.Hunk{
			OrigStartLine: int32(first.I1 + 1),
			OrigLines:     int32(last.I2 - first.I1),
			NewStartLine:  int32(first.J1 + 1),
			NewLines:      int32(last.J2 - first.J1),
		}
		// An empty range starts at the line before it.
		if h.OrigLines == 0 {
			h.OrigStartLine--
		}
		if h.NewLines == 0 {
			h.NewStartLine--
		}
		var body bytes.Buffer
		for _, op := range group {
			if op.Tag == 'e' {
				for _, l := range a[op.I1:op.I2] {
					body.WriteString(" " + l)
				}
				continue
			}
			if op.Tag == 'r' || op.Tag == 'd' {
				for _, l := range a[op.I1:op.I2] {
					body.WriteString("-" + l)
				}
			}
			if op.Tag == 'r' || op.Tag == 'i' {
				for _, l := range b[op.J1:op.J2] {
					body.WriteString("+" + l)
				}
			}
		}
		h.Body = body.Bytes()
		fd.Hunks = append(fd.Hunks, h)
	}
	return fd
}

// Diff prints the unified diff of a conversion of path. Equal texts print
// nothing.
func (p *Printer) Diff(path, before, after string) error {
	fd := FileDiff(path, before, after, DefaultContext)
	if fd == nil {
		return nil
	}
	out, err := diff.PrintFileDiff(fd)
	if err != nil {
		return err
	}
	var b strings.Builder
	for _, line := range strings.SplitAfter(string(out), "\n") {
		if line == "" {
			continue
		}
		text := strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(text, "+++"), strings.HasPrefix(text, "---"):
			text = render(p.styles.header, text)
		case strings.HasPrefix(text, "@@"):
			text = render(p.styles.hunk, text)
		case strings.HasPrefix(text, "+"):
			text = render(p.styles.added, text)
		case strings.HasPrefix(text, "-"):
			text = render(p.styles.deleted, text)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	p.write(b.String())
	return nil
}
