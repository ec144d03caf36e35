package report

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// separators split a snippet into segments, coarsest first. Segments that
// differ are split again on the next separator.
var separators = []string{".", " ", ",", "("}

// Highlight styles the segments that differ between before and after. Without
// color both are returned unchanged.
func (p *Printer) Highlight(before, after string) (string, string) {
	if p.styles.changed == nil {
		return before, after
	}
	return p.highlight(before, after, separators)
}

func (p *Printer) highlight(before, after string, seps []string) (string, string) {
	sep := seps[0]
	a := strings.Split(before, sep)
	b := strings.Split(after, sep)
	aOut := make([]string, 0, len(a))
	bOut := make([]string, 0, len(b))
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		switch op.Tag {
		case 'e':
			for _, s := range a[op.I1:op.I2] {
				aOut = append(aOut, render(p.styles.same, s))
			}
			for _, s := range b[op.J1:op.J2] {
				bOut = append(bOut, render(p.styles.same, s))
			}
		case 'r':
			n := min(op.I2-op.I1, op.J2-op.J1)
			for k := 0; k < n; k++ {
				sa, sb := a[op.I1+k], b[op.J1+k]
				if len(seps) > 1 {
					sa, sb = p.highlight(sa, sb, seps[1:])
				} else {
					sa, sb = render(p.styles.changed, sa), render(p.styles.changed, sb)
				}
				aOut = append(aOut, sa)
				bOut = append(bOut, sb)
			}
			for _, s := range a[op.I1+n : op.I2] {
				aOut = append(aOut, render(p.styles.removed, s))
			}
			for _, s := range b[op.J1+n : op.J2] {
				bOut = append(bOut, render(p.styles.changed, s))
			}
		case 'd':
			for _, s := range a[op.I1:op.I2] {
				aOut = append(aOut, render(p.styles.removed, s))
			}
		case 'i':
			for _, s := range b[op.J1:op.J2] {
				bOut = append(bOut, render(p.styles.changed, s))
			}
		}
	}
	return strings.Join(aOut, sep), strings.Join(bOut, sep)
}
