package convert

import (
	"errors"
	"fmt"
	"strings"
)

// ErrParse is returned when the input is not valid Python.
var ErrParse = errors.New("parse source")

// ErrorRecord marks source the converter could not rewrite. Rows are 0-based.
type ErrorRecord struct {
	Row    int
	RowTo  int
	Reason string
}

// UserInputRequiredError lists the records of one file with the source lines
// they point at.
type UserInputRequiredError struct {
	Path    string
	Source  string
	Records []ErrorRecord
}

// NewUserInputRequired returns nil when records is empty.
func NewUserInputRequired(path, source string, records []ErrorRecord) *UserInputRequiredError {
	if len(records) == 0 {
		return nil
	}
	return &UserInputRequiredError{Path: path, Source: source, Records: records}
}

func (e *UserInputRequiredError) Error() string {
	lines := strings.Split(e.Source, "\n")
	var b strings.Builder
	name := e.Path
	if name == "" {
		name = "<input>"
	}
	fmt.Fprintf(&b, "%d issue(s) in %s require manual changes:\n", len(e.Records), name)
	for _, r := range e.Records {
		b.WriteString("\n")
		if r.RowTo > r.Row {
			fmt.Fprintf(&b, "Lines %d-%d:\n", r.Row+1, r.RowTo+1)
		} else {
			fmt.Fprintf(&b, "Line %d:\n", r.Row+1)
		}
		for i := r.Row; i <= r.RowTo && i < len(lines); i++ {
			if i >= 0 {
				fmt.Fprintf(&b, "    %s\n", strings.TrimRight(lines[i], "\r"))
			}
		}
		b.WriteString(strings.TrimSpace(r.Reason))
		b.WriteString("\n")
	}
	return b.String()
}
