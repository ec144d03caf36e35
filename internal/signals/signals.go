// Package signals rewrites old-style Qt signal calls, which name signals with
// SIGNAL("name(args)") strings, into new-style attribute access.
//
//	self.connect(w, SIGNAL("clicked()"), self.onClick)  ->  w.clicked.connect(self.onClick)
//	self.emit(SIGNAL("done(int)"), 3)                    ->  self.done.emit(3)
package signals

import (
	"regexp"
	"strings"
)

// Kind is the signal method an old-style call invokes.
type Kind int

const (
	Connect Kind = iota
	Disconnect
	Emit
)

func (k Kind) String() string {
	switch k {
	case Connect:
		return "connect"
	case Disconnect:
		return "disconnect"
	case Emit:
		return "emit"
	}
	return "unknown"
}

// KindOf maps a method name to its Kind.
func KindOf(method string) (Kind, bool) {
	switch method {
	case "connect":
		return Connect, true
	case "disconnect":
		return Disconnect, true
	case "emit":
		return Emit, true
	}
	return 0, false
}

// Options controls rendering.
type Options struct {
	// Explicit renders the signal's argument types as name[types].
	Explicit bool
	// StringType replaces QString in argument types. Defaults to "str".
	StringType string
}

// Call is a parsed old-style signal call.
type Call struct {
	Kind   Kind
	Owner  string // object that owns the signal
	Signal string // signal name
	Args   string // C++ argument list of the signal, as written
	Slot   string // connect/disconnect target, empty for emit or a bare disconnect
	Rest   []string
}

// signature matches "name" or "name(args)" inside a SIGNAL or SLOT string.
var signature = regexp.MustCompile(`(?s)^\s*(\w+)\s*(?:\((.*)\))?\s*$`)

// methodCallee matches the callee of an old-style call.
var methodCallee = regexp.MustCompile(`(?s)^(.*?)\s*\.\s*(connect|disconnect|emit)$`)

// signalString returns the name and argument text of a SIGNAL("...") or
// SLOT("...") expression.
func signalString(expr, macro string) (name, args string, ok bool) {
	inner, ok := unwrapCall(expr, macro)
	if !ok {
		return "", "", false
	}
	lit, ok := stringLiteral(inner)
	if !ok {
		return "", "", false
	}
	m := signature.FindStringSubmatch(lit)
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

// Parse reads a connect, disconnect or emit call that names its signal with a
// SIGNAL string. ok is false when text is not such a call.
func Parse(text string) (*Call, bool) {
	callee, inner, ok := splitCall(text)
	if !ok {
		return nil, false
	}
	m := methodCallee.FindStringSubmatch(strings.TrimSpace(callee))
	if m == nil || m[1] == "" {
		return nil, false
	}
	kind, _ := KindOf(m[2])
	root := strings.TrimSpace(m[1])
	return handlers[kind](root, splitArgs(inner))
}

type handler func(root string, args []string) (*Call, bool)

var handlers = map[Kind]handler{
	Connect:    parseConnect,
	Disconnect: parseDisconnect,
	Emit:       parseEmit,
}

// locate finds the SIGNAL argument, which may be preceded by at most one
// explicit owner.
func locate(root string, args []string) (c *Call, rest []string, ok bool) {
	for i, a := range args {
		name, sigArgs, found := signalString(a, "SIGNAL")
		if !found {
			continue
		}
		if i > 1 {
			return nil, nil, false
		}
		c = &Call{Owner: root, Signal: name, Args: sigArgs}
		if i == 1 {
			c.Owner = args[0]
		}
		return c, args[i+1:], true
	}
	return nil, nil, false
}

// slotOf resolves the slot arguments that follow the signal.
func slotOf(root string, rest []string) (slot string, extra []string, ok bool) {
	switch {
	case len(rest) == 0:
		return "", nil, false
	case len(rest) >= 2:
		if name, _, isSlot := signalString(rest[1], "SLOT"); isSlot {
			return rest[0] + "." + name, rest[2:], true
		}
	}
	if name, _, isSlot := signalString(rest[0], "SLOT"); isSlot {
		return root + "." + name, rest[1:], true
	}
	return rest[0], rest[1:], true
}

func parseConnect(root string, args []string) (*Call, bool) {
	c, rest, ok := locate(root, args)
	if !ok {
		return nil, false
	}
	c.Kind = Connect
	c.Slot, c.Rest, ok = slotOf(root, rest)
	return c, ok
}

func parseDisconnect(root string, args []string) (*Call, bool) {
	c, rest, ok := locate(root, args)
	if !ok {
		return nil, false
	}
	c.Kind = Disconnect
	if len(rest) == 0 {
		return c, true
	}
	c.Slot, c.Rest, ok = slotOf(root, rest)
	return c, ok
}

func parseEmit(root string, args []string) (*Call, bool) {
	if len(args) == 0 {
		return nil, false
	}
	name, sigArgs, ok := signalString(args[0], "SIGNAL")
	if !ok {
		return nil, false
	}
	return &Call{Kind: Emit, Owner: root, Signal: name, Args: sigArgs, Rest: args[1:]}, true
}

// Render returns the new-style form of c.
func (c *Call) Render(opts Options) string {
	var b strings.Builder
	b.WriteString(c.Owner)
	b.WriteByte('.')
	b.WriteString(c.Signal)
	if opts.Explicit {
		if types := NormalizeArgs(c.Args, opts.StringType); types != "" {
			b.WriteString("[" + types + "]")
		}
	}
	b.WriteByte('.')
	b.WriteString(c.Kind.String())
	var params []string
	if c.Slot != "" {
		params = append(params, c.Slot)
	}
	params = append(params, c.Rest...)
	b.WriteString("(" + strings.Join(params, ", ") + ")")
	return b.String()
}

// Rewrite converts one old-style call. ok is false and text is returned
// unchanged when the call does not match.
func Rewrite(text string, opts Options) (string, bool) {
	c, ok := Parse(text)
	if !ok {
		return text, false
	}
	return c.Render(opts), true
}
