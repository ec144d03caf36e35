package signals

import "strings"

// scanner walks Python expression text, skipping string literals and comments
// and tracking bracket depth.
type scanner struct {
	s     string
	i     int
	depth int
	quote string // active string delimiter, "" outside strings
}

// step advances one significant character and reports it with the depth
// before any bracket it opens. ok is false for characters inside strings or
// comments.
func (sc *scanner) step() (c byte, depth int, ok bool) {
	s := sc.s
	c = s[sc.i]
	if sc.quote != "" {
		switch {
		case c == '\\':
			sc.i += 2
		case strings.HasPrefix(s[sc.i:], sc.quote):
			sc.i += len(sc.quote)
			sc.quote = ""
		default:
			sc.i++
		}
		return c, sc.depth, false
	}
	switch c {
	case '\'', '"':
		q := string(c)
		if strings.HasPrefix(s[sc.i:], strings.Repeat(q, 3)) {
			q = strings.Repeat(q, 3)
		}
		sc.quote = q
		sc.i += len(q)
		return c, sc.depth, false
	case '#':
		for sc.i < len(s) && s[sc.i] != '\n' {
			sc.i++
		}
		return c, sc.depth, false
	case '(', '[', '{':
		d := sc.depth
		sc.depth++
		sc.i++
		return c, d, true
	case ')', ']', '}':
		sc.depth--
		sc.i++
		return c, sc.depth, true
	}
	sc.i++
	return c, sc.depth, true
}

func (sc *scanner) done() bool { return sc.i >= len(sc.s) }

// splitCall splits "callee(args)" at the argument list that closes the text.
func splitCall(text string) (callee, inner string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasSuffix(text, ")") {
		return "", "", false
	}
	sc := &scanner{s: text}
	open := -1
	for !sc.done() {
		pos := sc.i
		c, depth, sig := sc.step()
		if sig && c == '(' && depth == 0 {
			open = pos
		}
	}
	if open <= 0 || sc.depth != 0 || sc.quote != "" {
		return "", "", false
	}
	return text[:open], text[open+1 : len(text)-1], true
}

// splitArgs splits an argument list at top-level commas. Comments are
// dropped and each argument is trimmed; a trailing comma yields no argument.
func splitArgs(inner string) []string {
	var (
		args []string
		cur  strings.Builder
	)
	sc := &scanner{s: inner}
	for !sc.done() {
		start := sc.i
		c, depth, sig := sc.step()
		if sig && c == ',' && depth == 0 {
			args = append(args, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		if !sig && c == '#' && sc.quote == "" {
			continue
		}
		cur.WriteString(inner[start:sc.i])
	}
	if last := strings.TrimSpace(cur.String()); last != "" {
		args = append(args, last)
	}
	return args
}

// unwrapCall returns the argument text of "<prefix>name(...)" where prefix is
// an optional dotted qualifier such as "QtCore.".
func unwrapCall(text, name string) (string, bool) {
	callee, inner, ok := splitCall(text)
	if !ok {
		return "", false
	}
	callee = strings.TrimSpace(callee)
	if callee != name && !strings.HasSuffix(callee, "."+name) {
		return "", false
	}
	if prefix := strings.TrimSuffix(callee, name); prefix != "" && !isDotted(strings.TrimSuffix(prefix, ".")) {
		return "", false
	}
	return strings.TrimSpace(inner), true
}

// stringLiteral returns the content of a single quoted Python string literal,
// optionally wrapped in _fromUtf8(...).
func stringLiteral(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if inner, ok := unwrapCall(text, "_fromUtf8"); ok {
		text = inner
	}
	text = strings.TrimLeft(text, "rRuUbB")
	if len(text) < 2 {
		return "", false
	}
	q := text[:1]
	if q != "'" && q != "\"" || !strings.HasSuffix(text, q) {
		return "", false
	}
	body := text[1 : len(text)-1]
	if strings.Contains(body, q) {
		return "", false
	}
	return body, true
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}

func isDotted(s string) bool {
	for _, part := range strings.Split(s, ".") {
		if !isIdent(strings.TrimSpace(part)) {
			return false
		}
	}
	return true
}
