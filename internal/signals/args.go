package signals

import "strings"

var pythonBuiltins = map[string]bool{
	"bool": true, "bytes": true, "complex": true, "dict": true, "float": true,
	"int": true, "list": true, "object": true, "set": true, "str": true,
	"tuple": true, "unicode": true, "long": true,
}

var cppScalars = map[string]string{
	"double": "float", "qreal": "float",
	"short": "int", "uint": "int", "ulong": "int", "qint64": "int", "qlonglong": "int",
	"char": "str",
}

// PythonizeArg maps one C++ argument type to the Python type the shim's
// signal subscript expects.
func PythonizeArg(arg, stringType string) string {
	if stringType == "" {
		stringType = "str"
	}
	if i := strings.Index(arg, "<"); i >= 0 {
		arg = arg[:i]
	}
	arg = strings.NewReplacer("&", " ", "*", " ").Replace(arg)
	fields := strings.Fields(arg)
	if len(fields) == 0 {
		return ""
	}
	typ := fields[len(fields)-1]
	switch {
	case typ == "QMap" || typ == "QHash":
		return "dict"
	case pythonBuiltins[typ]:
		return typ
	case cppScalars[typ] != "":
		return cppScalars[typ]
	case strings.Contains(typ, "[") || strings.Contains(strings.ToLower(typ), "list") || strings.HasPrefix(typ, "QVector"):
		return "list"
	case typ == "QString":
		return stringType
	case typ == "QVariant":
		return "object"
	case strings.HasPrefix(typ, "Q"):
		return typ
	}
	return "object"
}

// NormalizeArgs maps a C++ argument list such as "const QString &, int" to
// "str, int". Commas inside template brackets do not split arguments.
func NormalizeArgs(args, stringType string) string {
	var out []string
	depth, start := 0, 0
	flush := func(end int) {
		if t := PythonizeArg(args[start:end], stringType); t != "" {
			out = append(out, t)
		}
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(args))
	return strings.Join(out, ", ")
}
