// Command ast_debug prints the syntax tree of Python files and the dotted
// chains the converter rewrites. With no arguments it reads stdin.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/digitaldomain/QtPyConvert/internal/lang"
	"github.com/digitaldomain/QtPyConvert/internal/parser"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

func printAST(w io.Writer, node *tree_sitter.Node, source []byte, indent int) {
	if node == nil {
		return
	}
	prefix := strings.Repeat("  ", indent)
	parentKind := "nil"
	if node.Parent() != nil {
		parentKind = node.Parent().Kind()
	}
	text := string(source[node.StartByte():node.EndByte()])
	if len(text) > 60 {
		text = text[:60] + "..."
	}
	mark := ""
	if parser.IsChainLink(node) {
		mark = " [chain]"
	}
	fmt.Fprintf(w, "%s%s (parent=%s)%s %q\n", prefix, node.Kind(), parentKind, mark, text)
	for i := uint(0); i < node.ChildCount(); i++ {
		printAST(w, node.Child(i), source, indent+1)
	}
}

// dump writes the tree of source, then one line per chain with its root.
func dump(w io.Writer, name string, source []byte) error {
	doc, err := parser.ParseDocument(lang.Python, source)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer doc.Close()

	fmt.Fprintf(w, "=== %s ===\n", name)
	printAST(w, doc.Root(), source, 0)

	fmt.Fprintln(w, "\n--- chains ---")
	for _, c := range doc.Chains() {
		start, end := doc.Lines(c)
		root := parser.ChainRoot(c)
		fmt.Fprintf(w, "%d-%d %s (root=%s)\n", start+1, end+1, doc.Text(c), doc.Text(root))
	}
	return nil
}

func main() {
	if len(os.Args) < 2 {
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		if err := dump(os.Stdout, "<stdin>", src); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		return
	}
	status := 0
	for _, path := range os.Args[1:] {
		src, err := os.ReadFile(path)
		if err == nil {
			err = dump(os.Stdout, path, src)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			status = 1
		}
	}
	os.Exit(status)
}
