package convert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/digitaldomain/QtPyConvert/internal/lang"
	"github.com/digitaldomain/QtPyConvert/internal/parser"
)

// Run converts Python source text. See RunContext.
func Run(text string, opts Options) (*Result, error) {
	return RunContext(context.Background(), text, opts)
}

// RunContext converts Python source text. Every call builds its own state,
// so concurrent calls are independent.
//
// When text does not parse, the result carries the original text and a
// single error record at line 0, and the returned error wraps ErrParse.
// Constructs that need manual work are reported in Result.Aliases.Errors;
// they are not returned as an error.
func RunContext(ctx context.Context, text string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	start := time.Now()
	res := &Result{Aliases: newAliasTable(), Mapping: map[string]string{}, Text: text}

	doc, err := parser.ParseDocument(lang.Python, []byte(text))
	if err != nil {
		res.Aliases.Errors = append(res.Aliases.Errors, ErrorRecord{Reason: err.Error()})
		slog.Error("convert.parse", "err", err)
		return res, fmt.Errorf("%w: %w", ErrParse, err)
	}
	defer doc.Close()

	c := &converter{
		ctx:     ctx,
		doc:     doc,
		reg:     opts.Registry,
		opts:    opts,
		aliases: res.Aliases,
		mapping: res.Mapping,
	}

	c.fromImports()
	c.imports()
	if err := ctx.Err(); err != nil {
		return res, err
	}

	c.mergeRelocations()
	c.aliases.Used = StringSet{}
	c.normalizeMappings()
	c.normalizeKeys()

	c.legacy()
	c.body()
	c.rootNames()
	// Without a binding or shim import in play the module references
	// cannot be reconciled with the imports, so they are left alone.
	if len(c.aliases.Bindings) > 0 || len(c.aliases.RootAliases) > 0 {
		c.attributes()
	}
	if len(c.aliases.RootAliases) > 0 {
		c.consolidate()
	}
	c.unsupported()
	if err := ctx.Err(); err != nil {
		return res, err
	}

	res.Text = doc.String()
	slog.Debug("convert.done",
		"bindings", len(c.aliases.Bindings),
		"mappings", len(c.mapping),
		"errors", len(c.aliases.Errors),
		"elapsed", time.Since(start),
	)
	return res, nil
}
