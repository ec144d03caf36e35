package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/digitaldomain/QtPyConvert/internal/convert"
	"github.com/digitaldomain/QtPyConvert/internal/report"
	"github.com/digitaldomain/QtPyConvert/internal/runner"
)

type errorRecord struct {
	Line   int    `json:"line"`
	LineTo int    `json:"line_to"`
	Reason string `json:"reason"`
}

// toRecords converts 0-based rows to the 1-based lines shown to users.
func toRecords(records []convert.ErrorRecord) []errorRecord {
	out := make([]errorRecord, 0, len(records))
	for _, r := range records {
		out = append(out, errorRecord{Line: r.Row + 1, LineTo: r.RowTo + 1, Reason: r.Reason})
	}
	return out
}

// convertOptions applies the per-call overrides to the server defaults.
func (s *Server) convertOptions(args map[string]any) convert.Options {
	opts := s.opts
	opts.OnChange = nil
	opts.ToMethods = getBoolArg(args, "to_methods", opts.ToMethods)
	opts.ExplicitSignals = getBoolArg(args, "explicit_signals", opts.ExplicitSignals)
	if st := getStringArg(args, "string_type"); st != "" {
		opts.StringType = st
	}
	return opts
}

func (s *Server) handleConvertSource(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	source, ok := args["source"].(string)
	if !ok {
		return errResult("source is required"), nil
	}

	res, err := convert.RunContext(ctx, source, s.convertOptions(args))
	if err != nil {
		if errors.Is(err, convert.ErrParse) {
			return errResult(fmt.Sprintf("source does not parse: %v", err)), nil
		}
		return errResult(fmt.Sprintf("convert: %v", err)), nil
	}

	out := map[string]any{
		"text":     res.Text,
		"changed":  res.Text != source,
		"bindings": res.Aliases.Bindings.Sorted(),
		"warnings": res.Aliases.Warnings,
		"errors":   toRecords(res.Aliases.Errors),
	}
	if manual := convert.NewUserInputRequired("", res.Text, res.Aliases.Errors); manual != nil {
		out["manual_changes"] = manual.Error()
	}
	return jsonResult(out), nil
}

func (s *Server) handleConvertPath(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	path := getStringArg(args, "path")
	if path == "" {
		return errResult("path is required"), nil
	}
	if !filepath.IsAbs(path) {
		return errResult("path must be absolute"), nil
	}

	mode := runner.ModeDiff
	if getBoolArg(args, "write", false) {
		mode = runner.ModeWrite
	}
	var buf bytes.Buffer
	r, err := runner.New(runner.Options{
		Convert:   s.convertOptions(args),
		Mode:      mode,
		Backup:    getBoolArg(args, "backup", false),
		Recursive: getBoolArg(args, "recursive", true),
		Journal:   s.journal,
		Printer:   report.NewPrinter(&buf, false),
	})
	if err != nil {
		return errResult(err.Error()), nil
	}
	rep, err := r.Run(ctx, path)
	if err != nil && rep == nil {
		return errResult(err.Error()), nil
	}

	type fileInfo struct {
		Path   string        `json:"path"`
		Status string        `json:"status"`
		Error  string        `json:"error,omitempty"`
		Manual []errorRecord `json:"manual_changes,omitempty"`
	}
	files := make([]fileInfo, 0, len(rep.Outcomes))
	for _, o := range rep.Outcomes {
		fi := fileInfo{Path: o.Path, Status: o.Status}
		if o.Err != nil {
			fi.Error = o.Err.Error()
		}
		if o.Result != nil && len(o.Result.Aliases.Errors) > 0 {
			fi.Manual = toRecords(o.Result.Aliases.Errors)
		}
		files = append(files, fi)
	}
	return jsonResult(map[string]any{
		"mode":    mode.String(),
		"run_id":  rep.RunID,
		"summary": rep.Summary,
		"files":   files,
		"output":  buf.String(),
	}), nil
}
