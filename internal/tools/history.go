package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/digitaldomain/QtPyConvert/internal/store"
)

type runInfo struct {
	ID         int64  `json:"id"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	Root       string `json:"root"`
	Mode       string `json:"mode"`
	Files      int    `json:"files"`
	Converted  int    `json:"converted"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
}

func toRunInfo(r *store.Run) runInfo {
	return runInfo{
		ID:         r.ID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Root:       r.Root,
		Mode:       r.Mode,
		Files:      r.Files,
		Converted:  r.Converted,
		Skipped:    r.Skipped,
		Failed:     r.Failed,
	}
}

// resultInfo renders a file result with 1-based error lines.
func resultInfo(r *store.FileResult) map[string]any {
	errs := make([]errorRecord, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, errorRecord{Line: e.Row + 1, LineTo: e.RowTo + 1, Reason: e.Reason})
	}
	return map[string]any{
		"path":       r.Path,
		"run_id":     r.RunID,
		"status":     r.Status,
		"bindings":   r.Bindings,
		"warnings":   r.Warnings,
		"elapsed_ms": r.ElapsedMS,
		"message":    r.Message,
		"errors":     errs,
	}
}

func (s *Server) handleConversionHistory(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.journal == nil {
		return errResult("journal disabled"), nil
	}
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	if path := getStringArg(args, "path"); path != "" {
		r, err := s.journal.LatestResult(path)
		if err != nil {
			return errResult(fmt.Sprintf("latest result: %v", err)), nil
		}
		if r == nil {
			return errResult(fmt.Sprintf("no conversion recorded for %s", path)), nil
		}
		return jsonResult(resultInfo(r)), nil
	}

	if id := getIntArg(args, "run_id", 0); id > 0 {
		return s.runDetail(int64(id))
	}

	limit := getIntArg(args, "limit", 10)
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	runs, err := s.journal.ListRuns(limit)
	if err != nil {
		return errResult(fmt.Sprintf("list runs: %v", err)), nil
	}
	result := make([]runInfo, 0, len(runs))
	for _, r := range runs {
		result = append(result, toRunInfo(r))
	}
	return jsonResult(result), nil
}

// runDetail returns one run with every file it touched.
func (s *Server) runDetail(id int64) (*mcp.CallToolResult, error) {
	run, err := s.journal.GetRun(id)
	if err != nil {
		return errResult(err.Error()), nil
	}
	if run == nil {
		return errResult(fmt.Sprintf("no run %d", id)), nil
	}
	results, err := s.journal.ResultsForRun(id)
	if err != nil {
		return errResult(fmt.Sprintf("run results: %v", err)), nil
	}
	files := make([]map[string]any, 0, len(results))
	for _, r := range results {
		files = append(files, resultInfo(r))
	}
	return jsonResult(map[string]any{
		"run":   toRunInfo(run),
		"files": files,
	}), nil
}
