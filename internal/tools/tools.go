// Package tools exposes the converter as MCP tools.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/digitaldomain/QtPyConvert/internal/bindings"
	"github.com/digitaldomain/QtPyConvert/internal/convert"
	"github.com/digitaldomain/QtPyConvert/internal/store"
)

// Version is reported to MCP clients.
var Version = "dev"

// Server wraps the MCP server with tool handlers.
type Server struct {
	mcp     *mcp.Server
	journal *store.Store // nil disables conversion_history
	opts    convert.Options
}

// NewServer creates a new MCP server with all tools registered. opts are the
// defaults every conversion starts from; journal may be nil.
func NewServer(journal *store.Store, opts convert.Options) *Server {
	if opts.Registry == nil {
		opts.Registry = bindings.Default()
	}
	srv := &Server{
		journal: journal,
		opts:    opts,
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "qtpyconvert",
				Version: Version,
			},
			nil,
		),
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "convert_source",
		Description: "Convert Python source written against PyQt4, PyQt5, PySide or PySide2 to the Qt.py shim. Returns the converted text, the bindings found, warnings, and the constructs that need manual changes with their line numbers.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"source": {
					"type": "string",
					"description": "Python source text"
				},
				"to_methods": {
					"type": "boolean",
					"description": "Strip PyQt4 API v1 conversion calls such as .toString() (default from config)"
				},
				"explicit_signals": {
					"type": "boolean",
					"description": "Write signal argument types, as in clicked[bool] (default from config)"
				},
				"string_type": {
					"type": "string",
					"description": "Replacement for QString and friends, e.g. 'str' or 'unicode'"
				}
			},
			"required": ["source"]
		}`),
	}, s.handleConvertSource)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "convert_path",
		Description: "Convert a Python file or a folder of Python files. By default returns a unified diff and writes nothing; with write=true the files are converted in place.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {
					"type": "string",
					"description": "Absolute path to a file or folder"
				},
				"write": {
					"type": "boolean",
					"description": "Overwrite the files instead of returning a diff (default: false)"
				},
				"backup": {
					"type": "boolean",
					"description": "With write=true, keep the original as .<name>.bak"
				},
				"recursive": {
					"type": "boolean",
					"description": "Descend into subfolders (default: true)"
				}
			},
			"required": ["path"]
		}`),
	}, s.handleConvertPath)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_bindings",
		Description: "List the supported Qt bindings with their relocated members, and the Qt.py modules with their member counts.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleListBindings)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "lookup_member",
		Description: "Find where a Qt member lives under Qt.py: its owning module and any per-binding relocation (e.g. 'QWidget', 'QtGui.QSortFilterProxyModel').",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {
					"type": "string",
					"description": "Member name, bare or module-qualified"
				},
				"binding": {
					"type": "string",
					"description": "Restrict relocations to one binding (e.g. 'PyQt4')"
				}
			},
			"required": ["name"]
		}`),
	}, s.handleLookupMember)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "conversion_history",
		Description: "Show recent conversion runs from the journal, the files of one run, or the latest recorded result of one file with its manual-change records.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {
					"type": "string",
					"description": "Absolute file path; omit to list runs"
				},
				"run_id": {
					"type": "integer",
					"description": "Show the files of this run"
				},
				"limit": {
					"type": "integer",
					"description": "Max runs (default 10, max 100)"
				}
			}
		}`),
	}, s.handleConversionHistory)
}

// jsonResult marshals data to JSON and returns as tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

// getStringArg extracts a string argument from parsed args.
func getStringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// getIntArg extracts an integer argument with a default value.
func getIntArg(args map[string]any, key string, defaultVal int) int {
	f, ok := args[key].(float64) // JSON numbers decode as float64
	if !ok {
		return defaultVal
	}
	return int(f)
}

// getBoolArg extracts a boolean argument, defaultVal when absent.
func getBoolArg(args map[string]any, key string, defaultVal bool) bool {
	b, ok := args[key].(bool)
	if !ok {
		return defaultVal
	}
	return b
}
