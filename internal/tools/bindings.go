package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type relocationInfo struct {
	Binding string `json:"binding"`
	From    string `json:"from"`
	To      string `json:"to"`
	Note    string `json:"note,omitempty"`
}

func (s *Server) handleListBindings(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reg := s.opts.Registry

	type bindingInfo struct {
		Name        string `json:"name"`
		Relocations int    `json:"relocations"`
	}
	type moduleInfo struct {
		Name    string `json:"name"`
		Members int    `json:"members"`
	}

	var bs []bindingInfo
	for _, b := range reg.Bindings() {
		bs = append(bs, bindingInfo{Name: b, Relocations: len(reg.RelocationsFor(b))})
	}
	var ms []moduleInfo
	for _, m := range reg.CommonModules() {
		ms = append(ms, moduleInfo{Name: m, Members: len(reg.Members(m))})
	}
	return jsonResult(map[string]any{
		"bindings": bs,
		"modules":  ms,
	}), nil
}

func (s *Server) handleLookupMember(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	name := getStringArg(args, "name")
	if name == "" {
		return errResult("name is required"), nil
	}
	only := getStringArg(args, "binding")
	reg := s.opts.Registry

	bare := name
	if i := strings.LastIndex(name, "."); i >= 0 {
		bare = name[i+1:]
	}

	var relocations []relocationInfo
	for _, b := range reg.Bindings() {
		if only != "" && b != only {
			continue
		}
		rels := reg.RelocationsFor(b)
		for from, rel := range rels {
			if from == name || (!strings.Contains(name, ".") && strings.HasSuffix(from, "."+bare)) {
				relocations = append(relocations, relocationInfo{Binding: b, From: from, To: rel.Target, Note: rel.Extra})
			}
		}
	}
	sort.Slice(relocations, func(i, j int) bool {
		if relocations[i].Binding != relocations[j].Binding {
			return relocations[i].Binding < relocations[j].Binding
		}
		return relocations[i].From < relocations[j].From
	})

	module, owned := reg.CommonModuleOf(bare)
	if !owned && len(relocations) == 0 {
		return errResult(fmt.Sprintf("member not found: %s", name)), nil
	}
	out := map[string]any{
		"name":        bare,
		"relocations": relocations,
	}
	if owned {
		out["module"] = module
		out["path"] = "Qt." + module + "." + bare
	}
	return jsonResult(out), nil
}
