package mcp

// In this file: extraction helpers for tool-call arguments. The MCP protocol
// delivers arguments as decoded JSON, so numbers arrive as float64 and
// arrays as []any.

import (
	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// stringArg extracts a named string argument. Returns ("", false) if the
// argument is absent or not a string.
func stringArg(req mcplib.CallToolRequest, name string) (string, bool) {
	args := req.GetArguments()
	if args == nil {
		return "", false
	}
	v, ok := args[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// stringOrDefault extracts a named string argument, falling back to
// defaultVal when absent or empty.
func stringOrDefault(req mcplib.CallToolRequest, name, defaultVal string) string {
	s, ok := stringArg(req, name)
	if !ok || s == "" {
		return defaultVal
	}
	return s
}

// stringSliceArg extracts a named array-of-strings argument. Returns
// (nil, false) when the argument is absent or any entry is not a string.
func stringSliceArg(req mcplib.CallToolRequest, name string) ([]string, bool) {
	args := req.GetArguments()
	if args == nil {
		return nil, false
	}
	v, ok := args[name]
	if !ok {
		return nil, false
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// boolArg extracts a named bool argument.
func boolArg(req mcplib.CallToolRequest, name string, defaultVal bool) bool {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	v, ok := args[name]
	if !ok {
		return defaultVal
	}
	b, ok := v.(bool)
	if !ok {
		return defaultVal
	}
	return b
}

// floatArg extracts a named number argument.
func floatArg(req mcplib.CallToolRequest, name string, defaultVal float64) float64 {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	v, ok := args[name]
	if !ok {
		return defaultVal
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return defaultVal
}

// mapArg extracts a named object argument; absent or mistyped arguments
// yield an empty map so kwargs handling stays uniform.
func mapArg(req mcplib.CallToolRequest, name string) map[string]any {
	args := req.GetArguments()
	if args == nil {
		return map[string]any{}
	}
	v, ok := args[name].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return v
}

// intKwarg pulls an integer out of a kwargs map.
func intKwarg(kwargs map[string]any, name string, defaultVal int) int {
	v, ok := kwargs[name]
	if !ok {
		return defaultVal
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return defaultVal
}

// stringKwarg pulls a string out of a kwargs map.
func stringKwarg(kwargs map[string]any, name string) string {
	s, _ := kwargs[name].(string)
	return s
}
