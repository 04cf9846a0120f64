package tools

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// resolveWorkspacePath joins a model-supplied relative path onto the workspace
// root, rejecting traversal outside it. An empty path resolves to the root.
func resolveWorkspacePath(workspaceRoot, path string) (string, error) {
	if workspaceRoot == "" {
		workspaceRoot = "."
	}
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("path must be relative to the workspace: %s", path)
	}
	cleanPath := filepath.Clean(path)
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes the workspace: %s", path)
	}
	return filepath.Join(workspaceRoot, cleanPath), nil
}

// stringArg extracts a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%s is required and must be a string", key)
	}
	return v, nil
}

// intArgOrDefault extracts an integer argument from the args map, returning
// defaultVal if missing or invalid. Handles float64 (from JSON unmarshal),
// int, and int64 value types.
func intArgOrDefault(args map[string]any, key string, defaultVal int) int {
	v, exists := args[key]
	if !exists {
		return defaultVal
	}
	var n int
	switch val := v.(type) {
	case float64:
		n = int(val)
	case int:
		n = val
	case int64:
		n = int(val)
	default:
		return defaultVal
	}
	if n < 1 {
		return defaultVal
	}
	return n
}

// jsonResult marshals a result map into an ExecResult.
func jsonResult(m map[string]any) (*ExecResult, error) {
	content, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &ExecResult{Content: string(content)}, nil
}

// errorResult creates a JSON error response.
func errorResult(msg string) (*ExecResult, error) {
	return jsonResult(map[string]any{
		"success": false,
		"error":   msg,
	})
}
