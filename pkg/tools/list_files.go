package tools

import (
	"context"
	"fmt"
	"os"
	"sort"
)

// ListFilesTool lists the entries of a directory within the workspace.
type ListFilesTool struct {
	workspaceRoot string
}

// NewListFilesTool creates a new list_files tool.
func NewListFilesTool(workspaceRoot string) *ListFilesTool {
	return &ListFilesTool{workspaceRoot: workspaceRoot}
}

// Name returns the tool name.
func (t *ListFilesTool) Name() string {
	return ToolListFiles
}

// PromptDocumentation returns formatted tool documentation for prompts.
func (t *ListFilesTool) PromptDocumentation() string {
	return `- **list_files** - List files and directories at a path in the workspace
  - Parameters:
    - path (string, optional): relative directory path (default: workspace root)
  - Directories are suffixed with "/"`
}

// Definition returns the tool definition for the LLM.
func (t *ListFilesTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolListFiles,
		Description: "List files and directories at a path within the workspace. Directories are suffixed with '/'.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"path": {
					Type:        "string",
					Description: "Relative directory path within the workspace. Defaults to the workspace root.",
				},
			},
		},
	}
}

// Exec executes the tool with the given arguments.
func (t *ListFilesTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}

	fullPath, err := resolveWorkspacePath(t.workspaceRoot, path)
	if err != nil {
		return errorResult(err.Error())
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return errorResult(fmt.Sprintf("cannot list %s: %v", path, err))
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	return jsonResult(map[string]any{
		"success": true,
		"path":    path,
		"entries": names,
		"count":   len(names),
	})
}
