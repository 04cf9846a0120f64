package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileOpsTool implements the four create/delete operations. One registered
// tool name per operation, all sharing the path-only schema.
type FileOpsTool struct {
	op            string
	workspaceRoot string
}

// NewFileOpsTool creates a create_file, delete_file, create_directory, or
// delete_directory tool depending on op.
func NewFileOpsTool(op, workspaceRoot string) *FileOpsTool {
	return &FileOpsTool{op: op, workspaceRoot: workspaceRoot}
}

// Name returns the tool name.
func (t *FileOpsTool) Name() string {
	return t.op
}

func (t *FileOpsTool) description() string {
	switch t.op {
	case ToolCreateFile:
		return "Create an empty file in the workspace, including parent directories"
	case ToolDeleteFile:
		return "Delete a file from the workspace"
	case ToolCreateDirectory:
		return "Create a directory in the workspace, including parents"
	case ToolDeleteDirectory:
		return "Delete a directory and its contents from the workspace"
	default:
		return t.op
	}
}

// PromptDocumentation returns formatted tool documentation for prompts.
func (t *FileOpsTool) PromptDocumentation() string {
	return fmt.Sprintf(`- **%s** - %s
  - Parameters:
    - path (string, REQUIRED): relative path within workspace`, t.op, t.description())
}

// Definition returns the tool definition for the LLM.
func (t *FileOpsTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        t.op,
		Description: t.description(),
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"path": {
					Type:        "string",
					Description: "Relative path within the workspace",
				},
			},
			Required: []string{"path"},
		},
	}
}

// Exec executes the tool with the given arguments.
func (t *FileOpsTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return nil, err
	}

	fullPath, err := resolveWorkspacePath(t.workspaceRoot, path)
	if err != nil {
		return errorResult(err.Error())
	}

	switch t.op {
	case ToolCreateFile:
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return errorResult(fmt.Sprintf("cannot create parent directory for %s: %v", path, err))
		}
		f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err != nil {
			return errorResult(fmt.Sprintf("cannot create %s: %v", path, err))
		}
		_ = f.Close()
	case ToolDeleteFile:
		info, err := os.Stat(fullPath)
		if err != nil {
			return errorResult(fmt.Sprintf("cannot delete %s: %v", path, err))
		}
		if info.IsDir() {
			return errorResult(fmt.Sprintf("%s is a directory, use delete_directory", path))
		}
		if err := os.Remove(fullPath); err != nil {
			return errorResult(fmt.Sprintf("cannot delete %s: %v", path, err))
		}
	case ToolCreateDirectory:
		if err := os.MkdirAll(fullPath, 0755); err != nil {
			return errorResult(fmt.Sprintf("cannot create directory %s: %v", path, err))
		}
	case ToolDeleteDirectory:
		info, err := os.Stat(fullPath)
		if err != nil {
			return errorResult(fmt.Sprintf("cannot delete %s: %v", path, err))
		}
		if !info.IsDir() {
			return errorResult(fmt.Sprintf("%s is not a directory, use delete_file", path))
		}
		if err := os.RemoveAll(fullPath); err != nil {
			return errorResult(fmt.Sprintf("cannot delete directory %s: %v", path, err))
		}
	default:
		return nil, fmt.Errorf("unknown file operation %q", t.op)
	}

	return jsonResult(map[string]any{
		"success":   true,
		"operation": t.op,
		"path":      path,
	})
}
