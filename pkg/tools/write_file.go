package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteFileTool writes file contents. With only path and content it replaces
// the whole file (creating it if absent). With start_line and end_line it
// splices content over that 1-based inclusive line range.
type WriteFileTool struct {
	workspaceRoot string
}

// NewWriteFileTool creates a new write_to_file tool.
func NewWriteFileTool(workspaceRoot string) *WriteFileTool {
	return &WriteFileTool{workspaceRoot: workspaceRoot}
}

// Name returns the tool name.
func (t *WriteFileTool) Name() string {
	return ToolWriteFile
}

// PromptDocumentation returns formatted tool documentation for prompts.
func (t *WriteFileTool) PromptDocumentation() string {
	return `- **write_to_file** - Write a file in the workspace
  - Parameters:
    - path (string, REQUIRED): relative path to file within workspace
    - content (string, REQUIRED): content to write
    - start_line (integer, optional): first line to replace (1-based)
    - end_line (integer, optional): last line to replace (inclusive)
  - Without start_line/end_line the whole file is replaced (created if absent)
  - With both, content is spliced over that line range`
}

// Definition returns the tool definition for the LLM.
func (t *WriteFileTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolWriteFile,
		Description: "Write a file in the workspace. Without start_line/end_line the whole file is replaced (created if absent). With both, content is spliced over that 1-based inclusive line range.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"path": {
					Type:        "string",
					Description: "Relative path to file within workspace",
				},
				"content": {
					Type:        "string",
					Description: "Content to write",
				},
				"start_line": {
					Type:        "integer",
					Description: "First line to replace (1-based). Requires end_line.",
				},
				"end_line": {
					Type:        "integer",
					Description: "Last line to replace (inclusive). Requires start_line.",
				},
			},
			Required: []string{"path", "content"},
		},
	}
}

// Exec executes the tool with the given arguments.
func (t *WriteFileTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return nil, err
	}
	content, ok := args["content"].(string)
	if !ok {
		return nil, fmt.Errorf("content is required and must be a string")
	}

	fullPath, err := resolveWorkspacePath(t.workspaceRoot, path)
	if err != nil {
		return errorResult(err.Error())
	}

	_, hasStart := args["start_line"]
	_, hasEnd := args["end_line"]
	if hasStart != hasEnd {
		return errorResult("start_line and end_line must be provided together")
	}

	if hasStart {
		return t.spliceLines(fullPath, path, content,
			intArgOrDefault(args, "start_line", 1),
			intArgOrDefault(args, "end_line", 1))
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return errorResult(fmt.Sprintf("cannot create parent directory for %s: %v", path, err))
	}
	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		return errorResult(fmt.Sprintf("cannot write %s: %v", path, err))
	}

	return jsonResult(map[string]any{
		"success": true,
		"path":    path,
		"mode":    "overwrite",
		"bytes":   len(content),
	})
}

// spliceLines replaces lines [startLine, endLine] of an existing file with content.
func (t *WriteFileTool) spliceLines(fullPath, path, content string, startLine, endLine int) (*ExecResult, error) {
	if endLine < startLine {
		return errorResult(fmt.Sprintf("end_line (%d) must not precede start_line (%d)", endLine, startLine))
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return errorResult(fmt.Sprintf("cannot splice into %s: %v", path, err))
	}

	lines := strings.Split(string(data), "\n")
	// A trailing newline yields a final empty element; drop it and restore later.
	trailingNewline := len(lines) > 0 && lines[len(lines)-1] == ""
	if trailingNewline {
		lines = lines[:len(lines)-1]
	}

	if startLine > len(lines) {
		return errorResult(fmt.Sprintf("start_line %d is beyond end of file (%d lines)", startLine, len(lines)))
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}

	newLines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	spliced := make([]string, 0, len(lines)-(endLine-startLine+1)+len(newLines))
	spliced = append(spliced, lines[:startLine-1]...)
	spliced = append(spliced, newLines...)
	spliced = append(spliced, lines[endLine:]...)

	out := strings.Join(spliced, "\n")
	if trailingNewline {
		out += "\n"
	}

	if err := os.WriteFile(fullPath, []byte(out), 0644); err != nil {
		return errorResult(fmt.Sprintf("cannot write %s: %v", path, err))
	}

	return jsonResult(map[string]any{
		"success":    true,
		"path":       path,
		"mode":       "splice",
		"start_line": startLine,
		"end_line":   endLine,
		"new_lines":  len(newLines),
	})
}
