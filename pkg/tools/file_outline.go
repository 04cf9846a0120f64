package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// FileOutlineTool shows the top-level structure of a file: every non-blank
// line with no leading whitespace, prefixed with its line number. For most
// languages this surfaces declarations without the bodies.
type FileOutlineTool struct {
	workspaceRoot string
}

// NewFileOutlineTool creates a new get_file_outline tool.
func NewFileOutlineTool(workspaceRoot string) *FileOutlineTool {
	return &FileOutlineTool{workspaceRoot: workspaceRoot}
}

// Name returns the tool name.
func (t *FileOutlineTool) Name() string {
	return ToolGetFileOutline
}

// PromptDocumentation returns formatted tool documentation for prompts.
func (t *FileOutlineTool) PromptDocumentation() string {
	return `- **get_file_outline** - Show top-level declarations of a file
  - Parameters:
    - path (string, REQUIRED): relative path to file within workspace
  - Returns non-blank lines with no leading whitespace, with line numbers`
}

// Definition returns the tool definition for the LLM.
func (t *FileOutlineTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolGetFileOutline,
		Description: "Show the top-level structure of a file: non-blank lines with no leading whitespace, with line numbers. Useful before reading or editing specific sections.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"path": {
					Type:        "string",
					Description: "Relative path to file within workspace",
				},
			},
			Required: []string{"path"},
		},
	}
}

// Exec executes the tool with the given arguments.
func (t *FileOutlineTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return nil, err
	}

	fullPath, err := resolveWorkspacePath(t.workspaceRoot, path)
	if err != nil {
		return errorResult(err.Error())
	}

	f, err := os.Open(fullPath)
	if err != nil {
		return errorResult(fmt.Sprintf("file not found or not readable: %s (error: %v)", path, err))
	}
	defer f.Close()

	var out strings.Builder
	lineNum := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			continue
		}
		if len(line) > maxLineLength {
			line = line[:maxLineLength]
		}
		fmt.Fprintf(&out, "%6d\t%s\n", lineNum, line)
	}
	if err := scanner.Err(); err != nil {
		return errorResult(fmt.Sprintf("failed reading %s: %v", path, err))
	}

	return jsonResult(map[string]any{
		"success":     true,
		"path":        path,
		"outline":     out.String(),
		"total_lines": lineNum,
	})
}
