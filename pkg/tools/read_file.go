package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

const (
	defaultReadLines   = 2000 // Default number of lines to read
	maxLineLength      = 2000 // Truncate lines longer than this
	defaultStartOffset = 1    // 1-based line numbering
	defaultMaxBytes    = 1048576
)

// ReadFileTool reads file contents from the workspace.
type ReadFileTool struct {
	workspaceRoot string
	maxSizeBytes  int64 // Safety cap on total output bytes
}

// NewReadFileTool creates a new read_file tool.
func NewReadFileTool(workspaceRoot string, maxSizeBytes int64) *ReadFileTool {
	if maxSizeBytes <= 0 {
		maxSizeBytes = defaultMaxBytes
	}
	return &ReadFileTool{
		workspaceRoot: workspaceRoot,
		maxSizeBytes:  maxSizeBytes,
	}
}

// Name returns the tool name.
func (t *ReadFileTool) Name() string {
	return ToolReadFile
}

// PromptDocumentation returns formatted tool documentation for prompts.
func (t *ReadFileTool) PromptDocumentation() string {
	return `- **read_file** - Read contents of a file from the workspace
  - Parameters:
    - path (string, REQUIRED): relative path to file within workspace
    - offset (integer, optional): line number to start from (1-based, default: 1)
    - limit (integer, optional): number of lines to read (default: 2000)
  - Output uses numbered lines (cat -n format)
  - Lines longer than 2000 characters are truncated
  - For large files, use offset and limit to read specific sections`
}

// Definition returns the tool definition for the LLM.
func (t *ReadFileTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolReadFile,
		Description: "Read contents of a file from the workspace. Output uses numbered lines. For large files, use offset and limit to read specific sections.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"path": {
					Type:        "string",
					Description: "Relative path to file within workspace",
				},
				"offset": {
					Type:        "integer",
					Description: "Line number to start reading from (1-based). Defaults to 1.",
				},
				"limit": {
					Type:        "integer",
					Description: "Number of lines to read. Defaults to 2000.",
				},
			},
			Required: []string{"path"},
		},
	}
}

// Exec executes the tool with the given arguments.
func (t *ReadFileTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return nil, err
	}

	offset := intArgOrDefault(args, "offset", defaultStartOffset)
	limit := intArgOrDefault(args, "limit", defaultReadLines)

	fullPath, err := resolveWorkspacePath(t.workspaceRoot, path)
	if err != nil {
		return errorResult(err.Error())
	}

	f, err := os.Open(fullPath)
	if err != nil {
		return errorResult(fmt.Sprintf("file not found or not readable: %s (error: %v)", path, err))
	}
	defer f.Close()

	endLine := offset + limit - 1
	var out strings.Builder
	totalLines := 0
	truncated := false

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		totalLines++
		if totalLines < offset || totalLines > endLine {
			continue
		}
		line := scanner.Text()
		if len(line) > maxLineLength {
			line = line[:maxLineLength]
		}
		if int64(out.Len()) < t.maxSizeBytes {
			fmt.Fprintf(&out, "%6d\t%s\n", totalLines, line)
		} else {
			truncated = true
		}
	}
	if err := scanner.Err(); err != nil {
		return errorResult(fmt.Sprintf("failed reading %s: %v", path, err))
	}
	if totalLines > endLine {
		truncated = true
	}

	content := out.String()
	if int64(len(content)) > t.maxSizeBytes {
		content = content[:t.maxSizeBytes]
		truncated = true
	}

	return jsonResult(map[string]any{
		"success":     true,
		"content":     content,
		"path":        path,
		"truncated":   truncated,
		"offset":      offset,
		"limit":       limit,
		"total_lines": totalLines,
	})
}
