package tools

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const defaultTreeDepth = 6

// prunedDirs are never descended into when rendering the tree.
//
//nolint:gochecknoglobals // Static lookup table
var prunedDirs = map[string]struct{}{
	"node_modules": {},
	"vendor":       {},
	"__pycache__":  {},
	"dist":         {},
	"target":       {},
}

// ProjectStructureTool renders the workspace directory tree.
type ProjectStructureTool struct {
	workspaceRoot string
}

// NewProjectStructureTool creates a new get_project_structure tool.
func NewProjectStructureTool(workspaceRoot string) *ProjectStructureTool {
	return &ProjectStructureTool{workspaceRoot: workspaceRoot}
}

// Name returns the tool name.
func (t *ProjectStructureTool) Name() string {
	return ToolGetProjectStructure
}

// PromptDocumentation returns formatted tool documentation for prompts.
func (t *ProjectStructureTool) PromptDocumentation() string {
	return `- **get_project_structure** - Render the workspace directory tree
  - Parameters:
    - max_depth (integer, optional): directory depth limit (default: 6)
  - Hidden entries and dependency/build directories are pruned`
}

// Definition returns the tool definition for the LLM.
func (t *ProjectStructureTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolGetProjectStructure,
		Description: "Render the workspace directory tree. Hidden entries and dependency/build directories are pruned.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"max_depth": {
					Type:        "integer",
					Description: "Directory depth limit. Defaults to 6.",
				},
			},
		},
	}
}

// Exec executes the tool with the given arguments.
func (t *ProjectStructureTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	maxDepth := intArgOrDefault(args, "max_depth", defaultTreeDepth)

	root := t.workspaceRoot
	if root == "" {
		root = "."
	}

	var sb strings.Builder
	sb.WriteString(filepath.Base(root) + "/\n")
	if err := t.renderDir(root, "", 1, maxDepth, &sb); err != nil {
		return errorResult(err.Error())
	}

	return jsonResult(map[string]any{
		"success": true,
		"tree":    sb.String(),
	})
}

func (t *ProjectStructureTool) renderDir(dir, indent string, depth, maxDepth int, sb *strings.Builder) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	visible := make([]os.DirEntry, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if _, pruned := prunedDirs[name]; pruned && entry.IsDir() {
			continue
		}
		visible = append(visible, entry)
	}
	// Directories first, then files, each alphabetical.
	sort.Slice(visible, func(i, j int) bool {
		if visible[i].IsDir() != visible[j].IsDir() {
			return visible[i].IsDir()
		}
		return visible[i].Name() < visible[j].Name()
	})

	for i, entry := range visible {
		connector := "├── "
		childIndent := indent + "│   "
		if i == len(visible)-1 {
			connector = "└── "
			childIndent = indent + "    "
		}

		if entry.IsDir() {
			sb.WriteString(indent + connector + entry.Name() + "/\n")
			if depth < maxDepth {
				// Unreadable subdirectories are skipped, not fatal.
				_ = t.renderDir(filepath.Join(dir, entry.Name()), childIndent, depth+1, maxDepth, sb)
			}
		} else {
			sb.WriteString(indent + connector + entry.Name() + "\n")
		}
	}
	return nil
}
