// Package tools provides the tool registry and the workspace tool implementations
// exposed to LLM reasoning loops.
package tools

import (
	"context"
)

// Tool name constants.
const (
	ToolGetProjectStructure = "get_project_structure"
	ToolListFiles           = "list_files"
	ToolReadFile            = "read_file"
	ToolGetFileOutline      = "get_file_outline"
	ToolWriteFile           = "write_to_file"
	ToolCreateFile          = "create_file"
	ToolDeleteFile          = "delete_file"
	ToolCreateDirectory     = "create_directory"
	ToolDeleteDirectory     = "delete_directory"
	ToolShell               = "shell"
	ToolSubmitPlan          = "submit_plan"
)

// Scope identifies which execution mode a tool is available in.
type Scope string

const (
	// ScopePlanner covers the planning phase: read-only inspection plus plan submission.
	ScopePlanner Scope = "planner"
	// ScopeAsk covers question answering: read-only inspection.
	ScopeAsk Scope = "ask"
	// ScopeEdit covers targeted file modification.
	ScopeEdit Scope = "edit"
	// ScopeAgent covers autonomous multi-step work: the full toolset.
	ScopeAgent Scope = "agent"
)

// Property defines a single parameter in a tool's input schema.
type Property struct {
	Type        string               `json:"type"`
	Description string               `json:"description,omitempty"`
	Enum        []string             `json:"enum,omitempty"`
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
}

// InputSchema is a JSON Schema fragment describing a tool's parameters.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// ToolDefinition is the provider-facing description of a tool.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"input_schema"`
}

// ExecResult is the outcome of a tool execution, serialized for the model.
type ExecResult struct {
	Content string
}

// Tool is the interface all workspace tools implement.
type Tool interface {
	// Name returns the tool name.
	Name() string

	// Definition returns the tool definition for the LLM.
	Definition() ToolDefinition

	// Exec executes the tool with the given arguments.
	Exec(ctx context.Context, args map[string]any) (*ExecResult, error)

	// PromptDocumentation returns formatted tool documentation for prompts.
	PromptDocumentation() string
}
