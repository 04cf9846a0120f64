package tools

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	execpkg "opendev/pkg/exec"
)

// AgentContext contains mode-specific configuration for tool creation.
//
//nolint:govet // fieldalignment: Logical grouping preferred over memory optimization
type AgentContext struct {
	Executor        execpkg.Executor
	ReadOnly        bool
	NetworkDisabled bool
	WorkDir         string
}

// ToolFactory creates a tool instance configured for a specific context.
type ToolFactory func(ctx AgentContext) (Tool, error)

// ToolMeta contains metadata about a tool for documentation and discovery.
type ToolMeta struct {
	Name        string
	Description string
	InputSchema InputSchema
	Scopes      []Scope
}

// HasScope reports whether the tool is available in the given scope.
func (m *ToolMeta) HasScope(scope Scope) bool {
	for _, s := range m.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// toolDescriptor contains the factory and metadata for a tool.
//
//nolint:govet // fieldalignment: Logical grouping preferred over memory optimization
type toolDescriptor struct {
	meta    ToolMeta
	factory ToolFactory
}

// immutableRegistry is the global, read-only tool registry.
//
//nolint:govet // fieldalignment: Logical grouping preferred over memory optimization
type immutableRegistry struct {
	mu     sync.RWMutex
	sealed bool
	tools  map[string]toolDescriptor
}

// Global registry instance - populated in init().
//
//nolint:gochecknoglobals // Factory pattern requires global registry
var globalRegistry = &immutableRegistry{
	tools: make(map[string]toolDescriptor),
}

// Register adds a tool factory to the global registry.
// Panics if called after the registry is sealed.
func Register(name string, factory ToolFactory, meta *ToolMeta) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	if globalRegistry.sealed {
		panic(fmt.Sprintf("tool registry sealed - cannot register tool '%s'", name))
	}

	globalRegistry.tools[name] = toolDescriptor{
		meta:    *meta,
		factory: factory,
	}
}

// Seal prevents further tool registrations.
// Called automatically when the first ToolProvider is created.
func Seal() {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.sealed = true
}

// ListTools returns metadata for all registered tools, sorted by name.
func ListTools() []ToolMeta {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	result := make([]ToolMeta, 0, len(globalRegistry.tools))
	//nolint:gocritic // rangeValCopy: Direct access is clearer than pointer dereferencing
	for _, desc := range globalRegistry.tools {
		result = append(result, desc.meta)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// ToolsForScope returns the names of all tools available in a scope, sorted.
func ToolsForScope(scope Scope) []string {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	var names []string
	for name, desc := range globalRegistry.tools {
		if desc.meta.HasScope(scope) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ToolProvider creates and manages tool instances for a specific mode context.
//
//nolint:govet // fieldalignment: Logical grouping preferred over memory optimization
type ToolProvider struct {
	ctx      AgentContext
	tools    map[string]Tool
	allowSet map[string]struct{}
	mu       sync.Mutex
}

// NewProvider creates a new ToolProvider for the given context and allowed tools.
// Automatically seals the global registry on first use.
func NewProvider(ctx AgentContext, allowedTools []string) *ToolProvider {
	Seal() // Ensure registry is immutable

	allowSet := make(map[string]struct{}, len(allowedTools))
	for _, name := range allowedTools {
		allowSet[name] = struct{}{}
	}

	return &ToolProvider{
		ctx:      ctx,
		tools:    make(map[string]Tool),
		allowSet: allowSet,
	}
}

// NewProviderForScope creates a ToolProvider whose allow set is every tool
// tagged with the scope. Read-only scopes force ReadOnly on the context.
func NewProviderForScope(ctx AgentContext, scope Scope) *ToolProvider {
	if scope == ScopeAsk || scope == ScopePlanner {
		ctx.ReadOnly = true
	}
	return NewProvider(ctx, ToolsForScope(scope))
}

// Get retrieves a tool instance, creating it lazily if needed.
func (p *ToolProvider) Get(name string) (Tool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.allowSet[name]; !ok {
		return nil, fmt.Errorf("tool '%s' not allowed in this context", name)
	}

	if tool, ok := p.tools[name]; ok {
		return tool, nil
	}

	globalRegistry.mu.RLock()
	desc, exists := globalRegistry.tools[name]
	globalRegistry.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("tool '%s' not registered", name)
	}

	tool, err := desc.factory(p.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool '%s': %w", name, err)
	}

	p.tools[name] = tool
	return tool, nil
}

// Must is like Get but panics on error. Use for tools that must exist.
func (p *ToolProvider) Must(name string) Tool {
	tool, err := p.Get(name)
	if err != nil {
		panic(err)
	}
	return tool
}

// List returns metadata for all allowed tools, sorted by name.
func (p *ToolProvider) List() []ToolMeta {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	result := make([]ToolMeta, 0, len(p.allowSet))
	for name := range p.allowSet {
		if desc, ok := globalRegistry.tools[name]; ok {
			result = append(result, desc.meta)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Definitions returns the LLM tool definitions for all allowed tools.
func (p *ToolProvider) Definitions() []ToolDefinition {
	metas := p.List()
	defs := make([]ToolDefinition, 0, len(metas))
	//nolint:gocritic // rangeValCopy: Direct access is clearer than pointer dereferencing
	for _, meta := range metas {
		defs = append(defs, ToolDefinition{
			Name:        meta.Name,
			Description: meta.Description,
			InputSchema: meta.InputSchema,
		})
	}
	return defs
}

// GenerateToolDocumentation generates tool documentation for this provider's allowed tools.
func (p *ToolProvider) GenerateToolDocumentation() string {
	return GenerateToolDocumentationForTools(p.List())
}

// GenerateToolDocumentationForTools creates markdown documentation for the provided tool metadata.
func GenerateToolDocumentationForTools(tools []ToolMeta) string {
	if len(tools) == 0 {
		return "No tools available"
	}

	var doc strings.Builder
	doc.WriteString("## Available Tools\n\n")

	//nolint:gocritic // rangeValCopy: Direct access is clearer than pointer dereferencing
	for _, meta := range tools {
		doc.WriteString(fmt.Sprintf("- **%s** - %s\n", meta.Name, meta.Description))
	}

	return doc.String()
}

// TOOL FACTORY FUNCTIONS

func createProjectStructureTool(ctx AgentContext) (Tool, error) {
	return NewProjectStructureTool(ctx.WorkDir), nil
}

func createListFilesTool(ctx AgentContext) (Tool, error) {
	return NewListFilesTool(ctx.WorkDir), nil
}

func createReadFileTool(ctx AgentContext) (Tool, error) {
	return NewReadFileTool(ctx.WorkDir, 0), nil
}

func createFileOutlineTool(ctx AgentContext) (Tool, error) {
	return NewFileOutlineTool(ctx.WorkDir), nil
}

func createWriteFileTool(ctx AgentContext) (Tool, error) {
	if ctx.ReadOnly {
		return nil, fmt.Errorf("write_to_file not available in read-only context")
	}
	return NewWriteFileTool(ctx.WorkDir), nil
}

func createFileOpsTool(name string) ToolFactory {
	return func(ctx AgentContext) (Tool, error) {
		if ctx.ReadOnly {
			return nil, fmt.Errorf("%s not available in read-only context", name)
		}
		return NewFileOpsTool(name, ctx.WorkDir), nil
	}
}

func createShellTool(ctx AgentContext) (Tool, error) {
	if ctx.Executor == nil {
		return nil, fmt.Errorf("shell tool requires an executor")
	}
	return NewShellTool(ctx.Executor, ctx.WorkDir, ctx.ReadOnly, ctx.NetworkDisabled), nil
}

func createSubmitPlanTool(_ AgentContext) (Tool, error) {
	return NewSubmitPlanTool(), nil
}

// init registers all tools in the global registry using the factory pattern.
//
//nolint:gochecknoinits // Factory pattern requires init() for tool registration
func init() {
	Register(ToolGetProjectStructure, createProjectStructureTool, &ToolMeta{
		Name:        ToolGetProjectStructure,
		Description: "Render the workspace directory tree, pruning dotfiles and build artifacts",
		InputSchema: NewProjectStructureTool("").Definition().InputSchema,
		Scopes:      []Scope{ScopePlanner, ScopeAsk, ScopeAgent},
	})

	Register(ToolListFiles, createListFilesTool, &ToolMeta{
		Name:        ToolListFiles,
		Description: "List files and directories at a path within the workspace",
		InputSchema: NewListFilesTool("").Definition().InputSchema,
		Scopes:      []Scope{ScopePlanner, ScopeAsk, ScopeAgent},
	})

	Register(ToolReadFile, createReadFileTool, &ToolMeta{
		Name:        ToolReadFile,
		Description: "Read contents of a file from the workspace with numbered lines",
		InputSchema: NewReadFileTool("", 0).Definition().InputSchema,
		Scopes:      []Scope{ScopeAsk, ScopeEdit, ScopeAgent},
	})

	Register(ToolGetFileOutline, createFileOutlineTool, &ToolMeta{
		Name:        ToolGetFileOutline,
		Description: "Show top-level declarations of a file (lines with no leading whitespace)",
		InputSchema: NewFileOutlineTool("").Definition().InputSchema,
		Scopes:      []Scope{ScopePlanner, ScopeAsk, ScopeEdit, ScopeAgent},
	})

	Register(ToolWriteFile, createWriteFileTool, &ToolMeta{
		Name:        ToolWriteFile,
		Description: "Write a file: full overwrite, or splice a line range when start_line/end_line are given",
		InputSchema: NewWriteFileTool("").Definition().InputSchema,
		Scopes:      []Scope{ScopeEdit, ScopeAgent},
	})

	for _, name := range []string{ToolCreateFile, ToolDeleteFile, ToolCreateDirectory, ToolDeleteDirectory} {
		Register(name, createFileOpsTool(name), &ToolMeta{
			Name:        name,
			Description: NewFileOpsTool(name, "").Definition().Description,
			InputSchema: NewFileOpsTool(name, "").Definition().InputSchema,
			Scopes:      []Scope{ScopeAgent},
		})
	}

	Register(ToolShell, createShellTool, &ToolMeta{
		Name:        ToolShell,
		Description: "Execute a shell command in the workspace and return the output",
		InputSchema: NewShellTool(nil, "", false, false).Definition().InputSchema,
		Scopes:      []Scope{ScopeAgent},
	})

	Register(ToolSubmitPlan, createSubmitPlanTool, &ToolMeta{
		Name:        ToolSubmitPlan,
		Description: "Submit the final planning decision: either a direct response or an execution plan",
		InputSchema: NewSubmitPlanTool().Definition().InputSchema,
		Scopes:      []Scope{ScopePlanner},
	})
}
