package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	execpkg "opendev/pkg/exec"
)

func TestToolsForScope(t *testing.T) {
	planner := ToolsForScope(ScopePlanner)
	assert.Contains(t, planner, ToolSubmitPlan)
	assert.Contains(t, planner, ToolGetProjectStructure)
	assert.NotContains(t, planner, ToolWriteFile)
	assert.NotContains(t, planner, ToolShell)

	ask := ToolsForScope(ScopeAsk)
	assert.Contains(t, ask, ToolReadFile)
	assert.NotContains(t, ask, ToolWriteFile)
	assert.NotContains(t, ask, ToolSubmitPlan)

	edit := ToolsForScope(ScopeEdit)
	assert.Contains(t, edit, ToolWriteFile)
	assert.Contains(t, edit, ToolReadFile)
	assert.NotContains(t, edit, ToolDeleteDirectory)

	agent := ToolsForScope(ScopeAgent)
	assert.Contains(t, agent, ToolShell)
	assert.Contains(t, agent, ToolCreateFile)
	assert.Contains(t, agent, ToolDeleteDirectory)
	assert.NotContains(t, agent, ToolSubmitPlan)
}

func TestProviderAllowList(t *testing.T) {
	ctx := AgentContext{WorkDir: t.TempDir()}
	provider := NewProvider(ctx, []string{ToolReadFile})

	tool, err := provider.Get(ToolReadFile)
	require.NoError(t, err)
	assert.Equal(t, ToolReadFile, tool.Name())

	_, err = provider.Get(ToolShell)
	assert.Error(t, err)

	_, err = provider.Get("no_such_tool")
	assert.Error(t, err)
}

func TestProviderCachesInstances(t *testing.T) {
	ctx := AgentContext{WorkDir: t.TempDir()}
	provider := NewProvider(ctx, []string{ToolListFiles})

	first, err := provider.Get(ToolListFiles)
	require.NoError(t, err)
	second, err := provider.Get(ToolListFiles)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestScopeProviderForcesReadOnly(t *testing.T) {
	ctx := AgentContext{WorkDir: t.TempDir(), Executor: execpkg.NewLocalExec()}

	askProvider := NewProviderForScope(ctx, ScopeAsk)
	_, err := askProvider.Get(ToolWriteFile)
	assert.Error(t, err, "write tool must not be reachable from ask scope")

	agentProvider := NewProviderForScope(ctx, ScopeAgent)
	_, err = agentProvider.Get(ToolWriteFile)
	require.NoError(t, err)
}

func TestProviderDefinitions(t *testing.T) {
	ctx := AgentContext{WorkDir: t.TempDir()}
	provider := NewProviderForScope(ctx, ScopePlanner)

	defs := provider.Definitions()
	require.NotEmpty(t, defs)
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		assert.NotEmpty(t, def.Description)
		assert.Equal(t, "object", def.InputSchema.Type)
		names = append(names, def.Name)
	}
	assert.Contains(t, names, ToolSubmitPlan)
}

func TestGenerateToolDocumentation(t *testing.T) {
	ctx := AgentContext{WorkDir: t.TempDir()}
	provider := NewProviderForScope(ctx, ScopeAsk)

	doc := provider.GenerateToolDocumentation()
	assert.Contains(t, doc, "## Available Tools")
	assert.Contains(t, doc, ToolReadFile)

	assert.Equal(t, "No tools available", GenerateToolDocumentationForTools(nil))
}

func TestListToolsSorted(t *testing.T) {
	metas := ListTools()
	require.NotEmpty(t, metas)
	for i := 1; i < len(metas); i++ {
		assert.LessOrEqual(t, metas[i-1].Name, metas[i].Name)
	}
}
