package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeResult(t *testing.T, res *ExecResult) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Content), &m))
	return m
}

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "hello.txt", "alpha\nbeta\ngamma\n")

	tool := NewReadFileTool(dir, 0)
	res, err := tool.Exec(context.Background(), map[string]any{"path": "hello.txt"})
	require.NoError(t, err)

	m := decodeResult(t, res)
	assert.Equal(t, true, m["success"])
	assert.Contains(t, m["content"], "1\talpha")
	assert.Contains(t, m["content"], "3\tgamma")
	assert.Equal(t, float64(3), m["total_lines"])
	assert.Equal(t, false, m["truncated"])
}

func TestReadFileOffsetLimit(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "lines.txt", "l1\nl2\nl3\nl4\nl5\n")

	tool := NewReadFileTool(dir, 0)
	res, err := tool.Exec(context.Background(), map[string]any{
		"path":   "lines.txt",
		"offset": float64(2),
		"limit":  float64(2),
	})
	require.NoError(t, err)

	m := decodeResult(t, res)
	content := m["content"].(string)
	assert.Contains(t, content, "l2")
	assert.Contains(t, content, "l3")
	assert.NotContains(t, content, "l1")
	assert.NotContains(t, content, "l4")
	assert.Equal(t, true, m["truncated"])
}

func TestReadFileMissing(t *testing.T) {
	tool := NewReadFileTool(t.TempDir(), 0)
	res, err := tool.Exec(context.Background(), map[string]any{"path": "absent.txt"})
	require.NoError(t, err)
	m := decodeResult(t, res)
	assert.Equal(t, false, m["success"])
}

func TestReadFileTraversalRejected(t *testing.T) {
	tool := NewReadFileTool(t.TempDir(), 0)
	res, err := tool.Exec(context.Background(), map[string]any{"path": "../etc/passwd"})
	require.NoError(t, err)
	m := decodeResult(t, res)
	assert.Equal(t, false, m["success"])

	res, err = tool.Exec(context.Background(), map[string]any{"path": "/etc/passwd"})
	require.NoError(t, err)
	m = decodeResult(t, res)
	assert.Equal(t, false, m["success"])
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.go", "")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))

	tool := NewListFilesTool(dir)
	res, err := tool.Exec(context.Background(), map[string]any{})
	require.NoError(t, err)

	m := decodeResult(t, res)
	assert.Equal(t, true, m["success"])
	entries := m["entries"].([]any)
	assert.Contains(t, entries, "a.go")
	assert.Contains(t, entries, "sub/")
}

func TestProjectStructure(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "main.go", "")
	writeTestFile(t, dir, "pkg/util/util.go", "")
	writeTestFile(t, dir, ".hidden/secret.txt", "")
	writeTestFile(t, dir, "node_modules/lib/index.js", "")

	tool := NewProjectStructureTool(dir)
	res, err := tool.Exec(context.Background(), map[string]any{})
	require.NoError(t, err)

	m := decodeResult(t, res)
	tree := m["tree"].(string)
	assert.Contains(t, tree, "main.go")
	assert.Contains(t, tree, "pkg/")
	assert.Contains(t, tree, "util.go")
	assert.NotContains(t, tree, ".hidden")
	assert.NotContains(t, tree, "node_modules")
}

func TestProjectStructureDepthLimit(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a/b/c/deep.txt", "")

	tool := NewProjectStructureTool(dir)
	res, err := tool.Exec(context.Background(), map[string]any{"max_depth": float64(2)})
	require.NoError(t, err)

	tree := decodeResult(t, res)["tree"].(string)
	assert.Contains(t, tree, "b/")
	assert.NotContains(t, tree, "deep.txt")
}

func TestFileOutline(t *testing.T) {
	dir := t.TempDir()
	source := "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"x\")\n}\n\ntype Thing struct {\n\tField int\n}\n"
	writeTestFile(t, dir, "main.go", source)

	tool := NewFileOutlineTool(dir)
	res, err := tool.Exec(context.Background(), map[string]any{"path": "main.go"})
	require.NoError(t, err)

	m := decodeResult(t, res)
	outline := m["outline"].(string)
	assert.Contains(t, outline, "func main()")
	assert.Contains(t, outline, "type Thing struct")
	assert.NotContains(t, outline, "fmt.Println")
	assert.NotContains(t, outline, "Field int")
}

func TestWriteFileOverwrite(t *testing.T) {
	dir := t.TempDir()
	tool := NewWriteFileTool(dir)

	res, err := tool.Exec(context.Background(), map[string]any{
		"path":    "new/dir/file.txt",
		"content": "fresh content",
	})
	require.NoError(t, err)
	assert.Equal(t, true, decodeResult(t, res)["success"])

	data, err := os.ReadFile(filepath.Join(dir, "new/dir/file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "fresh content", string(data))
}

func TestWriteFileSplice(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "code.txt", "one\ntwo\nthree\nfour\n")

	tool := NewWriteFileTool(dir)
	res, err := tool.Exec(context.Background(), map[string]any{
		"path":       "code.txt",
		"content":    "TWO\nTWO-B",
		"start_line": float64(2),
		"end_line":   float64(3),
	})
	require.NoError(t, err)
	assert.Equal(t, true, decodeResult(t, res)["success"])

	data, err := os.ReadFile(filepath.Join(dir, "code.txt"))
	require.NoError(t, err)
	assert.Equal(t, "one\nTWO\nTWO-B\nfour\n", string(data))
}

func TestWriteFileSpliceErrors(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "short.txt", "only\n")
	tool := NewWriteFileTool(dir)

	// start without end
	res, err := tool.Exec(context.Background(), map[string]any{
		"path": "short.txt", "content": "x", "start_line": float64(1),
	})
	require.NoError(t, err)
	assert.Equal(t, false, decodeResult(t, res)["success"])

	// range beyond file
	res, err = tool.Exec(context.Background(), map[string]any{
		"path": "short.txt", "content": "x", "start_line": float64(5), "end_line": float64(6),
	})
	require.NoError(t, err)
	assert.Equal(t, false, decodeResult(t, res)["success"])

	// splice into missing file
	res, err = tool.Exec(context.Background(), map[string]any{
		"path": "missing.txt", "content": "x", "start_line": float64(1), "end_line": float64(1),
	})
	require.NoError(t, err)
	assert.Equal(t, false, decodeResult(t, res)["success"])
}

func TestFileOps(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	create := NewFileOpsTool(ToolCreateFile, dir)
	res, err := create.Exec(ctx, map[string]any{"path": "sub/made.txt"})
	require.NoError(t, err)
	assert.Equal(t, true, decodeResult(t, res)["success"])
	assert.FileExists(t, filepath.Join(dir, "sub/made.txt"))

	// creating the same file again fails
	res, err = create.Exec(ctx, map[string]any{"path": "sub/made.txt"})
	require.NoError(t, err)
	assert.Equal(t, false, decodeResult(t, res)["success"])

	mkdir := NewFileOpsTool(ToolCreateDirectory, dir)
	res, err = mkdir.Exec(ctx, map[string]any{"path": "newdir/nested"})
	require.NoError(t, err)
	assert.Equal(t, true, decodeResult(t, res)["success"])
	assert.DirExists(t, filepath.Join(dir, "newdir/nested"))

	del := NewFileOpsTool(ToolDeleteFile, dir)
	res, err = del.Exec(ctx, map[string]any{"path": "sub/made.txt"})
	require.NoError(t, err)
	assert.Equal(t, true, decodeResult(t, res)["success"])
	assert.NoFileExists(t, filepath.Join(dir, "sub/made.txt"))

	// delete_file on a directory is rejected
	res, err = del.Exec(ctx, map[string]any{"path": "newdir"})
	require.NoError(t, err)
	assert.Equal(t, false, decodeResult(t, res)["success"])

	rmdir := NewFileOpsTool(ToolDeleteDirectory, dir)
	res, err = rmdir.Exec(ctx, map[string]any{"path": "newdir"})
	require.NoError(t, err)
	assert.Equal(t, true, decodeResult(t, res)["success"])
	assert.NoDirExists(t, filepath.Join(dir, "newdir"))
}
