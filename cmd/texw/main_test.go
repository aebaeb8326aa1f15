package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v3"

	"github.com/eolymp/go-latex-editor/state"
)

type harness struct {
	t      *testing.T
	dir    string
	config string
}

func newHarness(t *testing.T, engine string) *harness {
	t.Helper()

	dir := t.TempDir()
	if engine == "" {
		engine = "tectonic"
	}

	content := `version: 1
editor:
  image_width_default: 0.5
compile:
  engine: ` + engine + `
sharing:
  frontend_url: http://front.example.com
store:
  path: ` + filepath.Join(dir, "texw.db") + `
logging:
  console:
    level: none
  file:
    level: none
`
	config := filepath.Join(dir, "texw.yaml")
	require.NoError(t, os.WriteFile(config, []byte(content), 0o644))

	return &harness{t: t, dir: dir, config: config}
}

func (h *harness) file(name, content string) string {
	h.t.Helper()

	path := filepath.Join(h.dir, name)
	require.NoError(h.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (h *harness) read(path string) string {
	h.t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(h.t, err)
	return string(data)
}

func (h *harness) run(stdin string, args ...string) (string, error) {
	app := newApp()

	out := &bytes.Buffer{}
	app.Writer = out
	app.ErrWriter = &bytes.Buffer{}
	app.Reader = strings.NewReader(stdin)

	err := app.Run(state.ContextWithEnv(context.Background()), append([]string{"texw", "--config", h.config}, args...))
	return out.String(), err
}

func TestInspect(t *testing.T) {
	h := newHarness(t, "")
	src := h.file("doc.tex", "Intro\n\\vspace{2cm}\n$\\sum_{i=1}^{n} i$\n\\vspace{}\n")

	out, err := h.run("", "inspect", src)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "layout")
	assert.Contains(t, lines[2], "sum")
	assert.Contains(t, lines[3], "(verbatim)")

	out, err = h.run("\\\\[2mm]", "inspect", "--yaml", "-")
	require.NoError(t, err)

	var nodes []nodeReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &nodes))
	require.Len(t, nodes, 1)
	assert.Equal(t, "linebreak", nodes[0].Kind)
	assert.Equal(t, 1, nodes[0].Position)
	assert.True(t, nodes[0].Recognized)
	assert.Equal(t, "2mm", nodes[0].Attributes["spacing"])
}

func TestEdit(t *testing.T) {
	h := newHarness(t, "")
	src := h.file("doc.tex", "A\n\\vspace{2cm}\nB\\vfill C")

	out, err := h.run("", "edit", "--node", "1", "--set", "magnitude=1cm", "--output", "-", src)
	require.NoError(t, err)
	assert.Equal(t, "A\n\\vspace{1cm}\nB\\vfill C", out)

	// source is untouched when output is given
	assert.Equal(t, "A\n\\vspace{2cm}\nB\\vfill C", h.read(src))

	_, err = h.run("", "edit", "--node", "2", "--delete", src)
	require.NoError(t, err)
	assert.Equal(t, "A\n\\vspace{2cm}\nB C", h.read(src))

	out, err = h.run("", "edit", "--node", "1", "--fields", src)
	require.NoError(t, err)
	assert.Contains(t, out, "magnitude")
	assert.Contains(t, out, `"2cm"`)
}

func TestEditErrors(t *testing.T) {
	h := newHarness(t, "")
	src := h.file("doc.tex", "\\vspace{2cm}")

	_, err := h.run("", "edit", "--node", "2", src)
	assert.ErrorContains(t, err, "does not exist")

	_, err = h.run("", "edit", "--node", "1", "--set", "magnitude", src)
	assert.ErrorContains(t, err, "malformed assignment")

	_, err = h.run("", "edit", "--node", "1", "--set", "colour=red", src)
	assert.Error(t, err)

	_, err = h.run("", "edit", "--node", "1")
	assert.ErrorContains(t, err, "no SOURCE")

	// nothing was written
	assert.Equal(t, "\\vspace{2cm}", h.read(src))
}

func TestInsert(t *testing.T) {
	h := newHarness(t, "")
	src := h.file("doc.tex", "A\\vfill B")

	out, err := h.run("", "insert", "--kind", "linebreak", "--after", "1", "-o", "-", src)
	require.NoError(t, err)
	assert.Equal(t, "A\\vfill\n\\\\ B", out)

	out, err = h.run("", "insert", "--kind", "image", "--set", "src=fig/plot.png", "-o", "-", src)
	require.NoError(t, err)
	assert.Contains(t, out, "\\includegraphics[width=0.5\\textwidth]{fig/plot.png}")

	_, err = h.run("", "insert", "--kind", "table", src)
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	h := newHarness(t, "")
	src := h.file("doc.tex", "Title\n\\includegraphics{missing.png}\n\\newpage\n$\\int_{0}^{1} x \\, dx$")

	_, err := h.run("", "preview", src)
	require.NoError(t, err)

	page := h.read(filepath.Join(h.dir, "doc.html"))
	assert.Contains(t, page, "<!DOCTYPE html>")
	assert.Contains(t, page, "<title>doc</title>")
	assert.Contains(t, page, "page-break")
	assert.Contains(t, page, "missing.png")
}

// fakeEngine produces a PDF unless the source contains "fail"
func fakeEngine(t *testing.T) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}

	script := `#!/bin/sh
if grep -q 'fail' "$1"; then
  echo "! Undefined control sequence."
  exit 1
fi
echo "%PDF-1.5" > document.pdf
`
	path := filepath.Join(t.TempDir(), "fake-engine")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestCompile(t *testing.T) {
	h := newHarness(t, fakeEngine(t))
	src := h.file("doc.tex", "\\documentclass{article}\\begin{document}x\\end{document}")

	_, err := h.run("", "compile", src)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.5\n", h.read(filepath.Join(h.dir, "doc.pdf")))

	out, err := h.run("", "compile", src, "-")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.5\n", out)

	_, err = h.run("", "prune")
	require.NoError(t, err)

	failing := h.file("broken.tex", "\\fail")
	_, err = h.run("", "compile", failing)
	assert.ErrorContains(t, err, "Undefined control sequence")
	assert.NoFileExists(t, filepath.Join(h.dir, "broken.pdf"))
}

func TestStoredDocuments(t *testing.T) {
	h := newHarness(t, "")
	src := h.file("notes.tex", "A\n\\vspace{2cm}\n")

	out, err := h.run("", "import", "--title", "Notes", src)
	require.NoError(t, err)
	id := strings.TrimSpace(out)

	out, err = h.run("", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Notes")

	_, err = h.run("", "edit", "--id", id, "--node", "1", "--set", "magnitude=1cm")
	require.NoError(t, err)

	out, err = h.run("", "export", id)
	require.NoError(t, err)
	assert.Equal(t, "A\n\\vspace{1cm}\n", out)

	out, err = h.run("", "share", id)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "http://front.example.com/shared/"), out)

	_, err = h.run("", "share", "--revoke", id)
	require.NoError(t, err)

	_, err = h.run("", "delete", id)
	require.NoError(t, err)

	_, err = h.run("", "export", id)
	assert.ErrorContains(t, err, "not found")

	_, err = h.run("", "export", "nope")
	assert.ErrorContains(t, err, "malformed document id")
}

func TestDumpConfig(t *testing.T) {
	h := newHarness(t, "")

	out, err := h.run("", "dumpconfig", "--default")
	require.NoError(t, err)
	assert.Contains(t, out, "version: 1")
	assert.Contains(t, out, "image_width_default: 0.8")

	dest := filepath.Join(h.dir, "actual.yaml")
	_, err = h.run("", "dumpconfig", dest)
	require.NoError(t, err)
	assert.Contains(t, h.read(dest), "image_width_default: 0.5")
}
