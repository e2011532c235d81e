package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderBasics(t *testing.T) {
	out := string(Render("**bold** and [a link](https://example.com)"))
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, `href="https://example.com"`)
}

func TestRenderHardWraps(t *testing.T) {
	out := string(Render("line one\nline two"))
	assert.Contains(t, out, "<br")
}

func TestRenderStripsScripts(t *testing.T) {
	out := string(Render(`hello <script>alert("x")</script> world`))
	assert.NotContains(t, out, "<script")
	assert.Contains(t, out, "hello")
}

func TestRenderStripsEventHandlers(t *testing.T) {
	out := string(Render(`<a href="https://example.com" onclick="evil()">x</a>`))
	assert.NotContains(t, out, "onclick")
}

func TestRenderGFMTables(t *testing.T) {
	out := string(Render("| a | b |\n|---|---|\n| 1 | 2 |"))
	assert.Contains(t, out, "<table>")
}
