// Package markdown renders Reddit markdown bodies to sanitized HTML for
// the templates' "marked" function.
package markdown

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

var (
	md = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			// Reddit treats single newlines as line breaks.
			htmlrenderer.WithHardWraps(),
		),
	)

	// User-generated content policy: links, code, tables, but no scripts
	// or raw HTML tricks.
	policy = bluemonday.UGCPolicy()
)

// Render converts markdown to sanitized HTML. The result is safe to emit
// into templates unescaped; anything the sanitizer rejects is stripped.
func Render(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		// Fall back to the raw text, escaped by the sanitizer.
		return template.HTML(policy.Sanitize(text)) //nolint:gosec // sanitized
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes())) //nolint:gosec // sanitized
}
