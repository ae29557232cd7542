// Package renderer turns a reconciliation into a markdown report, and
// markdown into HTML.
package renderer

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed *.md
var templates embed.FS

// ChangesRenderOptions holds configuration for rendering a changes report.
type ChangesRenderOptions struct {
	SkipAdded  bool // Do not render the added positions section.
	SkipExited bool // Do not render the exited positions section.
}

// RenderChanges renders the Changes struct to a markdown string.
func RenderChanges(c *Changes, opts ChangesRenderOptions) string {
	partials := map[string]string{
		"changes_title":     "changes_title.md",
		"changes_positions": "changes_positions.md",
		"changes_added":     "changes_added.md",
		"changes_exited":    "changes_exited.md",
	}
	// An empty file name results in an empty template.
	if opts.SkipAdded {
		partials["changes_added"] = ""
	}
	if opts.SkipExited {
		partials["changes_exited"] = ""
	}
	return renderTemplate("changes", "changes.md", partials, c)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		if file != "" {
			content, err = fs.ReadFile(templates, file)
			if err != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, err)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// ToHTML converts a markdown document to an HTML fragment, with GitHub
// flavored tables.
func ToHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("cannot convert markdown to html: %w", err)
	}
	return buf.String(), nil
}

// Page wraps an HTML fragment in a minimal standalone page.
func Page(title, body string) string {
	return fmt.Sprintf(pageLayout, template.HTMLEscapeString(title), body)
}

const pageLayout = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
table { border-collapse: collapse; }
th, td { padding: 0.25rem 0.75rem; border-bottom: 1px solid #ddd; }
</style>
</head>
<body>
%s</body>
</html>
`
