package mailqueue

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/jaytaylor/html2text"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer renders named email templates into html and a plain-text
// rendition derived from the html. The text body is always converted, never
// hand-written, so the two renditions cannot diverge.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded template set.
func NewRenderer() (*Renderer, error) {
	t, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: t}, nil
}

// Render executes the named template with the given placeholders and returns
// the html body plus its deterministic plain-text conversion.
func (r *Renderer) Render(name string, placeholders map[string]any) (html string, text string, err error) {
	tmpl := r.templates.Lookup(name + ".tmpl")
	if tmpl == nil {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, placeholders); err != nil {
		return "", "", err
	}
	html = buf.String()

	text, err = html2text.FromString(html)
	if err != nil {
		return "", "", err
	}

	return html, text, nil
}
