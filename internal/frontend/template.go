package frontend

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/heartrisk/internal/analysis"
	"github.com/ZanzyTHEbar/heartrisk/internal/types"
)

// PageData feeds the form page
type PageData struct {
	Nonce          string
	ModelState     string
	ChestPainTypes []string
	Form           types.AssessForm
	Error          string
	Result         *analysis.Assessment
	ResultStyle    template.CSS
}

// WithResult attaches an assessment and its traffic-light colours
func (p *PageData) WithResult(a analysis.Assessment) {
	p.Result = &a
	p.ResultStyle = template.CSS(fmt.Sprintf("color: %s; background: %s;", a.Colors.Text, a.Colors.Background))
}

// LoadIndexTemplate parses index.html from fsys
func LoadIndexTemplate(fsys fs.FS) (*template.Template, error) {
	tmpl, err := template.ParseFS(fsys, "index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return tmpl, nil
}

// RenderPage executes the template into a buffer first so a template error
// never leaves a half-written page.
func RenderPage(c *gin.Context, tmpl *template.Template, status int, data PageData) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")

	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
	return nil
}

