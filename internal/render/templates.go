package render

import (
	"embed"
	"html/template"
	"io"
	"strings"
	"sync"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed templates/styles.css
var Stylesheet []byte

var (
	htmlTemplates *template.Template
	templatesOnce sync.Once
	templatesErr  error
)

func loadTemplates() (*template.Template, error) {
	templatesOnce.Do(func() {
		htmlTemplates, templatesErr = template.New("profile").ParseFS(templateFS, "templates/*.tmpl")
	})
	return htmlTemplates, templatesErr
}

func executeTemplate(w io.Writer, name string, data any) error {
	tmpl, err := loadTemplates()
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, name, data)
}

func executeTemplateString(name string, data any) (string, error) {
	var builder strings.Builder
	if err := executeTemplate(&builder, name, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(builder.String()), nil
}
