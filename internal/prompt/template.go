// Package prompt loads the versioned system-prompt templates sent to the
// language model. Templates are YAML documents whose system text is a
// text/template with the sprig function map.
package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"

	"replykit/internal/logging"
)

//go:embed default.yaml
var defaultTemplateYAML []byte

// Template is a parsed prompt template.
type Template struct {
	Version     string `yaml:"version"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	System      string `yaml:"system"`

	tmpl *template.Template
}

// Default returns the built-in template.
func Default() *Template {
	t, err := Parse(defaultTemplateYAML)
	if err != nil {
		panic(fmt.Sprintf("prompt: built-in template is invalid: %v", err))
	}
	return t
}

// LoadTemplate reads a template file. An empty path yields Default().
func LoadTemplate(path string) (*Template, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt template: %w", err)
	}

	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.Boot("loaded prompt template %q version=%s from %s", t.Name, t.Version, path)
	return t, nil
}

// Parse decodes and compiles a YAML template document.
func Parse(data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	if strings.TrimSpace(t.Version) == "" {
		return nil, fmt.Errorf("prompt template %q: version is required", t.Name)
	}
	if strings.TrimSpace(t.System) == "" {
		return nil, fmt.Errorf("prompt template %q: system text is empty", t.Name)
	}

	name := t.Name
	if name == "" {
		name = "prompt"
	}
	tmpl, err := template.New(name).Option("missingkey=error").Funcs(sprig.TxtFuncMap()).Parse(t.System)
	if err != nil {
		return nil, fmt.Errorf("prompt template %q: %w", name, err)
	}
	t.tmpl = tmpl
	return &t, nil
}

// Render executes the system text with vars.
func (t *Template) Render(vars map[string]any) (string, error) {
	if t.tmpl == nil {
		return "", fmt.Errorf("prompt template %q was not parsed", t.Name)
	}
	if vars == nil {
		vars = map[string]any{}
	}

	var sb strings.Builder
	if err := t.tmpl.Execute(&sb, vars); err != nil {
		return "", fmt.Errorf("failed to render prompt template %q: %w", t.Name, err)
	}
	return strings.TrimSpace(sb.String()), nil
}
