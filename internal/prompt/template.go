// Package prompt builds the system prompt: a template sourced from a
// Google Doc (or a static string), rendered with channel and dialog data.
package prompt

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/ai2b/zena/internal/domain"
	"github.com/ai2b/zena/internal/store"
)

// Source yields the current prompt template text.
type Source interface {
	Text(ctx context.Context) (string, error)
}

// Static is a fixed template text, used in tests and as a fallback when no
// document is configured.
type Static string

// Text returns the static template.
func (s Static) Text(_ context.Context) (string, error) {
	return string(s), nil
}

// Data is everything a prompt template can reference.
type Data struct {
	Persona      string
	ChannelTitle string
	DialogState  domain.DialogState
	Masters      []store.Master
	Params       map[string]string
}

var funcs = template.FuncMap{
	"join": strings.Join,
	"masterNames": func(masters []store.Master) string {
		names := make([]string, len(masters))
		for i, m := range masters {
			names[i] = m.Name
		}
		return strings.Join(names, ", ")
	},
}

// Render executes the template text against the given data.
func Render(text string, data Data) (string, error) {
	tmpl, err := template.New("system").Funcs(funcs).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing prompt template: %w", err)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering prompt template: %w", err)
	}
	return b.String(), nil
}

// DefaultTemplate is used when no prompt document is configured.
const DefaultTemplate = `Ты — {{.Persona}}, администратор салона «{{.ChannelTitle}}».
Помогай клиенту выбрать услугу и записаться.
{{- if .Masters}}
Мастера: {{masterNames .Masters}}.
{{- end}}
Этап диалога: {{.DialogState}}.`
