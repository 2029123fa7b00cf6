package trigger

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/ligustah/acquire/pkg/acquire"
)

// None is a trigger that does nothing. Files are expected to be produced by
// someone else, for example a person clicking an export button.
type None struct{}

// Fire returns nil.
func (None) Fire(context.Context, acquire.UnitRequest) error { return nil }

var (
	_ acquire.Trigger  = None{}
	_ acquire.Trigger  = (*Command)(nil)
	_ acquire.Trigger  = (*HTTP)(nil)
	_ acquire.Trigger  = (*Browser)(nil)
	_ acquire.Resetter = (*Browser)(nil)
)

// parseTemplate parses a text template rendered against an
// acquire.UnitRequest, so {{.ID}}, {{.Name}} and {{.LogicalName}} are
// available.
func parseTemplate(name, text string) (*template.Template, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse %s template: %w", name, err)
	}
	return t, nil
}

func render(t *template.Template, unit acquire.UnitRequest) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, unit); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
