package config

import (
	"bytes"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/matzehuels/layerpress/pkg/errors"
)

// Templates renders item names and descriptions. It satisfies the
// engine's Namer and Describer contracts.
type Templates struct {
	name        *template.Template
	description *template.Template
}

// templateData is what name and description templates see.
type templateData struct {
	Index      int
	Attributes map[string]any
}

// Templates compiles the name and description templates. Both are checked by
// rendering them once against the start index, so a template that only
// fails at execution time is reported during validation.
func (c Config) Templates() (*Templates, error) {
	name, err := parseTemplate("name", c.Name)
	if err != nil {
		return nil, err
	}
	description, err := parseTemplate("description", c.Description)
	if err != nil {
		return nil, err
	}
	t := &Templates{name: name, description: description}

	if _, err := t.Name(c.StartIndex); err != nil {
		return nil, err
	}
	if _, err := t.Describe(nil); err != nil {
		return nil, err
	}
	return t, nil
}

func parseTemplate(field, text string) (*template.Template, error) {
	tmpl, err := template.New(field).Option("missingkey=zero").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s template", field)
	}
	return tmpl, nil
}

// Name renders the display name for the item at index.
func (t *Templates) Name(index int) (string, error) {
	return render(t.name, templateData{Index: index})
}

// Describe renders the description for an item with the given attributes.
func (t *Templates) Describe(attributes map[string]any) (string, error) {
	if attributes == nil {
		attributes = map[string]any{}
	}
	return render(t.description, templateData{Attributes: attributes})
}

func render(tmpl *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "render %s template", tmpl.Name())
	}
	return buf.String(), nil
}
