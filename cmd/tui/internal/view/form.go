package view

import (
	"maps"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/MrJamesThe3rd/docforge/internal/document"
	"github.com/MrJamesThe3rd/docforge/internal/render"
)

// dataFields holds the form bindings of a draft's data, one per schema variable.
type dataFields struct {
	schema render.Schema
	values map[string]*string
}

// newDataFields builds one input per schema variable, prefilled from current.
func newDataFields(schema render.Schema, current document.Data) (dataFields, []huh.Field) {
	values := make(map[string]*string, len(schema))
	fields := make([]huh.Field, 0, len(schema))

	for _, name := range schema.Names() {
		field := schema[name]

		v := new(string)
		if cur, ok := current[name]; ok {
			*v = cur.String()
		}

		values[name] = v

		input := huh.NewInput().
			Key(name).
			Title(field.Title).
			Value(v)

		if field.Type == render.FieldNumber {
			input = input.Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return nil
				}

				_, err := document.NumberFromString(strings.TrimSpace(s))

				return err
			})
		}

		fields = append(fields, input)
	}

	return dataFields{schema: schema, values: values}, fields
}

// Data converts the bindings into draft data. Empty inputs are left out.
func (f dataFields) Data() document.Data {
	data := make(document.Data, len(f.values))

	for name, v := range f.values {
		s := strings.TrimSpace(*v)
		if s == "" {
			continue
		}

		data[name] = document.Text(s)

		if f.schema[name].Type == render.FieldNumber {
			if n, err := document.NumberFromString(s); err == nil {
				data[name] = n
			}
		}
	}

	return data
}

// Merge overlays the bindings onto current, keeping keys the schema does not know.
func (f dataFields) Merge(current document.Data) document.Data {
	out := current.Clone()
	for name := range f.schema {
		delete(out, name)
	}

	maps.Copy(out, f.Data())

	return out
}

func newForm(fields ...huh.Field) *huh.Form {
	return huh.NewForm(huh.NewGroup(fields...)).WithWidth(60).WithShowHelp(false)
}
