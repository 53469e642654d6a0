package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tidwall/gjson"
)

// ErrSchemaUnusable is wrapped by ValidateInput when the schema itself does
// not compile. Callers may submit the input unchecked.
var ErrSchemaUnusable = errors.New("input schema cannot be compiled")

const skipOption = "(leave empty)"

// Field is one top-level property of an input schema.
type Field struct {
	Name        string
	Title       string
	Description string
	Type        string
	Editor      string
	Enum        []string
	Required    bool
	Secret      bool
	// Default holds the schema default, else its prefill.
	Default gjson.Result
}

func (f Field) label() string {
	label := f.Title
	if label == "" {
		label = f.Name
	}
	if f.Required {
		label += " *"
	}
	return label
}

// Fields lists the schema's properties in document order.
func Fields(schema json.RawMessage) []Field {
	doc := gjson.ParseBytes(schema)
	required := make(map[string]bool)
	for _, r := range doc.Get("required").Array() {
		required[r.String()] = true
	}

	var fields []Field
	doc.Get("properties").ForEach(func(key, prop gjson.Result) bool {
		f := Field{
			Name:        key.String(),
			Title:       prop.Get("title").String(),
			Description: prop.Get("description").String(),
			Type:        prop.Get("type").String(),
			Editor:      prop.Get("editor").String(),
			Required:    required[key.String()],
			Secret:      prop.Get("isSecret").Bool(),
			Default:     prop.Get("default"),
		}
		if !f.Default.Exists() {
			f.Default = prop.Get("prefill")
		}
		for _, e := range prop.Get("enum").Array() {
			f.Enum = append(f.Enum, e.String())
		}
		fields = append(fields, f)
		return true
	})
	return fields
}

// FillForm prompts for every property of schema and returns the collected
// input. Blank optional values are left out.
func FillForm(ctx context.Context, driver PromptDriver, schema json.RawMessage) (json.RawMessage, error) {
	input := make(map[string]any)
	for _, f := range Fields(schema) {
		value, ok, err := promptField(ctx, driver, f)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		if ok {
			input[f.Name] = value
		}
	}
	b, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode input: %w", err)
	}
	return b, nil
}

func promptField(ctx context.Context, driver PromptDriver, f Field) (any, bool, error) {
	switch {
	case f.Type == "boolean":
		v, err := driver.Confirm(ctx, ConfirmConfig{Message: f.label(), Help: f.Description, Default: f.Default.Bool()})
		return v, err == nil, err

	case len(f.Enum) > 0:
		return promptEnum(ctx, driver, f)

	case f.Type == "integer" || f.Type == "number":
		raw, err := driver.Input(ctx, InputConfig{
			Message:   f.label(),
			Help:      f.Description,
			Default:   scalarDefault(f.Default),
			Validator: numberValidator(f),
		})
		if err != nil {
			return nil, false, err
		}
		return parseNumber(f, raw)

	case f.Type == "array" || f.Type == "object":
		return promptJSON(ctx, driver, f)

	case f.Secret:
		v, err := driver.Password(ctx, InputConfig{Message: f.label(), Help: f.Description, Validator: requiredValidator(f)})
		return v, err == nil && v != "", err

	case isMultiline(f.Editor):
		v, err := driver.TextArea(ctx, TextAreaConfig{Message: f.label(), Help: f.Description, Default: scalarDefault(f.Default)})
		return v, err == nil && v != "", err

	default:
		v, err := driver.Input(ctx, InputConfig{
			Message:   f.label(),
			Help:      f.Description,
			Default:   scalarDefault(f.Default),
			Validator: requiredValidator(f),
		})
		return v, err == nil && v != "", err
	}
}

func promptEnum(ctx context.Context, driver PromptDriver, f Field) (any, bool, error) {
	options := f.Enum
	if !f.Required {
		options = append([]string{skipOption}, f.Enum...)
	}
	def := 0
	for i, o := range options {
		if f.Default.Exists() && o == f.Default.String() {
			def = i
		}
	}
	idx, err := driver.Select(ctx, SelectConfig{Message: f.label(), Help: f.Description, Options: options, DefaultIndex: def})
	if err != nil {
		return nil, false, err
	}
	if idx < 0 || idx >= len(options) {
		return nil, false, fmt.Errorf("selection %d out of range", idx)
	}
	if options[idx] == skipOption && !f.Required {
		return nil, false, nil
	}
	if f.Type == "integer" || f.Type == "number" {
		return parseNumber(f, options[idx])
	}
	return options[idx], true, nil
}

func promptJSON(ctx context.Context, driver PromptDriver, f Field) (any, bool, error) {
	def := ""
	if f.Default.Exists() {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(f.Default.Raw), "", "  "); err == nil {
			def = buf.String()
		}
	}
	for {
		raw, err := driver.TextArea(ctx, TextAreaConfig{Message: f.label() + " (JSON)", Help: f.Description, Default: def})
		if err != nil {
			return nil, false, err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, false, nil
		}
		if json.Valid([]byte(raw)) {
			return json.RawMessage(raw), true, nil
		}
		if err := driver.Info(ctx, fmt.Sprintf("%s is not valid JSON, try again", f.label())); err != nil {
			return nil, false, err
		}
		def = raw
	}
}

func parseNumber(f Field, raw string) (any, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false, nil
	}
	if f.Type == "integer" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, false, fmt.Errorf("%q is not an integer", raw)
		}
		return n, true, nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, false, fmt.Errorf("%q is not a number", raw)
	}
	return n, true, nil
}

func numberValidator(f Field) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			if required := requiredValidator(f); required != nil {
				return required(s)
			}
			return nil
		}
		_, _, err := parseNumber(f, s)
		return err
	}
}

func requiredValidator(f Field) func(string) error {
	if !f.Required {
		return nil
	}
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("value is required")
		}
		return nil
	}
}

func scalarDefault(r gjson.Result) string {
	switch r.Type {
	case gjson.String, gjson.Number, gjson.True, gjson.False:
		return r.String()
	}
	return ""
}

func isMultiline(editor string) bool {
	switch editor {
	case "textarea", "javascript", "python", "json":
		return true
	}
	return false
}

// ValidateInput checks input against schema.
func ValidateInput(schema, input json.RawMessage) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaUnusable, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("input-schema.json", doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaUnusable, err)
	}
	sch, err := c.Compile("input-schema.json")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaUnusable, err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(input))
	if err != nil {
		return fmt.Errorf("input is not valid JSON: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("input does not match the actor's schema: %w", err)
	}
	return nil
}
