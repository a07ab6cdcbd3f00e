package structuring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// resumeSchema describes the accepted model output
func resumeSchema() map[string]any {
	str := map[string]any{"type": "string"}
	optionalStr := map[string]any{"type": []any{"string", "null"}}
	strList := map[string]any{"type": "array", "items": str}

	experience := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"company":     str,
			"role":        str,
			"start_date":  optionalStr,
			"end_date":    optionalStr,
			"description": optionalStr,
		},
		"required": []any{"company", "role"},
	}
	education := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"degree":      str,
			"institution": str,
			"years":       optionalStr,
		},
		"required": []any{"degree", "institution"},
	}
	project := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":             str,
			"description":      optionalStr,
			"technology_stack": strList,
		},
		"required": []any{"name"},
	}

	return map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type":    "object",
		"properties": map[string]any{
			"summary":    str,
			"skills":     strList,
			"experience": map[string]any{"type": "array", "items": experience},
			"education":  map[string]any{"type": "array", "items": education},
			"projects":   map[string]any{"type": "array", "items": project},
		},
		"required": []any{"summary"},
	}
}

var (
	errInvalidJSON     = errors.New("model output is not valid JSON")
	errSchemaMismatch  = errors.New("model output does not match schema")
	errModelCallFailed = errors.New("model call failed")
	errModelTimeout    = errors.New("model call timed out")
	errDecodeFailed    = errors.New("model output could not be decoded")
)

// Validator checks model output against the resume schema
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the resume schema
func NewValidator() (*Validator, error) {
	b, err := json.Marshal(resumeSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("resume.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("resume.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// Validate parses data as JSON and checks it against the schema
func (v *Validator) Validate(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", errSchemaMismatch, err)
	}
	return nil
}
