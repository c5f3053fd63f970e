package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaValidator wraps JSON Schema compilation and validation
type SchemaValidator struct {
	schema     *jsonschema.Schema
	properties map[string]interface{}
}

// NewSchemaValidator creates a validator from a JSON schema definition
func NewSchemaValidator(schemaMap map[string]interface{}) (*SchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7

	schemaJSON, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	if err := compiler.AddResource("schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	properties, _ := schemaMap["properties"].(map[string]interface{})
	return &SchemaValidator{schema: schema, properties: properties}, nil
}

// Validate checks params against the compiled schema. Failures are
// reported as *ValidationError for the most specific failing location.
func (v *SchemaValidator) Validate(params interface{}) error {
	err := v.schema.Validate(params)
	if err == nil {
		return nil
	}

	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return fmt.Errorf("validation failed: %w", err)
	}

	leaf := mostSpecific(ve)
	field := strings.TrimPrefix(leaf.InstanceLocation, "/")
	if field == "" {
		field = quotedName(leaf.Message)
	}

	return &ValidationError{
		Field:   field,
		Message: leaf.Message,
		Value:   valueAt(params, field),
		Allowed: v.allowed(field),
	}
}

// mostSpecific returns the deepest cause, picking deterministically among
// siblings.
func mostSpecific(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	var leaves []*jsonschema.ValidationError
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			leaves = append(leaves, e)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)

	sort.SliceStable(leaves, func(i, j int) bool {
		if leaves[i].InstanceLocation != leaves[j].InstanceLocation {
			return leaves[i].InstanceLocation < leaves[j].InstanceLocation
		}
		return leaves[i].Message < leaves[j].Message
	})
	return leaves[0]
}

var quotedNamePattern = regexp.MustCompile(`'([^']+)'`)

// quotedName extracts the property named in root-level messages such as
// "missing properties: 'symbol'".
func quotedName(message string) string {
	if m := quotedNamePattern.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	return ""
}

func valueAt(params interface{}, field string) interface{} {
	obj, ok := params.(map[string]interface{})
	if !ok || field == "" {
		return nil
	}
	return obj[strings.SplitN(field, "/", 2)[0]]
}

func (v *SchemaValidator) allowed(field string) []string {
	name := strings.SplitN(field, "/", 2)[0]
	prop, ok := v.properties[name].(map[string]interface{})
	if !ok {
		return nil
	}

	switch enum := prop["enum"].(type) {
	case []string:
		return enum
	case []int:
		return intStrings(enum)
	}
	return nil
}

// ValidationError represents a parameter validation error with details
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
	Allowed []string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}
