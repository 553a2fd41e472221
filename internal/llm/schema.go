package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// RequiredKeys are the keys a completion must carry after discipline defaulting.
var RequiredKeys = []string{"date", "discipline", "value", "unit"}

// BuildMetricJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// value may arrive as a numeric string; ParseCompletion converts it.
func BuildMetricJSONSchema() map[string]any {
	props := map[string]any{
		"date":       map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
		"discipline": map[string]any{"type": "string", "minLength": 1},
		"value":      map[string]any{"type": []string{"number", "string"}},
		"unit":       map[string]any{"type": "string", "minLength": 1},
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   RequiredKeys,
	}
}

var (
	metricSchemaOnce sync.Once
	metricSchema     *jsonschema.Schema
	metricSchemaErr  error
)

func compiledMetricSchema() (*jsonschema.Schema, error) {
	metricSchemaOnce.Do(func() {
		metricSchema, metricSchemaErr = compileSchema(BuildMetricJSONSchema())
	})
	return metricSchema, metricSchemaErr
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	schema, err := compileSchema(schemaMap)
	if err != nil {
		return err
	}
	return validateDoc(schema, data)
}

func validateDoc(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
