package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrNoObject means a model reply carried no JSON object.
var ErrNoObject = errors.New("no JSON object in response")

// CompileSchema parses a JSON schema document.
func CompileSchema(schemaJSON []byte) (*gojsonschema.Schema, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	return schema, nil
}

// MustCompileSchema is CompileSchema for schemas embedded at build time.
func MustCompileSchema(schemaJSON []byte) *gojsonschema.Schema {
	schema, err := CompileSchema(schemaJSON)
	if err != nil {
		panic(err)
	}
	return schema
}

// ValidateDocument validates a JSON document against a schema
func ValidateDocument(doc []byte, schema *gojsonschema.Schema) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("failed to validate: %w", err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("schema validation failed: %s", strings.Join(problems, "; "))
	}

	return nil
}

// ExtractObject returns the span from the first '{' to the last '}' of text. Models often wrap
// their JSON in prose or code fences.
func ExtractObject(text string) ([]byte, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, ErrNoObject
	}
	return []byte(text[start : end+1]), nil
}
