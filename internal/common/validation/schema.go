// Package validation checks JSON documents (HTTP bodies, job variables) against JSON Schemas.
package validation

import (
	"fmt"
	"sort"
	"strings"

	apperrors "investor-matching/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a compiled JSON Schema.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

// Compile parses a schema document. It fails fast so broken schemas surface at start-up.
func Compile(name, schemaJSON string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, schema: s}, nil
}

// MustCompile is Compile for package-level schema variables.
func MustCompile(name, schemaJSON string) *Schema {
	s, err := Compile(name, schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

// ValidateBytes validates a raw JSON document.
func (s *Schema) ValidateBytes(doc []byte) error {
	return s.validate(gojsonschema.NewBytesLoader(doc))
}

// ValidateValue validates an already decoded value such as job variables.
func (s *Schema) ValidateValue(v interface{}) error {
	return s.validate(gojsonschema.NewGoLoader(v))
}

func (s *Schema) validate(loader gojsonschema.JSONLoader) error {
	result, err := s.schema.Validate(loader)
	if err != nil {
		return apperrors.NewValidationError(apperrors.FieldError{
			Field:   "(body)",
			Message: "malformed JSON document",
			Code:    "invalid_json",
		})
	}
	if result.Valid() {
		return nil
	}
	return apperrors.NewValidationError(toFieldErrors(result.Errors())...)
}

func toFieldErrors(errs []gojsonschema.ResultError) []apperrors.FieldError {
	out := make([]apperrors.FieldError, 0, len(errs))
	for _, e := range errs {
		field := e.Field()
		if e.Type() == "required" || e.Type() == "additional_property_not_allowed" {
			if prop, ok := e.Details()["property"].(string); ok {
				if field == "(root)" {
					field = prop
				} else {
					field = field + "." + prop
				}
			}
		}
		out = append(out, apperrors.FieldError{
			Field:   strings.TrimPrefix(field, "(root)."),
			Message: e.Description(),
			Code:    e.Type(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}
