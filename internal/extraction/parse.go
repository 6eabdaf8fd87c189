package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/adhikarip/invoice-extractor/internal/schema"
)

// maxDiagnosticLen bounds how much offending model text is carried in
// error messages.
const maxDiagnosticLen = 512

// ParseResponse sanitizes raw model text, parses it as JSON and
// validates it against the invoice schema. Validation is all or
// nothing: a record is returned only when every schema-declared key is
// present and well shaped. Unknown extra fields are ignored.
func ParseResponse(raw string) (*schema.InvoiceData, error) {
	text := sanitizeResponse(raw)

	var candidate any
	if err := json.Unmarshal([]byte(text), &candidate); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, truncate(text))
	}

	compiled, err := compileDefinition(schema.Definition())
	if err != nil {
		return nil, fmt.Errorf("compiling invoice schema: %w", err)
	}
	if err := compiled.Validate(candidate); err != nil {
		return nil, newSchemaError(err)
	}

	var data schema.InvoiceData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &data, nil
}

// compileDefinition compiles the schema definition for validation. The
// definition is rebuilt and recompiled per response so that validator
// and prompt always reflect the same structure.
func compileDefinition(definition map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(definition)
	if err != nil {
		return nil, fmt.Errorf("marshaling definition: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("invoice.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}
	return compiler.Compile("invoice.json")
}

// newSchemaError wraps a validation failure, naming the deepest
// offending field path.
func newSchemaError(err error) error {
	path := "/"
	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		leaf := ve
		for len(leaf.Causes) > 0 {
			leaf = leaf.Causes[0]
		}
		if leaf.InstanceLocation != "" {
			path = leaf.InstanceLocation
		}
	}
	return &SchemaError{Path: path, Cause: err}
}

func truncate(s string) string {
	if len(s) > maxDiagnosticLen {
		return s[:maxDiagnosticLen] + "..."
	}
	return s
}
