/*
Package factory converts JSON and YAML documents into engine types.

PURPOSE:
  Tax-year tables and employee batches arrive as files (CLI), request bodies
  (HTTP) or stored rows (SQLite). The factory is the single place that knows
  their document shape: it validates each document against a JSON Schema,
  then decodes it into aca types. Engine code never sees untyped maps.

FORMATS:
  JSON and YAML are accepted. YAML is converted to JSON before validation so
  both formats go through exactly the same schema and decoder.

DECIMALS:
  Money, hours and ratios may be written as numbers or strings
  ("0.0912", 0.0912). Strings are recommended for exactness.

USAGE:
  c, err := factory.LoadTaxYearFile("tables/2027.yaml")
  registry.Register(c)

  doc, err := factory.LoadBatchFile("employees.json")
  result, err := engine.AssessBatch(ctx, doc.Input)

SEE ALSO:
  - taxyear.go: Tax-year table documents
  - records.go: Employee, coverage and batch documents
*/
package factory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDocument is returned when a document fails decoding or schema validation.
var ErrInvalidDocument = errors.New("invalid document")

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension; anything that is
// not .yaml or .yml is read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// =============================================================================
// SCHEMA VALIDATION
// =============================================================================

func mustCompile(name, schema string) *jsonschema.Schema {
	return mustCompileAt(name, schema, "")
}

// mustCompileAt compiles the subschema at a JSON pointer ("" for the root).
func mustCompileAt(name, schema, pointer string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://aca-engine.schemas.local/%s.schema.json", name)
	if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("factory: load %s schema: %v", name, err))
	}
	target := url
	if pointer != "" {
		target += "#" + pointer
	}
	compiled, err := c.Compile(target)
	if err != nil {
		panic(fmt.Sprintf("factory: compile %s schema %q: %v", name, pointer, err))
	}
	return compiled
}

// normalize returns the document as JSON bytes.
func normalize(data []byte, format Format) ([]byte, error) {
	if format != FormatYAML {
		return data, nil
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: yaml: %v", ErrInvalidDocument, err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: yaml: %v", ErrInvalidDocument, err)
	}
	return out, nil
}

// decode validates JSON bytes against schema, then decodes them into v.
func decode(data []byte, schema *jsonschema.Schema, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

func readFile(path string) ([]byte, Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	return data, FormatFromPath(path), nil
}

// decimalDef is shared by every schema that carries a decimal value.
const decimalDef = `{
      "type": ["number", "string"],
      "pattern": "^-?[0-9]+(\\.[0-9]+)?$"
    }`
