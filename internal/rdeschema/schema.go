// =============================================================================
// rdeconv - Schema Module
// =============================================================================
//
// Parses tasksupport/invoice.schema.json into a small tagged-variant tree
// instead of unmarshaling into map[string]any and re-discovering shape at
// every call site. Three variants only: Object (properties + required),
// Array (items), Scalar (type + default + examples + enum). FindField
// walks the tree depth-first.
//
// =============================================================================

package rdeschema

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/ginjaninja78/rdeconv/internal/rdeerr"
)

// NodeKind distinguishes the three schema node shapes.
type NodeKind string

const (
	KindObject NodeKind = "object"
	KindArray  NodeKind = "array"
	KindScalar NodeKind = "scalar"
)

// Field is one node of the schema tree.
type Field struct {
	Kind       NodeKind
	Type       string // scalar type: "string", "number", "integer", "boolean"
	Properties map[string]*Field
	Required   []string
	Items      *Field
	Default    any
	Examples   []any
	Enum       []any
}

// Schema is a parsed invoice.schema.json document.
type Schema struct {
	Root *Field
}

// rawSchema mirrors the on-disk JSON Schema subset this module understands.
type rawSchema struct {
	Type       string                `json:"type"`
	Properties map[string]*rawSchema `json:"properties"`
	Required   []string              `json:"required"`
	Items      *rawSchema            `json:"items"`
	Default    any                   `json:"default"`
	Examples   []any                 `json:"examples"`
	Enum       []any                 `json:"enum"`
}

// LoadInvoiceSchema parses the schema file at path.
func LoadInvoiceSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &rdeerr.ConfigError{
			Message:   fmt.Sprintf("failed to read invoice schema: %v", err),
			FilePath:  path,
			ErrorType: "file_not_found",
		}
	}

	var raw rawSchema
	if err := json.Unmarshal(data, &raw); err != nil {
		line, col := jsonErrorLocation(data, err)
		return nil, &rdeerr.ConfigError{
			Message:      fmt.Sprintf("invalid JSON in invoice schema: %v", err),
			FilePath:     path,
			ErrorType:    "parse_error",
			LineNumber:   line,
			ColumnNumber: col,
		}
	}

	return &Schema{Root: convert(&raw)}, nil
}

func convert(raw *rawSchema) *Field {
	if raw == nil {
		return nil
	}
	switch raw.Type {
	case "object":
		props := make(map[string]*Field, len(raw.Properties))
		for name, child := range raw.Properties {
			props[name] = convert(child)
		}
		return &Field{Kind: KindObject, Type: raw.Type, Properties: props, Required: raw.Required}
	case "array":
		return &Field{Kind: KindArray, Type: raw.Type, Items: convert(raw.Items)}
	default:
		return &Field{
			Kind:     KindScalar,
			Type:     raw.Type,
			Default:  raw.Default,
			Examples: raw.Examples,
			Enum:     raw.Enum,
		}
	}
}

// jsonErrorLocation translates a json.SyntaxError's byte offset into a
// 1-based line/column pair for ConfigError reporting.
func jsonErrorLocation(data []byte, err error) (line, col int) {
	se, ok := err.(*json.SyntaxError)
	if !ok {
		return 0, 0
	}
	line = 1
	lastNewline := -1
	for i := int64(0); i < se.Offset && i < int64(len(data)); i++ {
		if data[i] == '\n' {
			line++
			lastNewline = int(i)
		}
	}
	col = int(se.Offset) - lastNewline
	return line, col
}

// FindField performs a depth-first search for a property named name,
// returning the first match encountered. Traversal order over a node's
// properties is lexicographic so results are deterministic.
func FindField(schema *Schema, name string) (*Field, bool) {
	if schema == nil || schema.Root == nil {
		return nil, false
	}
	return findField(schema.Root, name)
}

func findField(node *Field, name string) (*Field, bool) {
	if node == nil {
		return nil, false
	}
	switch node.Kind {
	case KindObject:
		if child, ok := node.Properties[name]; ok {
			return child, true
		}
		keys := make([]string, 0, len(node.Properties))
		for k := range node.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if found, ok := findField(node.Properties[k], name); ok {
				return found, true
			}
		}
	case KindArray:
		return findField(node.Items, name)
	}
	return nil, false
}
