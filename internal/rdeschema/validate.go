// =============================================================================
// rdeconv - Validator Module
// =============================================================================
//
// Walks a decoded invoice/metadata document (map[string]any, the shape
// encoding/json produces from an invoice.json) against a parsed Schema or
// MetadataDefinition and collects every violation into a ValidationReport.
// Validation is fail-slow within one document: every reachable field is
// checked before the caller sees the result.
//
// =============================================================================

package rdeschema

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ginjaninja78/rdeconv/internal/rdeerr"
)

// MaxValueSize bounds a metadata value's serialized length in bytes.
const MaxValueSize = 1024

// ValidateInvoice checks doc against schema: a missing field is reported
// only when its container's "required" list names it, and every field
// present in the document is type- and enum-checked. requiredOnly does not
// change the result; both values run the same checks.
func ValidateInvoice(doc map[string]any, schema *Schema, requiredOnly bool) *rdeerr.ValidationReport {
	report := &rdeerr.ValidationReport{}
	if schema == nil || schema.Root == nil {
		return report
	}
	walkObject(schema.Root, doc, "", requiredOnly, report)
	return report
}

func walkObject(node *Field, value any, path string, requiredOnly bool, report *rdeerr.ValidationReport) {
	obj, ok := value.(map[string]any)
	if value == nil {
		obj = map[string]any{}
	} else if !ok {
		report.Add(path, rdeerr.KindTypeMismatch, "expected an object")
		return
	}

	required := effectiveRequired(node, path)

	for name, child := range node.Properties {
		fieldPath := joinPath(path, name)
		fieldValue, present := obj[name]
		if !present {
			if required[name] {
				report.Add(fieldPath, rdeerr.KindMissing, "required field is missing")
			}
			continue
		}
		validateField(child, fieldValue, fieldPath, requiredOnly, report)
	}
}

// effectiveRequired returns node's required-field set, applying the
// sampleWhenRestructured allow-shape to the top-level sample container:
// this pipeline only ever restructures an already-registered sample, so
// sampleId is the sole required field there regardless of what the
// schema's own required list names for "sample".
func effectiveRequired(node *Field, path string) map[string]bool {
	if path == "sample" {
		return map[string]bool{"sampleId": true}
	}
	required := make(map[string]bool, len(node.Required))
	for _, r := range node.Required {
		required[r] = true
	}
	return required
}

func validateField(node *Field, value any, path string, requiredOnly bool, report *rdeerr.ValidationReport) {
	if node == nil {
		return
	}
	switch node.Kind {
	case KindObject:
		walkObject(node, value, path, requiredOnly, report)
	case KindArray:
		arr, ok := value.([]any)
		if !ok {
			report.Add(path, rdeerr.KindTypeMismatch, "expected an array")
			return
		}
		for i, item := range arr {
			validateField(node.Items, item, fmt.Sprintf("%s[%d]", path, i), requiredOnly, report)
		}
	case KindScalar:
		validateScalar(node, value, path, report)
	}
}

func validateScalar(node *Field, value any, path string, report *rdeerr.ValidationReport) {
	if !scalarTypeMatches(node.Type, value) {
		report.Add(path, rdeerr.KindTypeMismatch, fmt.Sprintf("expected %s, got %T", node.Type, value))
		return
	}
	if len(node.Enum) > 0 && !enumContains(node.Enum, value) {
		report.Add(path, rdeerr.KindEnumViolation, fmt.Sprintf("value %v is not one of the allowed enum values", value))
	}
}

func scalarTypeMatches(typ string, value any) bool {
	switch typ {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "integer":
		switch v := value.(type) {
		case int:
			return true
		case float64:
			return v == float64(int64(v))
		default:
			return false
		}
	case "number":
		_, ok := value.(float64)
		return ok
	case "":
		return true // untyped scalar accepts anything
	default:
		return true
	}
}

func enumContains(enum []any, value any) bool {
	for _, e := range enum {
		if e == value {
			return true
		}
	}
	return false
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

// MetadataDefinition is the parsed tasksupport/metadata-def.json document:
// for each declared key, its type, unit, description, and whether it is a
// "feature" (transcribed into the invoice description by the tile
// pipeline's DescriptionUpdater step).
type MetadataDefinition struct {
	Items map[string]MetadataDefItem
}

// MetadataDefItem describes one metadata-def.json entry.
type MetadataDefItem struct {
	Name                string
	Schema              MetadataDefSchema
	Description         string
	URI                 string
	Mode                string
	Variable            bool
	OriginalBasicField  string
	Feature             bool
}

// MetadataDefSchema is the {type, unit} pair attached to a def item.
type MetadataDefSchema struct {
	Type string
	Unit string
}

// MetaValue is one constant or variable metadata entry's value.
type MetaValue struct {
	Value any
	Unit  string
}

// Metadata is the decoded tasksupport/../meta/metadata.json document.
type Metadata struct {
	Constant map[string]MetaValue
	Variable []map[string]MetaValue
}

// metaValueJSON/metadataJSON give MetaValue/Metadata the wire shape
// metadata.json actually uses: {"value": ..., "unit": ...} per entry,
// {"constant": {...}, "variable": [...]} at the document level.
type metaValueJSON struct {
	Value any    `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

type metadataJSON struct {
	Constant map[string]MetaValue   `json:"constant"`
	Variable []map[string]MetaValue `json:"variable,omitempty"`
}

func (m MetaValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(metaValueJSON{Value: m.Value, Unit: m.Unit})
}

func (m *MetaValue) UnmarshalJSON(data []byte) error {
	var v metaValueJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	m.Value, m.Unit = v.Value, v.Unit
	return nil
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(metadataJSON{Constant: m.Constant, Variable: m.Variable})
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	var v metadataJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	m.Constant, m.Variable = v.Constant, v.Variable
	return nil
}

// AsSourceMap renders doc in the decoded-JSON shape magicvar.Resolver
// expects for ${metadata:constant:<field>} lookups.
func (m *Metadata) AsSourceMap() map[string]any {
	constants := make(map[string]any, len(m.Constant))
	for k, v := range m.Constant {
		constants[k] = map[string]any{"value": v.Value, "unit": v.Unit}
	}
	return map[string]any{"constant": constants}
}

// SaveMetadataDocument writes doc to path as formatted JSON.
func SaveMetadataDocument(doc *Metadata, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ValidateMetadata checks every constant/variable entry's type against its
// declared type in def, and its serialized size against MaxValueSize.
func ValidateMetadata(doc *Metadata, def *MetadataDefinition) *rdeerr.ValidationReport {
	report := &rdeerr.ValidationReport{}
	if doc == nil || def == nil {
		return report
	}

	for key, mv := range doc.Constant {
		validateMetaValue(def, "constant."+key, key, mv, report)
	}
	for i, row := range doc.Variable {
		for key, mv := range row {
			validateMetaValue(def, fmt.Sprintf("variable[%d].%s", i, key), key, mv, report)
		}
	}
	return report
}

func validateMetaValue(def *MetadataDefinition, path, key string, mv MetaValue, report *rdeerr.ValidationReport) {
	item, ok := def.Items[key]
	if !ok {
		report.Add(path, rdeerr.KindExtraProperty, fmt.Sprintf("key %q is not declared in metadata-def.json", key))
		return
	}
	if !scalarTypeMatches(item.Schema.Type, mv.Value) {
		report.Add(path, rdeerr.KindTypeMismatch, fmt.Sprintf("expected %s, got %T", item.Schema.Type, mv.Value))
	}
	if size := valueSize(mv.Value); size > MaxValueSize {
		report.Add(path, rdeerr.KindSizeExceeded, fmt.Sprintf("value is %d bytes, exceeds MAX_VALUE_SIZE of %d", size, MaxValueSize))
	}
}

func valueSize(value any) int {
	s, ok := value.(string)
	if !ok {
		return 0
	}
	return len(s)
}
