// =============================================================================
// rdeconv - Invoice Overwrite Module
// =============================================================================
//
// OverwriteInvoice materializes one tile's invoice.json from a base
// invoice (invoice_org) plus a single ExcelInvoice or SmartTable row.
// Column paths address a specific field:
//
//   basic/<field>                                  -> basic.<field>
//   custom/<field>                                  -> custom.<field>
//   sample/<field>                                  -> sample.<field>
//   sample/generalAttributes/<termId>               -> upsert by termId
//   sample/specificAttributes/<classId>/<termId>    -> upsert by classId+termId
//   meta/<constantName>                             -> metadata.json side channel
//
// An empty cell removes the field from the tile's invoice outright: values
// are never inherited from the base document once a row explicitly names
// the column. sample.ownerId on the base, however, always survives the
// merge untouched (it identifies who submitted the batch, not a per-row
// fact). Values destined for basic/custom/sample are cast against the
// invoice schema; the cast for boolean fields is strict: only the exact
// strings "TRUE"/"FALSE" (case-insensitive) are accepted, anything else is
// a type_mismatch ValidationReport. Other cast failures are PatchErrors.
//
// =============================================================================

package invoice

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ginjaninja78/rdeconv/internal/rdeerr"
	"github.com/ginjaninja78/rdeconv/internal/rdeschema"
)

// PatchError reports a problem applying one row's column to the invoice.
type PatchError struct {
	ColumnPath string
	Reason     string
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("column %q: %s", e.ColumnPath, e.Reason)
}

// OverwriteResult is the outcome of applying one row to a base invoice.
type OverwriteResult struct {
	Document    Document
	MetaPatch   map[string]string // meta/<name> columns, cast left to the caller
	Report      *rdeerr.ValidationReport
}

// OverwriteInvoice clones base, applies every column in patch, then
// validates the result against schema.
func OverwriteInvoice(base Document, patch map[string]string, schema *rdeschema.Schema) (*OverwriteResult, error) {
	doc := base.Clone()
	ownerID, hadOwnerID := doc.Sample()["ownerId"]

	metaPatch := map[string]string{}

	columns := make([]string, 0, len(patch))
	for col := range patch {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	for _, col := range columns {
		value := patch[col]
		if err := applyColumn(doc, col, value, schema, metaPatch); err != nil {
			return nil, err
		}
	}

	if hadOwnerID {
		doc.Sample()["ownerId"] = ownerID
	}

	report := rdeschema.ValidateInvoice(doc, schema, false)
	return &OverwriteResult{Document: doc, MetaPatch: metaPatch, Report: report}, nil
}

func applyColumn(doc Document, col, value string, schema *rdeschema.Schema, metaPatch map[string]string) error {
	parts := strings.Split(col, "/")
	if len(parts) < 2 {
		return &PatchError{ColumnPath: col, Reason: "column path must have at least a section and a field"}
	}
	section, rest := parts[0], parts[1:]

	switch section {
	case "basic", "custom":
		if len(rest) != 1 {
			return &PatchError{ColumnPath: col, Reason: fmt.Sprintf("%s columns take exactly one field name", section)}
		}
		return setScalarField(doc.section(section), rest[0], value, col, schema)
	case "sample":
		return applySampleColumn(doc, rest, value, col, schema)
	case "meta":
		if len(rest) != 1 {
			return &PatchError{ColumnPath: col, Reason: "meta columns take exactly one constant name"}
		}
		if value == "" {
			delete(metaPatch, rest[0])
			return nil
		}
		metaPatch[rest[0]] = value
		return nil
	default:
		return &PatchError{ColumnPath: col, Reason: fmt.Sprintf("unsupported column section %q", section)}
	}
}

func applySampleColumn(doc Document, rest []string, value, col string, schema *rdeschema.Schema) error {
	sample := doc.section("sample")
	switch len(rest) {
	case 1:
		return setScalarField(sample, rest[0], value, col, schema)
	case 2:
		if rest[0] != "generalAttributes" {
			return &PatchError{ColumnPath: col, Reason: "sample path with two segments must be generalAttributes/<termId>"}
		}
		return upsertAttribute(sample, "generalAttributes", map[string]string{"termId": rest[1]}, value, col, schema)
	case 3:
		if rest[0] != "specificAttributes" {
			return &PatchError{ColumnPath: col, Reason: "sample path with three segments must be specificAttributes/<classId>/<termId>"}
		}
		return upsertAttribute(sample, "specificAttributes", map[string]string{"classId": rest[1], "termId": rest[2]}, value, col, schema)
	default:
		return &PatchError{ColumnPath: col, Reason: "unsupported sample column depth"}
	}
}

func upsertAttribute(sample map[string]any, arrayKey string, keys map[string]string, value, col string, schema *rdeschema.Schema) error {
	raw, _ := sample[arrayKey].([]any)

	if value == "" {
		filtered := raw[:0]
		for _, item := range raw {
			if !attributeMatches(item, keys) {
				filtered = append(filtered, item)
			}
		}
		sample[arrayKey] = filtered
		return nil
	}

	castValue, err := castValue(value, col, schema)
	if err != nil {
		return err
	}

	for _, item := range raw {
		if entry, ok := item.(map[string]any); ok && attributeMatches(entry, keys) {
			entry["value"] = castValue
			return nil
		}
	}

	entry := map[string]any{"value": castValue}
	for k, v := range keys {
		entry[k] = v
	}
	sample[arrayKey] = append(raw, entry)
	return nil
}

func attributeMatches(item any, keys map[string]string) bool {
	entry, ok := item.(map[string]any)
	if !ok {
		return false
	}
	for k, v := range keys {
		if entry[k] != v {
			return false
		}
	}
	return true
}

func setScalarField(section map[string]any, field, value, col string, schema *rdeschema.Schema) error {
	if value == "" {
		delete(section, field)
		return nil
	}
	castValue, err := castValue(value, col, schema)
	if err != nil {
		return err
	}
	section[field] = castValue
	return nil
}

// castValue types a raw string cell according to the field's declared
// schema type, looked up by its final path segment. Unknown/untyped
// fields pass through as plain strings.
func castValue(value, col string, schema *rdeschema.Schema) (any, error) {
	parts := strings.Split(col, "/")
	fieldName := parts[len(parts)-1]
	field, ok := rdeschema.FindField(schema, fieldName)
	if !ok || field.Type == "" {
		return value, nil
	}
	switch field.Type {
	case "boolean":
		switch strings.ToUpper(value) {
		case "TRUE":
			return true, nil
		case "FALSE":
			return false, nil
		default:
			report := &rdeerr.ValidationReport{}
			report.Add(col, rdeerr.KindTypeMismatch, fmt.Sprintf("boolean field requires TRUE or FALSE, got %q", value))
			return nil, report
		}
	case "integer":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, &PatchError{ColumnPath: col, Reason: fmt.Sprintf("invalid integer %q", value)}
		}
		return int(n), nil
	case "number":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, &PatchError{ColumnPath: col, Reason: fmt.Sprintf("invalid number %q", value)}
		}
		return f, nil
	default:
		return value, nil
	}
}
