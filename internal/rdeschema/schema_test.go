package rdeschema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/rdeconv/internal/rdeerr"
)

const testSchemaJSON = `{
  "type": "object",
  "required": ["basic"],
  "properties": {
    "basic": {
      "type": "object",
      "required": ["dataName"],
      "properties": {
        "dataName": {"type": "string"},
        "dataOwnerId": {"type": "string", "default": "unknown"}
      }
    },
    "custom": {
      "type": "object",
      "properties": {
        "measurementType": {"type": "string", "enum": ["A", "B"]}
      }
    },
    "sample": {
      "type": "object",
      "required": ["sampleId", "names"],
      "properties": {
        "sampleId": {"type": "string"},
        "names": {"type": "array", "items": {"type": "string"}}
      }
    }
  }
}`

func writeTestSchema(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoice.schema.json")
	require.NoError(t, os.WriteFile(path, []byte(testSchemaJSON), 0o644))
	return path
}

func TestLoadInvoiceSchemaParsesTree(t *testing.T) {
	schema, err := LoadInvoiceSchema(writeTestSchema(t))
	require.NoError(t, err)
	assert.Equal(t, KindObject, schema.Root.Kind)
	assert.Contains(t, schema.Root.Properties, "basic")
	assert.Equal(t, KindObject, schema.Root.Properties["basic"].Kind)
}

func TestFindFieldDepthFirst(t *testing.T) {
	schema, err := LoadInvoiceSchema(writeTestSchema(t))
	require.NoError(t, err)

	field, ok := FindField(schema, "dataName")
	require.True(t, ok)
	assert.Equal(t, "string", field.Type)

	_, ok = FindField(schema, "doesNotExist")
	assert.False(t, ok)
}

func TestValidateInvoiceDetectsMissingRequired(t *testing.T) {
	schema, err := LoadInvoiceSchema(writeTestSchema(t))
	require.NoError(t, err)

	doc := map[string]any{"basic": map[string]any{}}
	report := ValidateInvoice(doc, schema, false)
	require.True(t, report.HasErrors())
	assert.Equal(t, "basic.dataName", report.Items[0].Path)
}

func TestValidateInvoicePassesWhenComplete(t *testing.T) {
	schema, err := LoadInvoiceSchema(writeTestSchema(t))
	require.NoError(t, err)

	doc := map[string]any{
		"basic":  map[string]any{"dataName": "sample.txt"},
		"custom": map[string]any{"measurementType": "A"},
	}
	report := ValidateInvoice(doc, schema, false)
	assert.False(t, report.HasErrors())
}

func TestValidateInvoiceEnumViolation(t *testing.T) {
	schema, err := LoadInvoiceSchema(writeTestSchema(t))
	require.NoError(t, err)

	doc := map[string]any{
		"basic":  map[string]any{"dataName": "sample.txt"},
		"custom": map[string]any{"measurementType": "Z"},
	}
	report := ValidateInvoice(doc, schema, false)
	require.True(t, report.HasErrors())
	assert.Equal(t, "custom.measurementType", report.Items[0].Path)
}

func TestValidateInvoiceSampleAllowShapeOnlyRequiresSampleId(t *testing.T) {
	schema, err := LoadInvoiceSchema(writeTestSchema(t))
	require.NoError(t, err)

	doc := map[string]any{
		"basic":  map[string]any{"dataName": "sample.txt"},
		"sample": map[string]any{"sampleId": "S001"},
	}
	report := ValidateInvoice(doc, schema, false)
	assert.False(t, report.HasErrors(), "sample.names is absent but the allow-shape only requires sampleId")
}

func TestValidateInvoiceSampleAllowShapeStillRequiresSampleId(t *testing.T) {
	schema, err := LoadInvoiceSchema(writeTestSchema(t))
	require.NoError(t, err)

	doc := map[string]any{
		"basic":  map[string]any{"dataName": "sample.txt"},
		"sample": map[string]any{"names": []any{"a"}},
	}
	report := ValidateInvoice(doc, schema, false)
	require.True(t, report.HasErrors())
	assert.Equal(t, "sample.sampleId", report.Items[0].Path)
}

func TestValidateMetadataSizeLimit(t *testing.T) {
	def := &MetadataDefinition{Items: map[string]MetadataDefItem{
		"note": {Schema: MetadataDefSchema{Type: "string"}},
	}}
	big := make([]byte, MaxValueSize+1)
	doc := &Metadata{Constant: map[string]MetaValue{"note": {Value: string(big)}}}

	report := ValidateMetadata(doc, def)
	require.True(t, report.HasErrors())
	assert.Equal(t, rdeerr.KindSizeExceeded, report.Items[0].Kind)
}
