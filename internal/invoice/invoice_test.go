package invoice

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/rdeconv/internal/rdeschema"
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
        "dataOwnerId": {"type": "string", "default": "unset"}
      }
    },
    "custom": {
      "type": "object",
      "properties": {
        "isValid": {"type": "boolean"},
        "count": {"type": "integer"}
      }
    }
  }
}`

func loadTestSchema(t *testing.T) *rdeschema.Schema {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoice.schema.json")
	require.NoError(t, os.WriteFile(path, []byte(testSchemaJSON), 0o644))
	schema, err := rdeschema.LoadInvoiceSchema(path)
	require.NoError(t, err)
	return schema
}

func TestGenerateFromSchemaFillsDefaults(t *testing.T) {
	schema := loadTestSchema(t)
	doc := GenerateFromSchema(schema, true, false)
	basic, ok := doc["basic"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "unset", basic["dataOwnerId"])
	assert.Equal(t, "", basic["dataName"])
}

func TestGenerateFromSchemaRequiredOnly(t *testing.T) {
	schema := loadTestSchema(t)
	doc := GenerateFromSchema(schema, false, true)
	basic, ok := doc["basic"].(map[string]any)
	require.True(t, ok)
	_, hasDataName := basic["dataName"]
	assert.True(t, hasDataName)

	_, hasDataOwnerID := basic["dataOwnerId"]
	assert.False(t, hasDataOwnerID, "basic.dataOwnerId is not in basic.required and must not be force-included just because basic itself is")

	_, hasCustom := doc["custom"]
	assert.False(t, hasCustom, "custom is not in the root's required list and must not appear under requiredOnly")
}

func TestCloneIsIndependent(t *testing.T) {
	doc := Document{"basic": map[string]any{"dataName": "a"}}
	clone := doc.Clone()
	clone.Basic()["dataName"] = "b"
	assert.Equal(t, "a", doc.Basic()["dataName"])
	assert.Equal(t, "b", clone.Basic()["dataName"])
}

func TestOverwriteInvoiceAppliesColumnsAndCasts(t *testing.T) {
	schema := loadTestSchema(t)
	base := Document{
		"basic":  map[string]any{"dataName": "orig.txt", "dataOwnerId": "owner-x"},
		"sample": map[string]any{"ownerId": "keep-me"},
	}

	result, err := OverwriteInvoice(base, map[string]string{
		"basic/dataName":  "row1.txt",
		"custom/isValid":  "true",
		"custom/count":    "3",
	}, schema)
	require.NoError(t, err)
	assert.False(t, result.Report.HasErrors())

	basic := result.Document.Basic()
	assert.Equal(t, "row1.txt", basic["dataName"])
	assert.Equal(t, "owner-x", basic["dataOwnerId"])

	custom := result.Document.Custom()
	assert.Equal(t, true, custom["isValid"])
	assert.Equal(t, 3, custom["count"])

	assert.Equal(t, "keep-me", result.Document.Sample()["ownerId"])
}

func TestOverwriteInvoiceEmptyCellRemovesField(t *testing.T) {
	schema := loadTestSchema(t)
	base := Document{"basic": map[string]any{"dataName": "orig.txt", "dataOwnerId": "owner-x"}}

	result, err := OverwriteInvoice(base, map[string]string{"basic/dataOwnerId": ""}, schema)
	require.NoError(t, err)

	_, present := result.Document.Basic()["dataOwnerId"]
	assert.False(t, present)
}

func TestOverwriteInvoiceStrictBooleanCast(t *testing.T) {
	schema := loadTestSchema(t)
	base := Document{"basic": map[string]any{"dataName": "x"}}

	_, err := OverwriteInvoice(base, map[string]string{"custom/isValid": "yes"}, schema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRUE or FALSE")
}

func TestOverwriteInvoiceMetaColumnsSideChannel(t *testing.T) {
	schema := loadTestSchema(t)
	base := Document{"basic": map[string]any{"dataName": "x"}}

	result, err := OverwriteInvoice(base, map[string]string{"meta/temperature": "25.0"}, schema)
	require.NoError(t, err)
	assert.Equal(t, "25.0", result.MetaPatch["temperature"])
	_, leaked := result.Document["meta"]
	assert.False(t, leaked)
}
