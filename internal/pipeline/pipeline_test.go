package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/rdeconv/internal/classify"
	"github.com/ginjaninja78/rdeconv/internal/invoice"
	"github.com/ginjaninja78/rdeconv/internal/rdeconfig"
	"github.com/ginjaninja78/rdeconv/internal/rdepath"
	"github.com/ginjaninja78/rdeconv/internal/rdeschema"
)

func testSchema(t *testing.T) *rdeschema.Schema {
	t.Helper()
	raw := `{
		"type": "object",
		"properties": {
			"basic": {
				"type": "object",
				"required": ["dataName"],
				"properties": {
					"dataName": {"type": "string"},
					"dataOwnerId": {"type": "string"}
				}
			}
		}
	}`
	path := filepath.Join(t.TempDir(), "invoice.schema.json")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))
	schema, err := rdeschema.LoadInvoiceSchema(path)
	require.NoError(t, err)
	return schema
}

func newTestContext(t *testing.T, tile classify.TileUnit) *Context {
	t.Helper()
	root := t.TempDir()
	outRoot := filepath.Join(root, "out")
	return &Context{
		Mode:        classify.ModeInvoice,
		Config:      &rdeconfig.Config{},
		InputPaths:  rdepath.NewInputPaths(root),
		OutputPaths: rdepath.NewOutputPaths(outRoot),
		TileIndex:   tile.Index,
		Tile:        tile,
		Schema:      testSchema(t),
		InvoiceOrg:  invoice.Document{"basic": map[string]any{"dataOwnerId": "owner-1"}},
	}
}

func TestRunStandardSequenceProducesInvoice(t *testing.T) {
	sourceDir := t.TempDir()
	sourceFile := filepath.Join(sourceDir, "sample.dat")
	require.NoError(t, os.WriteFile(sourceFile, []byte("data"), 0o644))

	ctx := newTestContext(t, classify.TileUnit{Index: 0, InputFiles: []string{sourceFile}})
	steps := []Processor{
		CopyFromInvoiceOrgInitializer{},
		MagicVariableSubstitutor{},
		Validator{},
		RawCopier{},
		DescriptionUpdater{},
		ThumbnailGenerator{},
		StructuredInvoiceSaver{},
		UserDatasetFunction{},
	}
	Run(ctx, steps)

	require.Equal(t, StatusSuccess, ctx.Status)
	assert.Equal(t, "sample.dat", ctx.Invoice.Basic()["dataName"])
	_, err := os.Stat(ctx.OutputPaths.Invoice)
	assert.NoError(t, err)
}

func TestRunFailsTileOnValidationError(t *testing.T) {
	ctx := newTestContext(t, classify.TileUnit{Index: 0})
	ctx.InvoiceOrg = invoice.Document{"basic": map[string]any{}}
	steps := []Processor{
		NoOpInitializer{},
		Validator{},
	}
	Run(ctx, steps)

	require.Equal(t, StatusFailed, ctx.Status)
	require.Len(t, ctx.Errors, 1)
}

func TestRunSkipsRemainingOnEmptySmartTableRow(t *testing.T) {
	ctx := newTestContext(t, classify.TileUnit{Index: 0})
	calledSaver := false
	steps := []Processor{
		ApplyRowInitializer{},
		fakeProcessor{name: "never-runs", fn: func(*Context) error { calledSaver = true; return nil }},
	}
	Run(ctx, steps)

	require.Equal(t, StatusSuccess, ctx.Status)
	assert.False(t, calledSaver)
}

func TestRunAppliesRowPatchThroughApplyRowInitializer(t *testing.T) {
	ctx := newTestContext(t, classify.TileUnit{
		Index:      0,
		InputFiles: []string{"/tmp/sample-1.txt"},
		RowPatch:   map[string]string{"basic/dataName": "sample-1.txt"},
	})
	Run(ctx, []Processor{ApplyRowInitializer{}})

	require.Equal(t, StatusSuccess, ctx.Status)
	assert.Equal(t, "sample-1.txt", ctx.Invoice.Basic()["dataName"])
	assert.Equal(t, "owner-1", ctx.Invoice.Basic()["dataOwnerId"])
}

func TestDescriptionUpdaterFormatsConstantAndVariableFeatures(t *testing.T) {
	ctx := newTestContext(t, classify.TileUnit{Index: 0})
	ctx.Config = &rdeconfig.Config{}
	ctx.Config.System.FeatureDescription = true
	ctx.Invoice = invoice.Document{"basic": map[string]any{"dataName": "sample.dat"}}
	ctx.MetaDef = &rdeschema.MetadataDefinition{
		Items: map[string]rdeschema.MetadataDefItem{
			"temperature": {Schema: rdeschema.MetadataDefSchema{Type: "number"}, Feature: true},
			"channel":     {Schema: rdeschema.MetadataDefSchema{Type: "string"}, Variable: true, Feature: true},
			"internal":    {Schema: rdeschema.MetadataDefSchema{Type: "string"}, Feature: false},
		},
	}
	ctx.Metadata = &rdeschema.Metadata{
		Constant: map[string]rdeschema.MetaValue{
			"temperature": {Value: 25.0},
			"internal":    {Value: "not-a-feature"},
		},
		Variable: []map[string]rdeschema.MetaValue{
			{"channel": {Value: "A"}},
			{"channel": {Value: "B"}},
			{"channel": {Value: "C"}},
		},
	}

	require.NoError(t, DescriptionUpdater{}.Process(ctx))

	description, _ := ctx.Invoice.Basic()["description"].(string)
	assert.Contains(t, description, "temperature: 25")
	assert.Contains(t, description, "channel: [A,B,C]")
	assert.NotContains(t, description, "internal")
}

func TestMetadataSaverWritesMetadataJSON(t *testing.T) {
	ctx := newTestContext(t, classify.TileUnit{Index: 0})
	ctx.Metadata = &rdeschema.Metadata{
		Constant: map[string]rdeschema.MetaValue{"temperature": {Value: 25.0, Unit: "C"}},
	}

	require.NoError(t, MetadataSaver{}.Process(ctx))

	path := filepath.Join(ctx.OutputPaths.Meta, "metadata.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"temperature"`)
	assert.Contains(t, string(data), `"unit": "C"`)
}

func TestApplyRowInitializerCastsMetaColumnsAndPopulatesMetadata(t *testing.T) {
	ctx := newTestContext(t, classify.TileUnit{
		Index:      0,
		InputFiles: []string{"/tmp/sample-1.txt"},
		RowPatch: map[string]string{
			"basic/dataName": "sample-1.txt",
			"meta/temperature": "25.0",
		},
	})
	ctx.MetaDef = &rdeschema.MetadataDefinition{
		Items: map[string]rdeschema.MetadataDefItem{
			"temperature": {Schema: rdeschema.MetadataDefSchema{Type: "number", Unit: "C"}},
		},
	}
	Run(ctx, []Processor{ApplyRowInitializer{}})

	require.Equal(t, StatusSuccess, ctx.Status)
	require.NotNil(t, ctx.Metadata)
	assert.Equal(t, 25.0, ctx.Metadata.Constant["temperature"].Value)
	assert.Equal(t, "C", ctx.Metadata.Constant["temperature"].Unit)
}

type fakeProcessor struct {
	name string
	fn   func(*Context) error
}

func (f fakeProcessor) Name() string             { return f.name }
func (f fakeProcessor) Process(ctx *Context) error { return f.fn(ctx) }
