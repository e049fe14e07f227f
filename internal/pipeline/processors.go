// =============================================================================
// rdeconv - Tile Pipeline Processors
// =============================================================================
//
// Each processor is one step of the standard 9-step sequence. A
// processor returns nil to continue, rdeerr.ErrSkipRemainingProcessors
// to end the tile successfully without running later steps, or any
// other error to fail the tile. Processors never panic on expected
// conditions (missing optional directories, empty tiles); those are
// modeled as no-ops.
//
// =============================================================================

package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ginjaninja78/rdeconv/internal/invoice"
	"github.com/ginjaninja78/rdeconv/internal/magicvar"
	"github.com/ginjaninja78/rdeconv/internal/rdeerr"
	"github.com/ginjaninja78/rdeconv/internal/rdeschema"
	"github.com/ginjaninja78/rdeconv/internal/thumbnail"
	"github.com/ginjaninja78/rdeconv/internal/userfunc"
)

// Processor is one step of a tile's pipeline.
type Processor interface {
	Name() string
	Process(ctx *Context) error
}

// Run executes steps against ctx in order, stopping at the first error.
// ErrSkipRemainingProcessors ends the run early but still leaves the tile
// Success.
func Run(ctx *Context, steps []Processor) {
	ctx.Status = StatusRunning
	for _, step := range steps {
		err := step.Process(ctx)
		if err == nil {
			continue
		}
		if errors.Is(err, rdeerr.ErrSkipRemainingProcessors) {
			ctx.Status = StatusSuccess
			return
		}
		ctx.Fail(&rdeerr.PipelineError{TileIndex: ctx.TileIndex, Processor: step.Name(), Err: err})
		return
	}
	if ctx.Status == StatusRunning {
		ctx.Status = StatusSuccess
	}
}

// -----------------------------------------------------------------------
// 1. Initializer variants
// -----------------------------------------------------------------------

// CopyFromInvoiceOrgInitializer clones InvoiceOrg into the tile's own
// Invoice, used by Invoice and MultiDataTile modes (ExcelInvoice and
// SmartTable rows use ApplyRowInitializer instead).
type CopyFromInvoiceOrgInitializer struct{}

func (CopyFromInvoiceOrgInitializer) Name() string { return "Initializer" }

func (CopyFromInvoiceOrgInitializer) Process(ctx *Context) error {
	ctx.Invoice = ctx.InvoiceOrg.Clone()
	fillDataName(ctx)
	return nil
}

// ApplyRowInitializer clones InvoiceOrg then applies the tile's RowPatch
// (ExcelInvoice and SmartTable rows), routing meta/ columns into
// ctx.Metadata.
type ApplyRowInitializer struct{}

func (ApplyRowInitializer) Name() string { return "Initializer" }

func (ApplyRowInitializer) Process(ctx *Context) error {
	if len(ctx.Tile.RowPatch) == 0 && len(ctx.Tile.InputFiles) == 0 {
		// An empty SmartTable/ExcelInvoice row carries no data to process;
		// the tile still counts as handled, just with nothing further to do.
		ctx.Invoice = ctx.InvoiceOrg.Clone()
		return rdeerr.ErrSkipRemainingProcessors
	}
	if len(ctx.Tile.RowPatch) == 0 {
		ctx.Invoice = ctx.InvoiceOrg.Clone()
		fillDataName(ctx)
		return nil
	}
	result, err := invoice.OverwriteInvoice(ctx.InvoiceOrg, ctx.Tile.RowPatch, ctx.Schema)
	if err != nil {
		return err
	}
	ctx.Invoice = result.Document
	if len(result.MetaPatch) > 0 {
		metaDoc, err := buildMetadataDocument(result.MetaPatch, ctx.MetaDef)
		if err != nil {
			return err
		}
		ctx.Metadata = metaDoc
	}
	fillDataName(ctx)
	return nil
}

// buildMetadataDocument casts each meta/<name> column in patch against its
// metadata-def type, routing variable-sourced items into a single row of
// Metadata.Variable and everything else into Metadata.Constant. A column
// with no matching metadata-def entry passes through as a string constant;
// Validator reports it as an extra property rather than failing the cast.
func buildMetadataDocument(patch map[string]string, def *rdeschema.MetadataDefinition) (*rdeschema.Metadata, error) {
	doc := &rdeschema.Metadata{Constant: map[string]rdeschema.MetaValue{}}
	var variableRow map[string]rdeschema.MetaValue

	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := patch[key]
		var item rdeschema.MetadataDefItem
		known := false
		if def != nil {
			item, known = def.Items[key]
		}
		if !known {
			doc.Constant[key] = rdeschema.MetaValue{Value: raw}
			continue
		}
		value, err := castMetaValue(raw, key, item.Schema.Type)
		if err != nil {
			return nil, err
		}
		mv := rdeschema.MetaValue{Value: value, Unit: item.Schema.Unit}
		if item.Variable {
			if variableRow == nil {
				variableRow = map[string]rdeschema.MetaValue{}
			}
			variableRow[key] = mv
			continue
		}
		doc.Constant[key] = mv
	}
	if variableRow != nil {
		doc.Variable = []map[string]rdeschema.MetaValue{variableRow}
	}
	return doc, nil
}

// castMetaValue types a raw meta/ column value according to its
// metadata-def declared type, mirroring invoice.castValue's boolean/
// integer/number/string switch.
func castMetaValue(raw, key, typ string) (any, error) {
	switch typ {
	case "boolean":
		switch strings.ToUpper(raw) {
		case "TRUE":
			return true, nil
		case "FALSE":
			return false, nil
		default:
			return nil, metaCastError(key, fmt.Sprintf("boolean field requires TRUE or FALSE, got %q", raw))
		}
	case "integer":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, metaCastError(key, fmt.Sprintf("invalid integer %q", raw))
		}
		return int(n), nil
	case "number":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, metaCastError(key, fmt.Sprintf("invalid number %q", raw))
		}
		return f, nil
	default:
		return raw, nil
	}
}

func metaCastError(key, detail string) error {
	report := &rdeerr.ValidationReport{}
	report.Add("meta."+key, rdeerr.KindTypeMismatch, detail)
	return report
}

// NoOpInitializer is used by RDEFormat mode, whose archives already carry
// a fully-formed invoice.json under ExpandedRoot/invoice/invoice.json.
// Falls back to cloning InvoiceOrg when the archive carried none.
type NoOpInitializer struct{}

func (NoOpInitializer) Name() string { return "Initializer" }

func (NoOpInitializer) Process(ctx *Context) error {
	if ctx.Tile.ExpandedRoot != "" {
		invoicePath := filepath.Join(ctx.Tile.ExpandedRoot, "invoice", "invoice.json")
		if doc, err := invoice.LoadDocument(invoicePath); err == nil {
			ctx.Invoice = doc
			return nil
		}
	}
	if ctx.Invoice == nil {
		ctx.Invoice = ctx.InvoiceOrg.Clone()
	}
	return nil
}

// fillDataName sets basic.dataName from the tile's first input file when
// the invoice does not already declare one.
func fillDataName(ctx *Context) {
	basic := ctx.Invoice.Basic()
	if name, ok := basic["dataName"].(string); ok && name != "" {
		return
	}
	if raw := ctx.RawFileName(); raw != "" {
		basic["dataName"] = raw
	}
}

// -----------------------------------------------------------------------
// 2. MagicVariableSubstitutor
// -----------------------------------------------------------------------

// MagicVariableSubstitutor expands ${...} tokens in basic/custom/sample
// string fields, when system.magic_variable is enabled.
type MagicVariableSubstitutor struct{}

func (MagicVariableSubstitutor) Name() string { return "MagicVariableSubstitutor" }

func (MagicVariableSubstitutor) Process(ctx *Context) error {
	if !ctx.Config.MagicVariableEnabled() {
		return nil
	}
	resolver := &magicvar.Resolver{
		RawFileName:   ctx.RawFileName(),
		InvoiceSource: ctx.InvoiceOrg,
	}
	if ctx.Metadata != nil {
		resolver.MetadataSource = ctx.Metadata.AsSourceMap()
	}

	for _, section := range []string{"basic", "custom", "sample"} {
		sectionMap, ok := ctx.Invoice[section].(map[string]any)
		if !ok {
			continue
		}
		for field, value := range sectionMap {
			str, ok := value.(string)
			if !ok {
				continue
			}
			resolved, err := resolver.Expand(str)
			if err != nil {
				return err
			}
			sectionMap[field] = resolved
		}
	}
	return nil
}

// -----------------------------------------------------------------------
// 3. Validator
// -----------------------------------------------------------------------

// Validator runs ValidateInvoice (and ValidateMetadata when a
// MetadataDefinition is available) and fails the tile on any violation.
type Validator struct{}

func (Validator) Name() string { return "Validator" }

func (Validator) Process(ctx *Context) error {
	report := rdeschema.ValidateInvoice(ctx.Invoice, ctx.Schema, true)
	if report.HasErrors() {
		return report
	}

	if ctx.MetaDef != nil && ctx.Metadata != nil {
		metaReport := rdeschema.ValidateMetadata(ctx.Metadata, ctx.MetaDef)
		if metaReport.HasErrors() {
			return metaReport
		}
	}
	return nil
}

// -----------------------------------------------------------------------
// 4. MetadataSaver
// -----------------------------------------------------------------------

// MetadataSaver persists ctx.Metadata (the cast meta/ columns a row
// contributed) to <tile>/meta/metadata.json. A no-op for tiles with no
// meta/ columns at all.
type MetadataSaver struct{}

func (MetadataSaver) Name() string { return "MetadataSaver" }

func (MetadataSaver) Process(ctx *Context) error {
	if ctx.Metadata == nil {
		return nil
	}
	if err := os.MkdirAll(ctx.OutputPaths.Meta, 0o755); err != nil {
		return &rdeerr.IOError{Path: ctx.OutputPaths.Meta, Op: "create meta dir", Err: err}
	}
	path := filepath.Join(ctx.OutputPaths.Meta, "metadata.json")
	if err := rdeschema.SaveMetadataDocument(ctx.Metadata, path); err != nil {
		return &rdeerr.IOError{Path: path, Op: "save metadata.json", Err: err}
	}
	return nil
}

// -----------------------------------------------------------------------
// 5. RawCopier
// -----------------------------------------------------------------------

// RawCopier copies the tile's input files into raw/ and/or nonshared_raw/
// according to system.save_raw / system.save_nonshared_raw, and, when
// smarttable.save_table_file is set, the SmartTable descriptor into raw/.
type RawCopier struct {
	// CopyOnly marks RDEFormat-mode tiles, whose archive already lays out
	// raw/nonshared_raw itself: instead of copying InputFiles, the processor
	// transplants the expanded archive tree (see copyExpandedTree).
	CopyOnly bool
}

func (RawCopier) Name() string { return "RawCopier" }

func (r RawCopier) Process(ctx *Context) error {
	if r.CopyOnly {
		return copyExpandedTree(ctx)
	}
	if ctx.Config.SmartTable.SaveTableFile && ctx.Tile.SourceRowFile != "" {
		descriptor := filepath.Join(ctx.InputPaths.InputData, ctx.Tile.SourceRowFile)
		if err := copyInto(descriptor, ctx.OutputPaths.Raw); err != nil {
			return err
		}
	}
	if !ctx.Config.SaveRawEnabled() && !ctx.Config.System.SaveNonsharedRaw {
		return nil
	}
	for _, src := range ctx.Tile.InputFiles {
		if ctx.Config.SaveRawEnabled() {
			if err := copyInto(src, ctx.OutputPaths.Raw); err != nil {
				return err
			}
		}
		if ctx.Config.System.SaveNonsharedRaw {
			if err := copyInto(src, ctx.OutputPaths.NonsharedRaw); err != nil {
				return err
			}
		}
	}
	return nil
}

// copyExpandedTree transplants an RDEFormat tile's already-structured
// archive contents (raw/, meta/, structured/, ...) into the matching
// output subtree. A no-op for tiles with no ExpandedRoot.
func copyExpandedTree(ctx *Context) error {
	root := ctx.Tile.ExpandedRoot
	if root == "" {
		return nil
	}
	for _, name := range rdeformatDirNames {
		srcDir := filepath.Join(root, name)
		entries, err := os.ReadDir(srcDir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return &rdeerr.IOError{Path: srcDir, Op: "list expanded rdeformat tree", Err: err}
		}
		destDir := ctx.OutputPaths.DirFor(name)
		if destDir == "" {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if err := copyInto(filepath.Join(srcDir, e.Name()), destDir); err != nil {
				return err
			}
		}
	}
	return nil
}

// rdeformatDirNames lists the directory names an rdeformat archive lays
// out, each copied verbatim into the matching tile output subtree.
var rdeformatDirNames = []string{"raw", "nonshared_raw", "structured", "meta", "main_image", "other_image", "logs"}

func copyInto(src, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return &rdeerr.IOError{Path: destDir, Op: "create dir", Err: err}
	}
	dest := filepath.Join(destDir, filepath.Base(src))

	in, err := os.Open(src)
	if err != nil {
		return &rdeerr.IOError{Path: src, Op: "open source file", Err: err}
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return &rdeerr.IOError{Path: dest, Op: "create destination file", Err: err}
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return &rdeerr.IOError{Path: dest, Op: "copy file", Err: err}
	}
	return nil
}

// -----------------------------------------------------------------------
// 6. DescriptionUpdater
// -----------------------------------------------------------------------

// DescriptionUpdater transcribes feature-flagged metadata-def entries
// into basic.description, one "key: value" line per entry. A constant
// entry shadows a variable entry of the same key; a variable entry whose
// key recurs across Metadata.Variable rows formats as "key: [A,B,C]".
type DescriptionUpdater struct{}

func (DescriptionUpdater) Name() string { return "DescriptionUpdater" }

func (DescriptionUpdater) Process(ctx *Context) error {
	if !ctx.Config.System.FeatureDescription {
		return nil
	}
	if ctx.MetaDef == nil || ctx.Metadata == nil {
		return nil
	}

	keys := make([]string, 0, len(ctx.MetaDef.Items))
	for key, item := range ctx.MetaDef.Items {
		if item.Feature {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var lines []string
	for _, key := range keys {
		if mv, ok := ctx.Metadata.Constant[key]; ok {
			lines = append(lines, fmt.Sprintf("%s: %s", key, stringifyMetaValue(mv.Value)))
			continue
		}
		if values := variableValuesForKey(ctx.Metadata.Variable, key); len(values) > 0 {
			lines = append(lines, fmt.Sprintf("%s: [%s]", key, strings.Join(values, ",")))
		}
	}
	if len(lines) == 0 {
		return nil
	}

	basic := ctx.Invoice.Basic()
	existing, _ := basic["description"].(string)
	addition := strings.Join(lines, "\n")
	if existing != "" {
		basic["description"] = existing + "\n" + addition
	} else {
		basic["description"] = addition
	}
	return nil
}

// variableValuesForKey collects key's value from every row of a
// Metadata.Variable table, in row order, stringified for [A,B,C] display.
func variableValuesForKey(rows []map[string]rdeschema.MetaValue, key string) []string {
	var values []string
	for _, row := range rows {
		if mv, ok := row[key]; ok {
			values = append(values, stringifyMetaValue(mv.Value))
		}
	}
	return values
}

func stringifyMetaValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// -----------------------------------------------------------------------
// 7. ThumbnailGenerator
// -----------------------------------------------------------------------

// ThumbnailGenerator produces a downsized JPEG from the first image in
// main_image, when system.save_thumbnail_image is enabled.
type ThumbnailGenerator struct{}

func (ThumbnailGenerator) Name() string { return "ThumbnailGenerator" }

func (ThumbnailGenerator) Process(ctx *Context) error {
	if !ctx.Config.System.SaveThumbnailImage {
		return nil
	}
	_, err := thumbnail.Generate(ctx.OutputPaths.MainImage, ctx.OutputPaths.Thumbnail)
	if err != nil {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------
// 8. StructuredInvoiceSaver
// -----------------------------------------------------------------------

// StructuredInvoiceSaver writes the finalized invoice.json, and (config
// -gated) a copy into structured/.
type StructuredInvoiceSaver struct {
	SaveStructuredCopy bool
}

func (StructuredInvoiceSaver) Name() string { return "StructuredInvoiceSaver" }

func (s StructuredInvoiceSaver) Process(ctx *Context) error {
	if err := os.MkdirAll(filepath.Dir(ctx.OutputPaths.Invoice), 0o755); err != nil {
		return &rdeerr.IOError{Path: ctx.OutputPaths.Invoice, Op: "create invoice dir", Err: err}
	}
	if err := ctx.Invoice.Save(ctx.OutputPaths.Invoice); err != nil {
		return &rdeerr.IOError{Path: ctx.OutputPaths.Invoice, Op: "save invoice", Err: err}
	}

	if !s.SaveStructuredCopy {
		return nil
	}
	if err := os.MkdirAll(ctx.OutputPaths.Struct, 0o755); err != nil {
		return &rdeerr.IOError{Path: ctx.OutputPaths.Struct, Op: "create structured dir", Err: err}
	}
	dest := filepath.Join(ctx.OutputPaths.Struct, filepath.Base(ctx.OutputPaths.Invoice))
	if err := ctx.Invoice.Save(dest); err != nil {
		return &rdeerr.IOError{Path: dest, Op: "save structured invoice copy", Err: err}
	}
	return nil
}

// -----------------------------------------------------------------------
// 9. UserDatasetFunction
// -----------------------------------------------------------------------

// UserDatasetFunction invokes the caller-supplied DatasetFunc, when
// registered, with the tile's DatasetPaths.
type UserDatasetFunction struct{}

func (UserDatasetFunction) Name() string { return "UserDatasetFunction" }

func (UserDatasetFunction) Process(ctx *Context) error {
	if ctx.DatasetFunc == nil {
		return nil
	}
	paths := &userfunc.DatasetPaths{
		InputPaths:    ctx.InputPaths,
		OutputPaths:   ctx.OutputPaths,
		SmartTableRow: ctx.Tile.RowPatch,
		Invoice:       ctx.Invoice,
	}
	return ctx.DatasetFunc(paths)
}
