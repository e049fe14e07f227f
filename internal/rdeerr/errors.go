// =============================================================================
// rdeconv - Error Taxonomy Module
// =============================================================================
//
// The error types shared across this module's packages. Each type carries
// the context a caller needs to report a useful message (file path, tile
// index, processor name, field path). IOError, PipelineError and
// FatalError expose their cause through Unwrap, so errors.As/errors.Is
// work across the chain. Not every boundary uses these types; some
// functions return plain fmt.Errorf errors.
//
// =============================================================================

package rdeerr

import (
	"errors"
	"fmt"
)

// ConfigError reports a problem loading or validating rdeconfig.yaml.
type ConfigError struct {
	Message      string
	FilePath     string
	ErrorType    string // "file_not_found", "parse_error", "validation_error"
	LineNumber   int    // 0 when unknown
	ColumnNumber int    // 0 when unknown
	FieldName    string
	DocURL       string
}

const defaultConfigDocURL = "https://nims-mdpf.github.io/rdetoolkit/usage/config/config/"

// NewConfigError builds a ConfigError, defaulting DocURL when unset.
func NewConfigError(message string) *ConfigError {
	return &ConfigError{Message: message, ErrorType: "unknown", DocURL: defaultConfigDocURL}
}

func (e *ConfigError) Error() string {
	msg := e.Message
	if e.FilePath != "" {
		msg = fmt.Sprintf("Configuration file: '%s'\n%s", e.FilePath, msg)
	}
	if e.LineNumber != 0 {
		loc := fmt.Sprintf("line %d", e.LineNumber)
		if e.ColumnNumber != 0 {
			loc += fmt.Sprintf(", column %d", e.ColumnNumber)
		}
		msg = fmt.Sprintf("%s\nLocation: %s", msg, loc)
	}
	if e.FieldName != "" {
		msg = fmt.Sprintf("%s\nField: %s", msg, e.FieldName)
	}
	docURL := e.DocURL
	if docURL == "" {
		docURL = defaultConfigDocURL
	}
	return fmt.Sprintf("%s\nSee: %s", msg, docURL)
}

// ValidationReport aggregates every schema/metadata validation failure
// found while walking one document. Collection is fail-slow within a
// document: all items are gathered before the caller decides what to do.
type ValidationReport struct {
	Items []ValidationItem
}

// ValidationItem describes a single violation.
type ValidationItem struct {
	Path   string
	Kind   ValidationKind
	Detail string
}

// ValidationKind enumerates the ways a document can fail validation.
type ValidationKind string

const (
	KindMissing        ValidationKind = "missing"
	KindTypeMismatch   ValidationKind = "type_mismatch"
	KindEnumViolation  ValidationKind = "enum_violation"
	KindExtraProperty  ValidationKind = "extra_property"
	KindFormatError    ValidationKind = "format_error"
	KindSizeExceeded   ValidationKind = "size_exceeded"
)

func (r *ValidationReport) Add(path string, kind ValidationKind, detail string) {
	r.Items = append(r.Items, ValidationItem{Path: path, Kind: kind, Detail: detail})
}

func (r *ValidationReport) HasErrors() bool { return len(r.Items) > 0 }

func (r *ValidationReport) Error() string {
	if len(r.Items) == 0 {
		return "validation report: no errors"
	}
	msg := fmt.Sprintf("validation failed with %d error(s):", len(r.Items))
	for _, item := range r.Items {
		msg += fmt.Sprintf("\n  [%s] %s: %s", item.Kind, item.Path, item.Detail)
	}
	return msg
}

// IOError wraps a filesystem failure (archive expansion, raw file copy,
// output directory creation) with the path it concerns.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error during %s on %q: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// TemplateError reports a magic-variable substitution failure.
type TemplateError struct {
	Expression string
	Reason     string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("magic variable %q: %s", e.Expression, e.Reason)
}

// PipelineError wraps a processor failure with the tile and processor it
// occurred in.
type PipelineError struct {
	TileIndex int
	Processor string
	Err       error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("tile %d: processor %s: %v", e.TileIndex, e.Processor, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// FatalError marks an error that must abort the whole run rather than
// just the current tile (e.g. a schema that fails to parse at all).
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return fmt.Sprintf("fatal: %v", e.Err) }
func (e *FatalError) Unwrap() error { return e.Err }

// ErrSkipRemainingProcessors is a sentinel control-flow signal, not a data
// carrying error: a processor returns it to end the current tile's
// pipeline early while still marking the tile successful. Callers detect
// it with errors.Is, never errors.As.
var ErrSkipRemainingProcessors = errors.New("skip remaining processors")
