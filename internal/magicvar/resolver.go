// =============================================================================
// rdeconv - Magic Variable Module
// =============================================================================
//
// Expands ${...} tokens embedded in invoice.basic.dataName (and other
// string fields) against the tile's source invoice, metadata.json, and
// raw file name:
//
//   ${filename}                    -> raw file name
//   ${invoice:basic:<field>}       -> invoice_org.basic.<field>
//   ${invoice:custom:<field>}      -> invoice_org.custom.<field>
//   ${invoice:sample:names}        -> non-empty sample.names, "_"-joined
//   ${metadata:constant:<field>}   -> metadata.json.constant.<field>.value
//
// A resolved empty value is replaced by nothing, and a redundant "_" left
// behind by that removal is trimmed from the following literal text so
// "${a}_${b}" never turns into a literal double underscore when one side
// is empty. Every other failure mode (missing field, unsupported prefix,
// non-scalar target) is a hard TemplateError: this is filled in once, at
// tile-initialization time, not retried.
//
// =============================================================================

package magicvar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ginjaninja78/rdeconv/internal/rdeerr"
)

var magicVariablePattern = regexp.MustCompile(`\$\{([^}]*)\}`)

const (
	minInvoiceFieldSegments = 2
	minMetadataSegments     = 2
)

// Resolver expands magic-variable templates for one tile.
type Resolver struct {
	RawFileName    string
	InvoiceSource  map[string]any
	MetadataSource map[string]any // nil when no metadata.json is available
}

// Expand resolves every ${...} token in template, returning the fully
// substituted string or a *rdeerr.TemplateError.
func (r *Resolver) Expand(template string) (string, error) {
	var out strings.Builder
	lastEnd := 0
	skipPending := false

	matches := magicVariablePattern.FindAllStringSubmatchIndex(template, -1)
	for _, m := range matches {
		start, end := m[0], m[1]
		exprStart, exprEnd := m[2], m[3]

		literal := template[lastEnd:start]
		literal = r.trimRedundantUnderscore(literal, out.String(), skipPending)
		out.WriteString(literal)

		resolved, err := r.resolveExpression(template[exprStart:exprEnd])
		if err != nil {
			return "", err
		}
		if resolved == nil {
			skipPending = true
		} else {
			out.WriteString(*resolved)
			skipPending = false
		}
		lastEnd = end
	}

	trailing := template[lastEnd:]
	trailing = r.trimRedundantUnderscore(trailing, out.String(), skipPending)
	out.WriteString(trailing)

	return out.String(), nil
}

// trimRedundantUnderscore strips literal's leading underscore when the
// previous resolution produced an empty value and already left a
// trailing underscore on the accumulated output.
func (r *Resolver) trimRedundantUnderscore(literal, soFar string, skipPending bool) string {
	if skipPending && strings.HasPrefix(literal, "_") && soFar != "" && strings.HasSuffix(soFar, "_") {
		return literal[1:]
	}
	return literal
}

func (r *Resolver) resolveExpression(expression string) (*string, error) {
	if expression == "" {
		return nil, &rdeerr.TemplateError{Expression: expression, Reason: "encountered empty magic variable expression"}
	}
	segments := strings.Split(expression, ":")
	prefix := segments[0]

	switch prefix {
	case "filename":
		name := r.RawFileName
		return &name, nil
	case "invoice":
		return r.resolveInvoiceExpression(segments[1:], expression)
	case "metadata":
		return r.resolveMetadataExpression(segments[1:], expression)
	default:
		return nil, &rdeerr.TemplateError{Expression: expression, Reason: fmt.Sprintf("unsupported magic variable %q", expression)}
	}
}

func (r *Resolver) resolveInvoiceExpression(segments []string, expression string) (*string, error) {
	if len(segments) == 0 {
		return nil, &rdeerr.TemplateError{Expression: expression, Reason: "invoice expression requires a section"}
	}
	section := segments[0]
	sectionValue, ok := r.InvoiceSource[section]
	if !ok {
		return nil, &rdeerr.TemplateError{Expression: expression, Reason: fmt.Sprintf("invoice section %q is missing from the source invoice", section)}
	}

	switch section {
	case "basic", "custom":
		if len(segments) < minInvoiceFieldSegments {
			return nil, &rdeerr.TemplateError{Expression: expression, Reason: fmt.Sprintf("invoice:%s requires a field name", section)}
		}
		field := segments[1]
		sectionMap, ok := sectionValue.(map[string]any)
		if !ok {
			return nil, &rdeerr.TemplateError{Expression: expression, Reason: fmt.Sprintf("invoice.%s is not an object", section)}
		}
		value, present := sectionMap[field]
		if !present {
			return nil, &rdeerr.TemplateError{Expression: expression, Reason: fmt.Sprintf("field '%s.%s' is missing from the source invoice", section, field)}
		}
		return normalizeScalar(value, expression)
	case "sample":
		return r.resolveSampleExpression(segments[1:], expression)
	default:
		return nil, &rdeerr.TemplateError{Expression: expression, Reason: fmt.Sprintf("unsupported invoice section %q", section)}
	}
}

func (r *Resolver) resolveSampleExpression(segments []string, expression string) (*string, error) {
	if len(segments) == 0 {
		return nil, &rdeerr.TemplateError{Expression: expression, Reason: "invoice:sample expression must specify a sample field"}
	}
	sampleValue, ok := r.InvoiceSource["sample"]
	if !ok {
		return nil, &rdeerr.TemplateError{Expression: expression, Reason: "sample information missing from the source invoice"}
	}
	if segments[0] != "names" {
		return nil, &rdeerr.TemplateError{Expression: expression, Reason: fmt.Sprintf("unsupported sample field %q", segments[0])}
	}
	sampleMap, ok := sampleValue.(map[string]any)
	if !ok {
		return nil, &rdeerr.TemplateError{Expression: expression, Reason: "sample information missing from the source invoice"}
	}
	rawNames, ok := sampleMap["names"]
	if !ok {
		return nil, &rdeerr.TemplateError{Expression: expression, Reason: "'sample.names' is unavailable on the source invoice"}
	}
	names, ok := rawNames.([]any)
	if !ok || len(names) == 0 {
		return nil, &rdeerr.TemplateError{Expression: expression, Reason: "'sample.names' is unavailable on the source invoice"}
	}

	filtered := make([]string, 0, len(names))
	for _, n := range names {
		if s, ok := n.(string); ok && s != "" {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) == 0 {
		return nil, &rdeerr.TemplateError{Expression: expression, Reason: "'sample.names' cannot be applied because it only contains empty strings"}
	}
	joined := strings.Join(filtered, "_")
	return &joined, nil
}

func (r *Resolver) resolveMetadataExpression(segments []string, expression string) (*string, error) {
	if len(segments) == 0 {
		return nil, &rdeerr.TemplateError{Expression: expression, Reason: "metadata expression requires a section"}
	}
	if segments[0] != "constant" {
		return nil, &rdeerr.TemplateError{Expression: expression, Reason: fmt.Sprintf("unsupported metadata field %q", segments[0])}
	}
	if r.MetadataSource == nil {
		return nil, &rdeerr.TemplateError{Expression: expression, Reason: "metadata.json is required to resolve this magic variable"}
	}
	if len(segments) < minMetadataSegments {
		return nil, &rdeerr.TemplateError{Expression: expression, Reason: "metadata:constant requires a constant key"}
	}
	key := segments[1]
	constants, _ := r.MetadataSource["constant"].(map[string]any)
	entry, ok := constants[key].(map[string]any)
	if !ok {
		return nil, &rdeerr.TemplateError{Expression: expression, Reason: fmt.Sprintf("metadata.constant['%s'] is missing", key)}
	}
	value, present := entry["value"]
	if !present {
		return nil, &rdeerr.TemplateError{Expression: expression, Reason: fmt.Sprintf("metadata.constant['%s'] is missing", key)}
	}
	return normalizeScalar(value, expression)
}

// normalizeScalar converts a resolved value to its string form, treating
// nil/empty-string as "no substitution" (a nil return, not an error) and
// rejecting non-scalar values outright.
func normalizeScalar(value any, expression string) (*string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		return &v, nil
	case bool:
		s := strconv.FormatBool(v)
		return &s, nil
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		return &s, nil
	case int:
		s := strconv.Itoa(v)
		return &s, nil
	default:
		return nil, &rdeerr.TemplateError{Expression: expression, Reason: fmt.Sprintf("must resolve to a scalar value, got %T", value)}
	}
}
