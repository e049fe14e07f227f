// =============================================================================
// rdeconv - Invoice Generator Module
// =============================================================================
//
// GenerateFromSchema builds an invoice.json skeleton by walking the
// invoice schema tree and filling every field with, in priority order:
// the field's own default, the first example value (when requested), or
// a type-appropriate zero value. requiredOnly restricts generation to
// fields reachable through a "required" chain (basic/datasetId always
// included).
//
// =============================================================================

package invoice

import "github.com/ginjaninja78/rdeconv/internal/rdeschema"

// GenerateFromSchema builds a new invoice document from schema.
func GenerateFromSchema(schema *rdeschema.Schema, fillDefaults, requiredOnly bool) Document {
	if schema == nil || schema.Root == nil {
		return Document{}
	}
	built := buildNode(schema.Root, fillDefaults, requiredOnly)
	if obj, ok := built.(map[string]any); ok {
		return Document(obj)
	}
	return Document{}
}

// buildNode materializes one schema node. Within an object, a child is
// included when requiredOnly is false, when its own container's required
// list names it, or when its name is literally "basic"/"datasetId" (those
// two top-level sections are always present) - never because some
// ancestor container happened to be force-included itself.
func buildNode(node *rdeschema.Field, fillDefaults, requiredOnly bool) any {
	if node == nil {
		return nil
	}
	switch node.Kind {
	case rdeschema.KindObject:
		required := make(map[string]bool, len(node.Required))
		for _, r := range node.Required {
			required[r] = true
		}
		out := map[string]any{}
		for name, child := range node.Properties {
			include := !requiredOnly || required[name] || name == "basic" || name == "datasetId"
			if !include {
				continue
			}
			out[name] = buildNode(child, fillDefaults, requiredOnly)
		}
		return out
	case rdeschema.KindArray:
		return []any{}
	case rdeschema.KindScalar:
		return scalarDefault(node, fillDefaults)
	default:
		return nil
	}
}

func scalarDefault(node *rdeschema.Field, fillDefaults bool) any {
	if node.Default != nil {
		return node.Default
	}
	if fillDefaults && len(node.Examples) > 0 {
		return node.Examples[0]
	}
	switch node.Type {
	case "string":
		return ""
	case "number":
		return 0.0
	case "integer":
		return 0
	case "boolean":
		return false
	default:
		return nil
	}
}
