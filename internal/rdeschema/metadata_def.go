// =============================================================================
// rdeconv - Metadata Definition Loader
// =============================================================================

package rdeschema

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ginjaninja78/rdeconv/internal/rdeerr"
)

type rawMetadataDefItem struct {
	Name               string `json:"name"`
	Schema             struct {
		Type string `json:"type"`
		Unit string `json:"unit"`
	} `json:"schema"`
	Description        string `json:"description"`
	Uri                string `json:"uri"`
	Mode               string `json:"mode"`
	Variable           bool   `json:"variable"`
	OriginalBasicField string `json:"originalBasicField"`
	Feature            bool   `json:"_feature"`
}

// LoadMetadataDefinition parses tasksupport/metadata-def.json: a flat
// object keyed by metadata key name.
func LoadMetadataDefinition(path string) (*MetadataDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &rdeerr.ConfigError{
			Message:   fmt.Sprintf("failed to read metadata definition: %v", err),
			FilePath:  path,
			ErrorType: "file_not_found",
		}
	}

	var raw map[string]rawMetadataDefItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &rdeerr.ConfigError{
			Message:   fmt.Sprintf("invalid JSON in metadata definition: %v", err),
			FilePath:  path,
			ErrorType: "parse_error",
		}
	}

	def := &MetadataDefinition{Items: make(map[string]MetadataDefItem, len(raw))}
	for key, item := range raw {
		def.Items[key] = MetadataDefItem{
			Name:               item.Name,
			Schema:             MetadataDefSchema{Type: item.Schema.Type, Unit: item.Schema.Unit},
			Description:        item.Description,
			URI:                item.Uri,
			Mode:               item.Mode,
			Variable:           item.Variable,
			OriginalBasicField: item.OriginalBasicField,
			Feature:            item.Feature,
		}
	}
	return def, nil
}
