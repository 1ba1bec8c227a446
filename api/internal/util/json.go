package util

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// LoadSchema reads <PROMPT_DIR>/<name>.schema.json when present, otherwise
// parses the embedded copy.
func LoadSchema(name, embedded string) (map[string]any, error) {
	if dir := os.Getenv("PROMPT_DIR"); dir != "" {
		p := filepath.Join(dir, name+".schema.json")
		if b, err := os.ReadFile(p); err == nil && len(b) > 0 {
			var m map[string]any
			if err := json.Unmarshal(b, &m); err != nil {
				return nil, errors.Wrapf(err, "bad %s schema (file)", name)
			}
			return m, nil
		}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(embedded), &m); err != nil {
		return nil, errors.Wrapf(err, "bad %s schema (embedded)", name)
	}
	return m, nil
}

// FixJSONSchemaStrict brings a schema to the strict form OpenAI expects:
// every object lists all its properties as required and forbids extras.
func FixJSONSchemaStrict(node any) {
	switch n := node.(type) {
	case map[string]any:
		if props, ok := n["properties"].(map[string]any); ok {
			if _, hasType := n["type"]; !hasType {
				n["type"] = "object"
			}
			req := make([]any, 0, len(props))
			for k := range props {
				req = append(req, k)
			}
			n["required"] = req
			n["additionalProperties"] = false
			for _, v := range props {
				FixJSONSchemaStrict(v)
			}
		}
		if items, ok := n["items"]; ok {
			switch it := items.(type) {
			case map[string]any:
				FixJSONSchemaStrict(it)
			case []any:
				for _, el := range it {
					FixJSONSchemaStrict(el)
				}
			}
		}
		for _, k := range []string{"oneOf", "anyOf", "allOf"} {
			if arr, ok := n[k].([]any); ok {
				for _, el := range arr {
					FixJSONSchemaStrict(el)
				}
			}
		}
	case []any:
		for _, v := range n {
			FixJSONSchemaStrict(v)
		}
	}
}
