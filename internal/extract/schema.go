package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// resultSchema guards the shape of the serialized ExtractionResult before it
// is persisted or uploaded. Downstream reporting reads these blobs straight
// out of the database, so a malformed record is cheaper to reject here than
// to chase later.
const resultSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "data": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    },
    "items": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "additionalProperties": {"type": "string"}
      }
    },
    "validation": {
      "type": "object",
      "properties": {
        "has_critical_fields": {"type": "boolean"},
        "has_complete_items": {"type": "boolean"},
        "confidence_score": {"type": "number", "minimum": 0.0, "maximum": 1.0},
        "issues": {"type": ["array", "null"], "items": {"type": "string"}}
      },
      "required": ["has_critical_fields", "has_complete_items", "confidence_score"]
    },
    "has_prohibited_items": {"type": "boolean"}
  },
  "required": ["data", "validation", "has_prohibited_items"]
}`

var compiledResultSchema = jsonschema.MustCompileString("extraction_result.json", resultSchema)

// MarshalValidated serializes the result and validates it against the
// persisted-record schema.
func (r *ExtractionResult) MarshalValidated() ([]byte, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode result for validation: %w", err)
	}
	if err := compiledResultSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("result failed schema validation: %w", err)
	}
	return raw, nil
}

// MarshalIndentValidated is MarshalValidated with pretty-printing, for the
// JSON artifacts written back to object storage.
func (r *ExtractionResult) MarshalIndentValidated() ([]byte, error) {
	if _, err := r.MarshalValidated(); err != nil {
		return nil, err
	}
	return json.MarshalIndent(r, "", "  ")
}
