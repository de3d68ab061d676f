// Package document implements the in-process side of the filter model:
// a semi-structured record representation plus filter evaluation,
// kind-aware sorting and pagination over it.
//
// The in-memory backend (quarry/mem) and the persistent document
// backend (quarry/doc) both store records as Docs and share this
// evaluator, which keeps their query semantics identical by
// construction.
package document

import (
	"bytes"
	"encoding/json"
)

// Doc is one record in its document representation: field names mapped
// to JSON-shaped values. Numbers are kept as json.Number so integer
// fields survive the round trip without losing precision.
type Doc map[string]any

// Encode serializes an entity into its document representation.
func Encode(entity any) (Doc, error) {
	raw, err := json.Marshal(entity)
	if err != nil {
		return nil, err
	}
	return FromJSON(raw)
}

// FromJSON parses a JSON object into a document.
func FromJSON(raw []byte) (Doc, error) {
	var doc Doc
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ToJSON serializes a document to JSON.
func ToJSON(doc Doc) ([]byte, error) {
	return json.Marshal(doc)
}

// Decode deserializes a document back into the entity type.
func Decode[T any](doc Doc) (*T, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	entity := new(T)
	if err := json.Unmarshal(raw, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// Clone returns a deep copy of the document.
func Clone(doc Doc) Doc {
	out := make(Doc, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		// Scalars (string, json.Number, bool, nil) are immutable.
		return val
	}
}
