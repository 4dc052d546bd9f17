// Package document holds the free-form field bag that events and joined
// records carry. Clients own the shape of these documents; the server only
// asserts a handful of reserved keys.
package document

import (
	"encoding/json"
	"fmt"
	"maps"
)

const (
	KeyID        = "_id"
	KeyCreatedBy = "createdBy"
	KeyJoinedAt  = "joinedAt"
	KeyTitle     = "title"
	KeyEventType = "eventType"
	KeyDate      = "date"
)

// Fields is a JSON object as submitted by a client.
type Fields map[string]any

// Decode parses a JSON object. Arrays, scalars and null are rejected.
func Decode(data []byte) (Fields, error) {
	var fields Fields
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("decode document: body must be a JSON object")
	}
	return fields, nil
}

func (f Fields) String(key string) string {
	value, _ := f[key].(string)
	return value
}

func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	return maps.Clone(f)
}

// Without returns a copy of f with keys removed.
func (f Fields) Without(keys ...string) Fields {
	out := f.Clone()
	for _, key := range keys {
		delete(out, key)
	}
	return out
}

// Merge writes f plus the given reserved values into one flat object, the
// wire shape of every stored document.
func (f Fields) Merge(reserved map[string]any) map[string]any {
	out := make(map[string]any, len(f)+len(reserved))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range reserved {
		out[k] = v
	}
	return out
}
