package mongostore

import (
	"time"

	"github.com/Togather-Foundation/social-events/internal/domain/document"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// normalizeValue turns decoded BSON into plain JSON-friendly Go values:
// documents become maps, arrays become slices, datetimes become time.Time
// and ObjectIDs become their hex string.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case bson.D:
		out := make(map[string]any, len(val))
		for _, elem := range val {
			out[elem.Key] = normalizeValue(elem.Value)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = normalizeValue(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = normalizeValue(elem)
		}
		return out
	case bson.A:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalizeValue(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalizeValue(elem)
		}
		return out
	case bson.DateTime:
		return val.Time().UTC()
	case bson.ObjectID:
		return val.Hex()
	case bson.Decimal128:
		return val.String()
	case bson.Null:
		return nil
	default:
		return v
	}
}

// normalizeDocument converts a decoded document into Fields, leaving out
// the given keys.
func normalizeDocument(doc bson.M, skip ...string) document.Fields {
	out := make(document.Fields, len(doc))
	for k, v := range doc {
		out[k] = normalizeValue(v)
	}
	for _, k := range skip {
		delete(out, k)
	}
	return out
}

// stringField reads a top-level string value, returning "" for any other type.
func stringField(doc bson.M, key string) string {
	s, _ := doc[key].(string)
	return s
}

func timeField(doc bson.M, key string) time.Time {
	switch val := doc[key].(type) {
	case bson.DateTime:
		return val.Time().UTC()
	case time.Time:
		return val.UTC()
	default:
		return time.Time{}
	}
}

// idString renders an _id of either representation.
func idString(v any) string {
	switch id := v.(type) {
	case bson.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return ""
	}
}
