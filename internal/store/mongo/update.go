package mongostore

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/booklog/booklog-server/internal/store"
)

// buildUpdate translates a field map into a MongoDB update document.
// With flatten set, nested maps become dotted $set paths so that sibling
// fields survive (merge semantics); otherwise a map value replaces the field.
func buildUpdate(data map[string]any, flatten bool) (bson.M, error) {
	ops := map[string]bson.M{}
	add := func(op, field string, v any) {
		if ops[op] == nil {
			ops[op] = bson.M{}
		}
		ops[op][field] = v
	}

	var walk func(prefix string, m map[string]any) error
	walk = func(prefix string, m map[string]any) error {
		for key, val := range m {
			if key == "" {
				return store.ErrInvalidInput.WithCause(fmt.Errorf("empty field name"))
			}
			field := prefix + key

			switch v := val.(type) {
			case store.IncrementOp:
				add("$inc", field, v.By)
			case store.ArrayUnionOp:
				add("$addToSet", field, bson.M{"$each": v.Elems})
			case store.ArrayRemoveOp:
				add("$pull", field, bson.M{"$in": v.Elems})
			case store.ServerTimestampOp:
				add("$currentDate", field, true)
			case store.DeleteFieldOp:
				add("$unset", field, "")
			case map[string]any:
				if flatten && len(v) > 0 {
					if err := walk(field+".", v); err != nil {
						return err
					}
					continue
				}
				if hasTransform(v) {
					return store.ErrInvalidInput.WithCause(fmt.Errorf("field %q: transforms inside a replaced map", field))
				}
				add("$set", field, v)
			default:
				add("$set", field, val)
			}
		}
		return nil
	}

	if err := walk("", data); err != nil {
		return nil, err
	}

	update := bson.M{}
	for op, fields := range ops {
		update[op] = fields
	}
	return update, nil
}

func hasTransform(m map[string]any) bool {
	for _, v := range m {
		switch t := v.(type) {
		case store.IncrementOp, store.ArrayUnionOp, store.ArrayRemoveOp, store.ServerTimestampOp, store.DeleteFieldOp:
			return true
		case map[string]any:
			if hasTransform(t) {
				return true
			}
		}
	}
	return false
}
