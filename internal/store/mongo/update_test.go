package mongostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/booklog/booklog-server/internal/store"
)

func TestBuildUpdate_Transforms(t *testing.T) {
	update, err := buildUpdate(map[string]any{
		"totalSessions": store.Increment(1),
		"savedBooks":    store.ArrayUnion("b1"),
		"oldBooks":      store.ArrayRemove("b0"),
		"timestamp":     store.ServerTimestamp(),
		"motivation":    store.DeleteField(),
		"nickname":      "efe",
	}, true)
	require.NoError(t, err)

	assert.Equal(t, bson.M{
		"$inc":         bson.M{"totalSessions": int64(1)},
		"$addToSet":    bson.M{"savedBooks": bson.M{"$each": []any{"b1"}}},
		"$pull":        bson.M{"oldBooks": bson.M{"$in": []any{"b0"}}},
		"$currentDate": bson.M{"timestamp": true},
		"$unset":       bson.M{"motivation": ""},
		"$set":         bson.M{"nickname": "efe"},
	}, update)
}

func TestBuildUpdate_FlattenNestedMaps(t *testing.T) {
	update, err := buildUpdate(map[string]any{
		"dailyTimes": map[string]any{"2025-01-02": 5},
		"stats":      map[string]any{"sessions": store.Increment(2)},
	}, true)
	require.NoError(t, err)

	assert.Equal(t, bson.M{
		"$set": bson.M{"dailyTimes.2025-01-02": 5},
		"$inc": bson.M{"stats.sessions": int64(2)},
	}, update)
}

func TestBuildUpdate_ReplaceMapWhenNotFlattening(t *testing.T) {
	update, err := buildUpdate(map[string]any{
		"dailyTimes": map[string]any{"2025-01-02": 5},
	}, false)
	require.NoError(t, err)

	assert.Equal(t, bson.M{"$set": bson.M{"dailyTimes": map[string]any{"2025-01-02": 5}}}, update)
}

func TestBuildUpdate_RejectsNestedTransformInReplacedMap(t *testing.T) {
	_, err := buildUpdate(map[string]any{
		"stats": map[string]any{"sessions": store.Increment(1)},
	}, false)
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestBuildUpdate_EmptyField(t *testing.T) {
	_, err := buildUpdate(map[string]any{"": 1}, true)
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "users", collectionName("users/u1"))
	assert.Equal(t, "users_books", collectionName("users/u1/books/b1"))
	assert.Equal(t, "users_books", collectionName("users/u1/books"))
}

func TestNormalize(t *testing.T) {
	in := map[string]any{
		"_id":   "users/u1",
		"count": int32(3),
		"tags":  bson.A{"a", int32(1)},
		"daily": bson.M{"2025-01-01": int32(10)},
		"doc":   bson.D{{Key: "k", Value: "v"}},
	}

	out := normalizeDoc(in)

	assert.Equal(t, map[string]any{
		"count": int64(3),
		"tags":  []any{"a", int64(1)},
		"daily": map[string]any{"2025-01-01": int64(10)},
		"doc":   map[string]any{"k": "v"},
	}, out)
}
