// Package mongostore implements store.Documents on MongoDB.
//
// Each document path maps to a collection named after its collection
// segments ("users/u1/books/b1" lives in "users_books") and is keyed by the
// full path. Writes run inside multi-document transactions, so the server
// must be a replica set (a single-node replica set is enough).
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/booklog/booklog-server/internal/store"
)

const connectTimeout = 10 * time.Second

// Store is a MongoDB-backed store.Documents.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

var _ store.Documents = (*Store)(nil)

// New connects to uri and verifies the connection with a ping.
func New(ctx context.Context, uri, database string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("error pinging MongoDB: %w", err)
	}

	logger.Info("MongoDB document store connected", "database", database)
	return &Store{client: client, db: client.Database(database), logger: logger}, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	s.logger.Info("Closing document store")
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Drop removes the whole database. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

// Get implements store.Documents.
func (s *Store) Get(ctx context.Context, path string) (*store.Document, error) {
	if err := store.ValidatePath(path); err != nil {
		return nil, err
	}
	doc, err := s.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return doc, nil
}

func (s *Store) get(ctx context.Context, path string) (*store.Document, error) {
	var raw bson.M
	err := s.coll(path).FindOne(ctx, bson.M{"_id": path}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.NewDocument(path, nil), nil
	}
	if err != nil {
		return nil, err
	}
	return store.NewDocument(path, normalizeDoc(raw)), nil
}

// Set implements store.Documents.
func (s *Store) Set(ctx context.Context, path string, data map[string]any, opts ...store.SetOption) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx store.Tx) error {
		return tx.Set(path, data, opts...)
	})
}

// Update implements store.Documents.
func (s *Store) Update(ctx context.Context, path string, data map[string]any) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx store.Tx) error {
		return tx.Update(path, data)
	})
}

// Delete implements store.Documents.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := store.ValidatePath(path); err != nil {
		return err
	}
	if _, err := s.coll(path).DeleteOne(ctx, bson.M{"_id": path}); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// List implements store.Documents.
func (s *Store) List(ctx context.Context, collection string) ([]*store.Document, error) {
	if err := store.ValidateCollection(collection); err != nil {
		return nil, err
	}

	filter := bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(collection+"/") + "[^/]+$"}}
	cur, err := s.coll(collection).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var docs []*store.Document
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode in %s: %w", collection, err)
		}
		path, _ := raw["_id"].(string)
		docs = append(docs, store.NewDocument(path, normalizeDoc(raw)))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return docs, nil
}

// RunTransaction implements store.Documents. The driver retries the callback
// on transient transaction errors such as write conflicts.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc, &mongoTx{s: s, ctx: sc})
	})
	return err
}

func (s *Store) coll(path string) *mongo.Collection {
	return s.db.Collection(collectionName(path))
}

// collectionName joins the collection segments of a document or collection path.
func collectionName(path string) string {
	segs := strings.Split(path, "/")
	names := make([]string, 0, (len(segs)+1)/2)
	for i := 0; i < len(segs); i += 2 {
		names = append(names, segs[i])
	}
	return strings.Join(names, "_")
}

type mongoTx struct {
	s   *Store
	ctx mongo.SessionContext
}

func (t *mongoTx) Get(path string) (*store.Document, error) {
	if err := store.ValidatePath(path); err != nil {
		return nil, err
	}
	return t.s.get(t.ctx, path)
}

func (t *mongoTx) Set(path string, data map[string]any, opts ...store.SetOption) error {
	if err := store.ValidatePath(path); err != nil {
		return err
	}
	coll := t.s.coll(path)
	filter := bson.M{"_id": path}

	if !store.ResolveSetOptions(opts) {
		doc, err := store.Materialize(data, time.Now())
		if err != nil {
			return err
		}
		doc["_id"] = path
		_, err = coll.ReplaceOne(t.ctx, filter, doc, options.Replace().SetUpsert(true))
		return wrapWrite(path, err)
	}

	if len(data) == 0 {
		return t.ensureExists(path)
	}
	update, err := buildUpdate(data, true)
	if err != nil {
		return err
	}
	_, err = coll.UpdateOne(t.ctx, filter, update, options.Update().SetUpsert(true))
	return wrapWrite(path, err)
}

func (t *mongoTx) Update(path string, data map[string]any) error {
	if err := store.ValidatePath(path); err != nil {
		return err
	}

	if len(data) == 0 {
		doc, err := t.s.get(t.ctx, path)
		if err != nil {
			return err
		}
		if !doc.Exists() {
			return store.ErrNotFound.WithCause(errors.New(path))
		}
		return nil
	}

	update, err := buildUpdate(data, false)
	if err != nil {
		return err
	}
	res, err := t.s.coll(path).UpdateOne(t.ctx, bson.M{"_id": path}, update)
	if err != nil {
		return wrapWrite(path, err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound.WithCause(errors.New(path))
	}
	return nil
}

func (t *mongoTx) Delete(path string) error {
	if err := store.ValidatePath(path); err != nil {
		return err
	}
	_, err := t.s.coll(path).DeleteOne(t.ctx, bson.M{"_id": path})
	return wrapWrite(path, err)
}

func (t *mongoTx) ensureExists(path string) error {
	doc, err := t.s.get(t.ctx, path)
	if err != nil || doc.Exists() {
		return err
	}
	_, err = t.s.coll(path).InsertOne(t.ctx, bson.M{"_id": path})
	return wrapWrite(path, err)
}

func wrapWrite(path string, err error) error {
	if err == nil {
		return nil
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 14 { // TypeMismatch, e.g. $inc on a string
				return store.ErrInvalidInput.WithCause(err)
			}
		}
	}
	return fmt.Errorf("write %s: %w", path, err)
}

// normalizeDoc converts BSON-decoded values to the plain Go types the
// Badger backend produces, and drops the _id key.
func normalizeDoc(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		out[k] = normalize(v)
	}
	return out
}

func normalize(v any) any {
	switch t := v.(type) {
	case primitive.M:
		return normalizeMap(t)
	case map[string]any:
		return normalizeMap(t)
	case primitive.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case primitive.A:
		return normalizeSlice(t)
	case []any:
		return normalizeSlice(t)
	case int32:
		return int64(t)
	case primitive.DateTime:
		return t.Time().UTC()
	default:
		return v
	}
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

func normalizeSlice(a []any) []any {
	out := make([]any, len(a))
	for i, v := range a {
		out[i] = normalize(v)
	}
	return out
}
