package store

import "context"

// Documents is a schemaless document store. Documents are addressed by
// slash-separated paths ("users/u1", "users/u1/books/b1") and hold JSON-like
// field maps. Field keys containing dots address nested map fields
// ("dailyTimes.2025-01-05").
//
// Single-document writes are atomic, including every field transform they
// carry. Multi-document read-modify-write goes through RunTransaction.
type Documents interface {
	// Get returns a snapshot; a missing document yields Exists() == false.
	Get(ctx context.Context, path string) (*Document, error)

	// Set writes data. Without Merge the document is replaced; with Merge
	// the fields are merged into the existing document (nested maps deep-merged).
	Set(ctx context.Context, path string, data map[string]any, opts ...SetOption) error

	// Update modifies fields of an existing document and fails with
	// ErrNotFound when it does not exist. Map values replace the field.
	Update(ctx context.Context, path string, data map[string]any) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, path string) error

	// List returns the direct children of a collection ordered by path.
	List(ctx context.Context, collection string) ([]*Document, error)

	// RunTransaction runs fn with serializable semantics, retrying it when a
	// concurrent writer invalidates what it read. fn may run more than once
	// and must not have side effects outside tx.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Close() error
}

// Tx is the view of the store inside RunTransaction.
type Tx interface {
	Get(path string) (*Document, error)
	Set(path string, data map[string]any, opts ...SetOption) error
	Update(path string, data map[string]any) error
	Delete(path string) error
}

// SetOption modifies Set.
type SetOption func(*setOptions)

type setOptions struct {
	merge bool
}

// Merge makes Set merge fields instead of replacing the document.
func Merge() SetOption {
	return func(o *setOptions) { o.merge = true }
}

// ResolveSetOptions reports whether opts request a merge. Backends use it.
func ResolveSetOptions(opts []SetOption) (merge bool) {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o.merge
}

// Field transforms. Values of these types are interpreted by the store
// instead of being written verbatim.

// IncrementOp adds By to an integer field; a missing field counts as 0.
type IncrementOp struct{ By int64 }

// ArrayUnionOp appends each element not already present.
type ArrayUnionOp struct{ Elems []any }

// ArrayRemoveOp removes every occurrence of each element.
type ArrayRemoveOp struct{ Elems []any }

// ServerTimestampOp writes the store's current time.
type ServerTimestampOp struct{}

// DeleteFieldOp removes the field.
type DeleteFieldOp struct{}

// Increment returns a transform adding n to a field.
func Increment(n int64) IncrementOp { return IncrementOp{By: n} }

// ArrayUnion returns a transform adding elements to an array field as a set.
func ArrayUnion(elems ...any) ArrayUnionOp { return ArrayUnionOp{Elems: elems} }

// ArrayRemove returns a transform removing elements from an array field.
func ArrayRemove(elems ...any) ArrayRemoveOp { return ArrayRemoveOp{Elems: elems} }

// ServerTimestamp returns a transform writing the commit time.
func ServerTimestamp() ServerTimestampOp { return ServerTimestampOp{} }

// DeleteField returns a transform removing a field.
func DeleteField() DeleteFieldOp { return DeleteFieldOp{} }
