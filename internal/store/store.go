// Package store is the document store used by Booklog. The default backend
// keeps JSON documents in Badger; see the mongo subpackage for MongoDB.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dgraph-io/badger/v4"
)

const (
	docPrefix = "doc:"

	// maxTxRetries bounds how often a transaction is re-run after losing a race.
	maxTxRetries = 25
)

// Store is a Badger-backed Documents implementation.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ Documents = (*Store)(nil)

// New opens (or creates) the Badger database at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Badger's own logging is too chatty
	opts.SyncWrites = true       // survive crashes without corruption
	opts.CompactL0OnClose = true // faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Info("Badger document store opened", "path", path)

	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.logger.Info("Closing document store")
	return s.db.Close()
}

// Get implements Documents.
func (s *Store) Get(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	var doc *Document
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		doc, err = readDoc(txn, path)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return doc, nil
}

// Set implements Documents.
func (s *Store) Set(ctx context.Context, path string, data map[string]any, opts ...SetOption) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx Tx) error {
		return tx.Set(path, data, opts...)
	})
}

// Update implements Documents.
func (s *Store) Update(ctx context.Context, path string, data map[string]any) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx Tx) error {
		return tx.Update(path, data)
	})
}

// Delete implements Documents.
func (s *Store) Delete(ctx context.Context, path string) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx Tx) error {
		return tx.Delete(path)
	})
}

// List implements Documents.
func (s *Store) List(ctx context.Context, collection string) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}

	prefix := []byte(docPrefix + collection + "/")
	var docs []*Document

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			rest := strings.TrimPrefix(key, string(prefix))
			if strings.Contains(rest, "/") {
				continue // nested subcollection document
			}

			var data map[string]any
			if err := it.Item().Value(func(val []byte) error {
				var err error
				data, err = decodeFields(val)
				return err
			}); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			docs = append(docs, NewDocument(strings.TrimPrefix(key, docPrefix), data))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return docs, nil
}

// RunTransaction implements Documents. Badger transactions are serializable
// snapshot transactions; a commit that lost a race fails with ErrConflict
// and is retried with exponential backoff.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	attempt := 0
	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempt++

		err := s.db.Update(func(txn *badger.Txn) error {
			return fn(ctx, &badgerTx{txn: txn, now: s.now()})
		})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, badger.ErrConflict):
			s.logger.Debug("transaction conflict, retrying", "attempt", attempt)
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(newTxBackoff(), maxTxRetries), ctx))
	if errors.Is(err, badger.ErrConflict) {
		s.logger.Warn("transaction abandoned after repeated conflicts", "attempts", attempt)
		return ErrConflict.WithCause(err)
	}
	return err
}

func newTxBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Millisecond
	b.MaxInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second
	return b
}

// badgerTx implements Tx on a read-write Badger transaction. Reads observe
// the transaction's own pending writes.
type badgerTx struct {
	txn *badger.Txn
	now time.Time
}

func (t *badgerTx) Get(path string) (*Document, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	return readDoc(t.txn, path)
}

func (t *badgerTx) Set(path string, data map[string]any, opts ...SetOption) error {
	mode := modeReplace
	if ResolveSetOptions(opts) {
		mode = modeMerge
	}
	return t.write(path, data, mode, false)
}

func (t *badgerTx) Update(path string, data map[string]any) error {
	return t.write(path, data, modeUpdate, true)
}

func (t *badgerTx) Delete(path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	return t.txn.Delete([]byte(docPrefix + path))
}

func (t *badgerTx) write(path string, data map[string]any, mode writeMode, mustExist bool) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	current, err := readDoc(t.txn, path)
	if err != nil {
		return err
	}
	if mustExist && !current.Exists() {
		return ErrNotFound.WithCause(fmt.Errorf("%s", path))
	}

	next, err := applyWrite(current.data, data, mode, t.now)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return t.txn.Set([]byte(docPrefix+path), raw)
}

func readDoc(txn *badger.Txn, path string) (*Document, error) {
	item, err := txn.Get([]byte(docPrefix + path))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return NewDocument(path, nil), nil
	}
	if err != nil {
		return nil, err
	}

	var data map[string]any
	err = item.Value(func(val []byte) error {
		data, err = decodeFields(val)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return NewDocument(path, data), nil
}

// decodeFields keeps numbers as json.Number so integer counters stay exact.
func decodeFields(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}
