// Package badger implements store.Store on top of BadgerDB.
//
// Records are JSON documents under prefixed keys. Drugs and remedies carry a
// sequence number so listings come back in insertion order, matching the
// SQL backend.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/cognicore/remedymatch/pkg/remedymatch/internalerr"
	"github.com/cognicore/remedymatch/pkg/remedymatch/store"
)

const (
	defaultSequenceBandwidth = 100
	maxConflictRetries       = 5
)

// Store wraps a BadgerDB instance.
type Store struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

// zapLoggerAdapter adapts zap.Logger to the badger.Logger interface.
type zapLoggerAdapter struct {
	logger *zap.SugaredLogger
}

var _ badger.Logger = (*zapLoggerAdapter)(nil)

func (l *zapLoggerAdapter) Errorf(msg string, items ...any) {
	l.logger.Errorf(msg, items...)
}

func (l *zapLoggerAdapter) Warningf(msg string, items ...any) {
	l.logger.Warnf(msg, items...)
}

func (l *zapLoggerAdapter) Infof(msg string, items ...any) {
	l.logger.Infof(msg, items...)
}

func (l *zapLoggerAdapter) Debugf(msg string, items ...any) {
	l.logger.Debugf(msg, items...)
}

// Open opens a BadgerDB database in dir, creating the directory if needed.
// With inMemory set, dir is ignored and nothing touches disk.
func Open(dir string, inMemory bool, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &zapLoggerAdapter{logger: logger.Named("badger").Sugar()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	seq, err := db.GetSequence([]byte(orderSeqKey), defaultSequenceBandwidth)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, seq: seq, logger: logger}, nil
}

func ensureDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("badger directory: %w", internalerr.ErrInvalidInput)
	}
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// Close releases the order sequence and closes the database.
func (s *Store) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	seqErr := s.seq.Release()
	return errors.Join(seqErr, s.db.Close())
}

// entry wraps a catalog record with its insertion sequence.
type entry[T any] struct {
	Seq    uint64 `json:"seq"`
	Record T      `json:"record"`
}

func (s *Store) checkOpen(ctx context.Context) error {
	if s.db.IsClosed() {
		return internalerr.ErrStoreClosed
	}
	return ctx.Err()
}

func (s *Store) nextSeq() (uint64, error) {
	n, err := s.seq.Next()
	if err != nil {
		return 0, err
	}
	// Sequences can hand out 0 first; keep 0 for "unset".
	if n == 0 {
		return s.seq.Next()
	}
	return n, nil
}

// upsert writes value under key, keeping the sequence of an existing record.
func upsert[T any](s *Store, key []byte, value T) error {
	return s.update(func(tx *badger.Txn) error {
		e := entry[T]{Record: value}
		item, err := tx.Get(key)
		switch {
		case err == nil:
			var old entry[T]
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &old) }); err != nil {
				return err
			}
			e.Seq = old.Seq
		case errors.Is(err, badger.ErrKeyNotFound):
			if e.Seq, err = s.nextSeq(); err != nil {
				return err
			}
		default:
			return err
		}

		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return tx.Set(key, data)
	})
}

// update runs fn in a read-write transaction, retrying when a concurrent
// writer touched the same keys.
func (s *Store) update(fn func(tx *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.logger.Debug("transaction conflict, retrying", zap.Int("attempt", attempt+1))
		time.Sleep(time.Duration(attempt+1) * time.Millisecond)
	}
	return err
}

// listPrefix decodes every entry under prefix, ordered by insertion sequence.
func listPrefix[T any](s *Store, prefix []byte) ([]T, error) {
	var entries []entry[T]
	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var e entry[T]
			if err := iter.Item().Value(func(val []byte) error { return json.Unmarshal(val, &e) }); err != nil {
				return fmt.Errorf("decode %s: %w", iter.Item().Key(), err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })
	out := make([]T, len(entries))
	for i, e := range entries {
		out[i] = e.Record
	}
	return out, nil
}

// UpsertDrug inserts or replaces a drug, keyed by ID.
func (s *Store) UpsertDrug(ctx context.Context, d store.Drug) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	if d.ID == "" {
		return fmt.Errorf("drug without id: %w", internalerr.ErrInvalidInput)
	}
	d.Ingredients = store.NormalizeList(d.Ingredients)
	d.Benefits = store.NormalizeList(d.Benefits)
	return upsert(s, makeDrugKey(d.ID), d)
}

// GetDrug returns a drug by ID.
func (s *Store) GetDrug(ctx context.Context, id string) (store.Drug, bool, error) {
	if err := s.checkOpen(ctx); err != nil {
		return store.Drug{}, false, err
	}

	var (
		e     entry[store.Drug]
		found bool
	)
	err := s.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDrugKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &e) })
	})
	if err != nil || !found {
		return store.Drug{}, false, err
	}
	return e.Record, true, nil
}

// ListDrugs returns drugs in insertion order.
func (s *Store) ListDrugs(ctx context.Context) ([]store.Drug, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	return listPrefix[store.Drug](s, []byte(drugPrefix))
}

// UpsertRemedy inserts or replaces a remedy, keyed by ID.
func (s *Store) UpsertRemedy(ctx context.Context, r store.Remedy) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	if r.ID == "" {
		return fmt.Errorf("remedy without id: %w", internalerr.ErrInvalidInput)
	}
	r.Ingredients = store.NormalizeList(r.Ingredients)
	r.Benefits = store.NormalizeList(r.Benefits)
	return upsert(s, makeRemedyKey(r.ID), r)
}

// ListRemedies returns remedies in insertion order.
func (s *Store) ListRemedies(ctx context.Context) ([]store.Remedy, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	return listPrefix[store.Remedy](s, []byte(remedyPrefix))
}

// InsertMappings writes the batch in one transaction, skipping pairs that
// already exist. A conflicting concurrent writer causes the whole batch to
// be re-evaluated, so the returned count only covers rows this call created.
func (s *Store) InsertMappings(ctx context.Context, mappings []store.Mapping) (int, error) {
	if err := s.checkOpen(ctx); err != nil {
		return 0, err
	}
	for _, m := range mappings {
		if err := store.ValidateMapping(m); err != nil {
			return 0, err
		}
	}
	if len(mappings) == 0 {
		return 0, nil
	}

	var inserted int
	err := s.update(func(tx *badger.Txn) error {
		inserted = 0
		for _, m := range mappings {
			key := makeMappingKey(m.DrugID, m.RemedyID)
			_, err := tx.Get(key)
			if err == nil {
				continue
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			if m.ID == "" {
				m.ID = m.Key()
			}
			if m.CreatedAt.IsZero() {
				m.CreatedAt = time.Now()
			}
			m.CreatedAt = m.CreatedAt.UTC()
			m.MatchingNutrients = store.NormalizeList(m.MatchingNutrients)

			data, err := json.Marshal(m)
			if err != nil {
				return err
			}
			if err := tx.Set(key, data); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListMappings returns the mappings stored for drugID, best score first.
func (s *Store) ListMappings(ctx context.Context, drugID string) ([]store.Mapping, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}

	var out []store.Mapping
	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeMappingDrugPrefix(drugID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var m store.Mapping
			if err := iter.Item().Value(func(val []byte) error { return json.Unmarshal(val, &m) }); err != nil {
				return err
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	store.SortMappings(out)
	return out, nil
}
