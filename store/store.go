// Package store implements the embedded, ordered key-value store C6-C8
// share: one on-disk github.com/syndtr/goleveldb handle, partitioned into
// logical "trees" (spec.md §5/§6: SPECSTREE, METATREE, ADDRTREE,
// VERIFIERS, GENERALVERIFIER, SETTREE, HISTORY, TRANSACTION) by a short
// key prefix per tree, with leveldb.Batch giving the atomic
// multi-tree-write guarantee commit operations need. Grounded on the
// teacher's tosdb/leveldb package (syndtr/goleveldb wrapped behind a
// small Go-idiomatic API) and kvstore's settings-cell pattern for the
// schema-version check.
package store

import (
	"encoding/binary"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/internal/vaultlog"
)

// Tree is a logical namespace within the single LevelDB handle.
type Tree byte

const (
	TreeSpecs           Tree = 's'
	TreeMeta            Tree = 'm'
	TreeAddr            Tree = 'a'
	TreeVerifiers       Tree = 'v'
	TreeGeneralVerifier Tree = 'g'
	TreeSettings        Tree = 't'
	TreeHistory         Tree = 'h'
	TreeTransaction     Tree = 'x'
)

// SchemaVersion is the on-disk format this package writes and expects.
// Bumping it without a migration path is a breaking change callers must
// detect, hence the explicit check in Open.
const SchemaVersion = 1

var schemaVersionKey = []byte{byte(TreeSettings), 0x00}

// Store wraps one LevelDB handle, exposing only prefixed access so
// callers can never cross-contaminate trees by forgetting a prefix.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if absent) the LevelDB handle at path and checks
// the schema version cell, returning CodeDbSchemaMismatch if an existing
// store was written by an incompatible version.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeInternal, "open store at %q: %v", path, err)
	}
	s := &Store{db: db}
	if err := s.checkOrInitSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) checkOrInitSchema() error {
	v, err := s.db.Get(schemaVersionKey, nil)
	if err == leveldb.ErrNotFound {
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], SchemaVersion)
		return s.db.Put(schemaVersionKey, buf[:], nil)
	}
	if err != nil {
		return errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeInternal, "read schema version: %v", err)
	}
	if len(v) != 4 || binary.BigEndian.Uint32(v) != SchemaVersion {
		return errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeDbSchemaMismatch, "store schema version mismatch")
	}
	return nil
}

// Close releases the underlying LevelDB handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func prefixed(tree Tree, key []byte) []byte {
	out := make([]byte, 0, len(key)+1)
	out = append(out, byte(tree))
	return append(out, key...)
}

// Get reads one value from tree. Returns CodeNotFound wrapped as a
// *errorkinds.Error when absent so callers can branch on Kind.
func (s *Store) Get(tree Tree, key []byte) ([]byte, error) {
	v, err := s.db.Get(prefixed(tree, key), nil)
	if err == leveldb.ErrNotFound {
		return nil, errorkinds.New(errorkinds.KindNotFound, errorkinds.CodeKeyDecoding, "key not found in tree %q", string(tree))
	}
	if err != nil {
		return nil, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeInternal, "get: %v", err)
	}
	return v, nil
}

// Has reports whether key exists in tree.
func (s *Store) Has(tree Tree, key []byte) (bool, error) {
	ok, err := s.db.Has(prefixed(tree, key), nil)
	if err != nil {
		return false, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeInternal, "has: %v", err)
	}
	return ok, nil
}

// Put writes a single key outside of a batch — used for writes that
// don't need cross-tree atomicity.
func (s *Store) Put(tree Tree, key, value []byte) error {
	if err := s.db.Put(prefixed(tree, key), value, nil); err != nil {
		return errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeInternal, "put: %v", err)
	}
	return nil
}

// Delete removes key from tree, outside of a batch.
func (s *Store) Delete(tree Tree, key []byte) error {
	if err := s.db.Delete(prefixed(tree, key), nil); err != nil {
		return errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeInternal, "delete: %v", err)
	}
	return nil
}

// Iterate calls fn for every key in tree in key order, with the tree
// prefix already stripped from the key passed to fn. Iteration stops
// (returning fn's error) if fn returns a non-nil error.
func (s *Store) Iterate(tree Tree, fn func(key, value []byte) error) error {
	it := s.db.NewIterator(util.BytesPrefix([]byte{byte(tree)}), nil)
	defer it.Release()
	for it.Next() {
		k := it.Key()[1:]
		if err := fn(append([]byte(nil), k...), append([]byte(nil), it.Value()...)); err != nil {
			return err
		}
	}
	if err := it.Error(); err != nil {
		return errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeInternal, "iterate tree %q: %v", string(tree), err)
	}
	return nil
}

// Batch accumulates writes across one or more trees for an atomic commit.
type Batch struct {
	b *leveldb.Batch
}

// NewBatch starts an empty cross-tree batch.
func (s *Store) NewBatch() *Batch {
	return &Batch{b: new(leveldb.Batch)}
}

func (b *Batch) Put(tree Tree, key, value []byte) {
	b.b.Put(prefixed(tree, key), value)
}

func (b *Batch) Delete(tree Tree, key []byte) {
	b.b.Delete(prefixed(tree, key))
}

// Write commits the batch atomically: either every operation in it lands
// or none do, the guarantee C9's commit stage relies on when it writes a
// new address, a history entry, and a removed transaction stub together.
func (s *Store) Write(b *Batch) error {
	if err := s.db.Write(b.b, nil); err != nil {
		vaultlog.Error("store batch write failed", "err", err)
		return errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeInternal, "batch write: %v", err)
	}
	return nil
}
