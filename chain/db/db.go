package db

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrNotFound is returned by Get for absent keys.
var ErrNotFound = leveldb.ErrNotFound

type IStore interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	NewBatch() error
	BatchPut(key []byte, value []byte) error
	BatchDelete(key []byte) error
	BatchCommit() error
	Compact() error
	Close() error
	NewIterator(prefix []byte) IIterator
}

type LevelDBStore struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

// used to compute the size of bloom filter bits array, too small will
// lead to high false positive rate.
const bitsPerKey = 10

func NewLevelDBStore(file string) (*LevelDBStore, error) {
	opts := &opt.Options{
		Filter: filter.NewBloomFilter(bitsPerKey),
	}

	db, err := leveldb.OpenFile(file, opts)
	if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, err
	}

	return &LevelDBStore{db: db}, nil
}

// NewMemLevelDBStore opens a memory-backed store. Used in tests.
func NewMemLevelDBStore() (*LevelDBStore, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

func (s *LevelDBStore) Put(key []byte, value []byte) error {
	return s.db.Put(key, value, nil)
}

func (s *LevelDBStore) Get(key []byte) ([]byte, error) {
	return s.db.Get(key, nil)
}

func (s *LevelDBStore) Has(key []byte) (bool, error) {
	return s.db.Has(key, nil)
}

func (s *LevelDBStore) NewBatch() error {
	s.batch = new(leveldb.Batch)
	return nil
}

func (s *LevelDBStore) BatchPut(key []byte, value []byte) error {
	s.batch.Put(key, value)
	return nil
}

func (s *LevelDBStore) BatchDelete(key []byte) error {
	s.batch.Delete(key)
	return nil
}

func (s *LevelDBStore) BatchCommit() error {
	return s.db.Write(s.batch, nil)
}

func (s *LevelDBStore) Compact() error {
	return s.db.CompactRange(util.Range{})
}

func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

func (s *LevelDBStore) NewIterator(prefix []byte) IIterator {
	return &Iterator{
		iter: s.db.NewIterator(util.BytesPrefix(prefix), nil),
	}
}
