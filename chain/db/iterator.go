package db

import (
	"github.com/syndtr/goleveldb/leveldb/iterator"
)

type IIterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
}

type Iterator struct {
	iter iterator.Iterator
}

func (it *Iterator) Next() bool {
	return it.iter.Next()
}

func (it *Iterator) Key() []byte {
	return it.iter.Key()
}

func (it *Iterator) Value() []byte {
	return it.iter.Value()
}

func (it *Iterator) Release() {
	it.iter.Release()
}
