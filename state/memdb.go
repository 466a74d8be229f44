// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"errors"
	"slices"
	"sync"
)

var (
	_ Database = (*MemDB)(nil)
	_ Batch    = (*memBatch)(nil)

	ErrClosed = errors.New("database closed")
)

// MemDB is an in-memory Database.
type MemDB struct {
	lock   sync.RWMutex
	data   map[string][]byte
	closed bool
}

func NewMemDB() *MemDB {
	return &MemDB{data: make(map[string][]byte)}
}

func (m *MemDB) Get(key []byte) ([]byte, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

func (m *MemDB) Has(key []byte) (bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if m.closed {
		return false, ErrClosed
	}
	_, ok := m.data[string(key)]
	return ok, nil
}

func (m *MemDB) Put(key []byte, value []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.data[string(key)] = slices.Clone(value)
	return nil
}

func (m *MemDB) Delete(key []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.data, string(key))
	return nil
}

func (m *MemDB) NewBatch() Batch {
	return &memBatch{db: m}
}

func (m *MemDB) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.closed = true
	return nil
}

// Len returns the number of stored keys.
func (m *MemDB) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return len(m.data)
}

// Snapshot returns a copy of every stored entry.
func (m *MemDB) Snapshot() map[string][]byte {
	m.lock.RLock()
	defer m.lock.RUnlock()

	snapshot := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		snapshot[k] = slices.Clone(v)
	}
	return snapshot
}

type memOp struct {
	key    string
	value  []byte
	delete bool
}

type memBatch struct {
	db  *MemDB
	ops []memOp
}

func (b *memBatch) Put(key []byte, value []byte) error {
	b.ops = append(b.ops, memOp{key: string(key), value: slices.Clone(value)})
	return nil
}

func (b *memBatch) Delete(key []byte) error {
	b.ops = append(b.ops, memOp{key: string(key), delete: true})
	return nil
}

func (b *memBatch) Size() int {
	return len(b.ops)
}

func (b *memBatch) Write() error {
	b.db.lock.Lock()
	defer b.db.lock.Unlock()

	if b.db.closed {
		return ErrClosed
	}
	for _, op := range b.ops {
		if op.delete {
			delete(b.db.data, op.key)
			continue
		}
		b.db.data[op.key] = op.value
	}
	b.ops = nil
	return nil
}
