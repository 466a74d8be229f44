// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"maps"
	"slices"
)

var (
	_ Reader = (*Overlay)(nil)
	_ Writer = (*Overlay)(nil)
)

// Overlay buffers writes on top of a Reader. Reads observe the buffered
// writes; the underlying store is only touched by Commit.
type Overlay struct {
	parent Reader
	// nil value marks a deletion
	writes map[string][]byte
}

func NewOverlay(parent Reader) *Overlay {
	return &Overlay{
		parent: parent,
		writes: make(map[string][]byte),
	}
}

func (o *Overlay) Get(key []byte) ([]byte, error) {
	if v, ok := o.writes[string(key)]; ok {
		if v == nil {
			return nil, ErrNotFound
		}
		return slices.Clone(v), nil
	}
	return o.parent.Get(key)
}

func (o *Overlay) Has(key []byte) (bool, error) {
	if v, ok := o.writes[string(key)]; ok {
		return v != nil, nil
	}
	return o.parent.Has(key)
}

func (o *Overlay) Put(key []byte, value []byte) error {
	v := slices.Clone(value)
	if v == nil {
		v = []byte{}
	}
	o.writes[string(key)] = v
	return nil
}

func (o *Overlay) Delete(key []byte) error {
	o.writes[string(key)] = nil
	return nil
}

// Len is the number of buffered writes.
func (o *Overlay) Len() int {
	return len(o.writes)
}

// Commit writes every buffered change to db as a single atomic batch, in
// sorted key order, and clears the overlay.
func (o *Overlay) Commit(db Database) error {
	batch := db.NewBatch()
	for _, k := range slices.Sorted(maps.Keys(o.writes)) {
		v := o.writes[k]
		var err error
		if v == nil {
			err = batch.Delete([]byte(k))
		} else {
			err = batch.Put([]byte(k), v)
		}
		if err != nil {
			return err
		}
	}
	if err := batch.Write(); err != nil {
		return err
	}
	clear(o.writes)
	return nil
}

// Discard drops every buffered change.
func (o *Overlay) Discard() {
	clear(o.writes)
}
