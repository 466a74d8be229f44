// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state is the deterministic key-value store consumed by the
// settlement engine.
package state

import "errors"

// ErrNotFound is returned by Get when a key has no value.
var ErrNotFound = errors.New("not found")

// Reader reads committed values.
type Reader interface {
	// Get returns the value of key or ErrNotFound.
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
}

// Writer mutates values.
type Writer interface {
	Put(key []byte, value []byte) error
	Delete(key []byte) error
}

// Batch buffers writes that are applied by Write as one atomic unit.
type Batch interface {
	Writer
	// Write applies every buffered operation or none of them.
	Write() error
	// Size is the number of buffered operations.
	Size() int
}

// Database is a key-value store with atomic batches.
type Database interface {
	Reader
	Writer
	NewBatch() Batch
	Close() error
}
