// Package kv is the transactional key-value store the engine state lives in.
package kv

import (
	"context"
	"errors"

	"github.com/vmihailenco/msgpack/v5"
)

var ErrNotFound = errors.New("not found")

// Tx is a read-write view of the store inside one transaction.
type Tx interface {
	// Get returns ErrNotFound for a missing key or bucket.
	Get(bucket, key string) ([]byte, error)
	Put(bucket, key string, val []byte) error
	// Delete of a missing key is a no-op.
	Delete(bucket, key string) error
	// ForEach visits the bucket in ascending key order.
	ForEach(bucket string, fn func(key string, val []byte) error) error
}

// Store runs transactions. Update commits every write made by fn when fn returns
// nil and discards all of them otherwise.
type Store interface {
	Update(ctx context.Context, fn func(Tx) error) error
	View(ctx context.Context, fn func(Tx) error) error
	Close() error
}

func Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func Unmarshal(b []byte, v any) error {
	return msgpack.Unmarshal(b, v)
}

// GetValue decodes the value under key into v.
func GetValue(tx Tx, bucket, key string, v any) error {
	raw, err := tx.Get(bucket, key)
	if err != nil {
		return err
	}
	return Unmarshal(raw, v)
}

// PutValue encodes v under key.
func PutValue(tx Tx, bucket, key string, v any) error {
	raw, err := Marshal(v)
	if err != nil {
		return err
	}
	return tx.Put(bucket, key, raw)
}
