package kv

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var errReadOnly = errors.New("kv: write in read-only transaction")

// Memory is an in-process Store. Writes are staged per transaction and only reach
// the shared maps on commit.
type Memory struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{buckets: map[string]map[string][]byte{}}
}

func (m *Memory) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{m: m, staged: map[string]map[string][]byte{}, writable: true}
	if err := fn(tx); err != nil {
		return err
	}
	for b, kvs := range tx.staged {
		dst := m.buckets[b]
		if dst == nil {
			dst = map[string][]byte{}
			m.buckets[b] = dst
		}
		for k, v := range kvs {
			if v == nil {
				delete(dst, k)
				continue
			}
			dst[k] = v
		}
	}
	return nil
}

func (m *Memory) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memTx{m: m})
}

func (m *Memory) Close() error { return nil }

type memTx struct {
	m        *Memory
	staged   map[string]map[string][]byte // nil value marks a delete
	writable bool
}

func (t *memTx) Get(bucket, key string) ([]byte, error) {
	if kvs, ok := t.staged[bucket]; ok {
		if v, ok := kvs[key]; ok {
			if v == nil {
				return nil, ErrNotFound
			}
			return clone(v), nil
		}
	}
	v, ok := t.m.buckets[bucket][key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v), nil
}

func (t *memTx) Put(bucket, key string, val []byte) error {
	if !t.writable {
		return errReadOnly
	}
	t.stage(bucket)[key] = append([]byte{}, val...)
	return nil
}

func (t *memTx) Delete(bucket, key string) error {
	if !t.writable {
		return errReadOnly
	}
	t.stage(bucket)[key] = nil
	return nil
}

func (t *memTx) ForEach(bucket string, fn func(string, []byte) error) error {
	merged := map[string][]byte{}
	for k, v := range t.m.buckets[bucket] {
		merged[k] = v
	}
	for k, v := range t.staged[bucket] {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn(k, clone(merged[k])); err != nil {
			return err
		}
	}
	return nil
}

func (t *memTx) stage(bucket string) map[string][]byte {
	kvs := t.staged[bucket]
	if kvs == nil {
		kvs = map[string][]byte{}
		t.staged[bucket] = kvs
	}
	return kvs
}

func clone(b []byte) []byte {
	return append([]byte{}, b...)
}
