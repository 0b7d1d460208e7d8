// Package kv is the small key-value persistence service that durable
// gateway state is written through. Keys are plain strings scoped by a
// caller-supplied namespace.
package kv

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrInvalidKey = errors.New("invalid key")
	ErrClosed     = errors.New("store is closed")
)

// Store persists string values by key.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	// Put stores value under key, replacing any previous value.
	Put(key string, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
}

// Namespacer is implemented by stores that can hand out isolated namespaces.
type Namespacer interface {
	Namespace(prefix string) (Store, error)
}

func checkKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key: %w", ErrInvalidKey)
	}
	return nil
}

// Memory is an in-process Store. The zero value is not usable; use NewMemory.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
	closed bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", false, ErrClosed
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Put(key string, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.values[key] = value
	return nil
}

func (m *Memory) Remove(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.values, key)
	return nil
}

// Keys returns all stored keys in sorted order.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Namespace scopes keys under "prefix/".
func (m *Memory) Namespace(prefix string) (Store, error) {
	if prefix == "" || strings.Contains(prefix, "/") {
		return nil, fmt.Errorf("namespace %q: %w", prefix, ErrInvalidKey)
	}
	return &prefixed{store: m, prefix: prefix + "/"}, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type prefixed struct {
	store  Store
	prefix string
}

func (p *prefixed) Get(key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	return p.store.Get(p.prefix + key)
}

func (p *prefixed) Put(key string, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return p.store.Put(p.prefix+key, value)
}

func (p *prefixed) Remove(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return p.store.Remove(p.prefix + key)
}

// Namespace returns a namespaced view of store. Stores that implement
// Namespacer decide how namespaces are isolated; any other store gets
// key prefixing.
func Namespace(store Store, prefix string) (Store, error) {
	if n, ok := store.(Namespacer); ok {
		return n.Namespace(prefix)
	}
	if prefix == "" {
		return nil, fmt.Errorf("empty namespace: %w", ErrInvalidKey)
	}
	return &prefixed{store: store, prefix: prefix + "/"}, nil
}
