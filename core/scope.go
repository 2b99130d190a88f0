package core

import (
	"sort"
	"sync"
)

// Scope is the shared key/value state bag threaded through one workflow
// invocation. Every agent that runs reads its inputs from the scope and
// writes its outputs back; the last writer in execution order wins.
//
// Contract:
//   - Get fails with *MissingKeyError for absent keys
//   - once a key exists its Kind is fixed; Set with a different kind fails
//     with *TypeMismatchError
//   - TextOr/NumberOr tolerate unset keys with a caller-supplied default,
//     which is how exit predicates read a score before the first pass wrote it
//
// A Scope is owned by exactly one workflow invocation and is never shared
// across invocations. The engine runs an invocation on a single goroutine,
// but access is still serialized so agent implementations that fan work out
// internally stay safe.
type Scope struct {
	mu     sync.RWMutex
	values map[string]Value
}

// NewScope creates a scope pre-populated with the seed mapping.
func NewScope(seed map[string]Value) *Scope {
	values := make(map[string]Value, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &Scope{values: values}
}

// Get returns the value for key or *MissingKeyError if it was never written.
func (s *Scope) Get(key string) (Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return Value{}, &MissingKeyError{Key: key}
	}
	return v, nil
}

// Has reports whether key has been written.
func (s *Scope) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[key]
	return ok
}

// Set writes key unconditionally, except that the kind of an existing key
// may not change.
func (s *Scope) Set(key string, v Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.values[key]; ok && old.Kind() != v.Kind() {
		return &TypeMismatchError{Key: key, Want: old.Kind(), Got: v.Kind()}
	}
	s.values[key] = v
	return nil
}

// TextOr returns the text at key, or def when the key is unset or not text.
func (s *Scope) TextOr(key, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key]; ok {
		if t, isText := v.AsText(); isText {
			return t
		}
	}
	return def
}

// NumberOr returns the number at key, or def when the key is unset or not a
// number. Exit predicates rely on this so an absent score reads as "not yet
// converged" instead of failing the pass.
func (s *Scope) NumberOr(key string, def float64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key]; ok {
		if n, isNum := v.AsNumber(); isNum {
			return n
		}
	}
	return def
}

// Keys returns the written keys in sorted order.
func (s *Scope) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of the current state, suitable for rendering
// prompt templates without holding the lock.
func (s *Scope) Snapshot() map[string]Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[string]Value, len(s.values))
	for k, v := range s.values {
		snap[k] = v
	}
	return snap
}

// Len returns the number of written keys.
func (s *Scope) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
