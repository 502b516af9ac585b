// Package dsa provides the small data structures used for conversation
// lookup: a radix tree for id-prefix resolution and a suffix array for
// message-content search. Both are in-memory only; the on-disk layout has
// no secondary indexes.
package dsa

import (
	"github.com/armon/go-radix"
)

// Trie is a compressed prefix tree over conversation ids. It lets the CLI
// resolve an abbreviated id (for example "conv_3f" for
// "conv_3f9a11d2c07b54e6") the way git resolves short hashes.
//
// Time Complexity: O(k) per operation where k is key length.
type Trie[V any] struct {
	tree *radix.Tree
	size int
}

// NewTrie creates an empty radix tree.
func NewTrie[V any]() *Trie[V] {
	return &Trie[V]{
		tree: radix.New(),
	}
}

// Insert adds a key-value pair to the tree.
func (t *Trie[V]) Insert(key string, value V) {
	_, updated := t.tree.Insert(key, value)
	if !updated {
		t.size++
	}
}

// Delete removes a key. Returns true if the key was present.
func (t *Trie[V]) Delete(key string) bool {
	_, deleted := t.tree.Delete(key)
	if deleted {
		t.size--
	}
	return deleted
}

// Search looks up an exact key.
func (t *Trie[V]) Search(key string) (V, bool) {
	val, found := t.tree.Get(key)
	if !found {
		var zero V
		return zero, false
	}
	v, ok := val.(V)
	if !ok {
		var zero V
		return zero, false
	}
	return v, true
}

// Contains reports whether an exact key exists.
func (t *Trie[V]) Contains(key string) bool {
	_, found := t.tree.Get(key)
	return found
}

// StartsWith returns all keys beginning with prefix.
// Time Complexity: O(k + m) where m is the number of matches.
func (t *Trie[V]) StartsWith(prefix string) []string {
	var results []string
	t.tree.WalkPrefix(prefix, func(k string, v interface{}) bool {
		results = append(results, k)
		return false // continue walking
	})
	return results
}

// Size returns the number of keys in the tree.
func (t *Trie[V]) Size() int {
	return t.size
}

// Clear removes all keys.
func (t *Trie[V]) Clear() {
	t.tree = radix.New()
	t.size = 0
}
