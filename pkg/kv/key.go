// Package kv defines the identity and value types the rest of the client
// operates on: keys, bins, and records.
package kv

import "fmt"

// Key identifies a single record in the store.
type Key struct {
	Namespace string
	Set       string
	UserKey   interface{}
}

// NewKey builds a Key from its three components.
func NewKey(namespace, set string, userKey interface{}) Key {
	return Key{Namespace: namespace, Set: set, UserKey: userKey}
}

func (k Key) String() string {
	return fmt.Sprintf("%s.%s:%v", k.Namespace, k.Set, k.UserKey)
}

// Equal reports whether two keys identify the same record.
func (k Key) Equal(other Key) bool {
	return k.Namespace == other.Namespace && k.Set == other.Set && k.UserKey == other.UserKey
}
