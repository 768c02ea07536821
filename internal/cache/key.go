package cache

import (
	"fmt"
	"strings"
)

// Key identifies a cached resource: a kind followed by an id or encoded
// query parameters, e.g. ["tasks", "list", "page=0&size=20"].
type Key []string

// K builds a key from arbitrary values using their default formatting.
func K(parts ...any) Key {
	k := make(Key, len(parts))
	for i, p := range parts {
		k[i] = fmt.Sprint(p)
	}
	return k
}

func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether every segment of prefix matches the start of k.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}
