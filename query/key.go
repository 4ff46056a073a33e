package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key identifies a cache entry. It is an ordered tuple whose leading
// elements name a group: Key{"users"} is a prefix of Key{"users", "detail", 1}.
// Elements are compared by their JSON encoding, so 1 and 1.0 are equal and
// maps compare independent of insertion order.
type Key []any

// Append returns a new key with parts appended.
func (k Key) Append(parts ...any) Key {
	out := make(Key, 0, len(k)+len(parts))
	out = append(out, k...)
	return append(out, parts...)
}

// String returns the canonical encoding, e.g. ["users","detail",1].
func (k Key) String() string {
	return "[" + strings.Join(k.parts(), ",") + "]"
}

// HasPrefix reports whether prefix matches k element by element. An empty
// prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	return hasPrefix(k.parts(), prefix.parts())
}

// Equal reports whether k and other have the same canonical encoding.
func (k Key) Equal(other Key) bool {
	return len(k) == len(other) && k.HasPrefix(other)
}

func (k Key) parts() []string {
	out := make([]string, len(k))
	for i, el := range k {
		out[i] = encodePart(el)
	}
	return out
}

func encodePart(el any) string {
	b, err := json.Marshal(el)
	if err != nil {
		return fmt.Sprintf("%q", fmt.Sprint(el))
	}
	return string(b)
}

func hasPrefix(parts, prefix []string) bool {
	if len(prefix) > len(parts) {
		return false
	}
	for i := range prefix {
		if parts[i] != prefix[i] {
			return false
		}
	}
	return true
}
