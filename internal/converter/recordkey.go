package converter

// recordkey.go derives deduplication fingerprints for standardized rows and
// tracks them for the lifetime of one run.

import (
	"strings"
	"sync"
	"time"
)

// KeyFor generates the duplicate-detection key for a standardized row.
// Priority: Item ID, then SKU, then name plus truncated description, then a
// join of the first five non-empty values. Rows with no identifying data get
// a time-based key that never matches anything, so they are never
// deduplicated.
func KeyFor(row Row) string {
	if id := row["Item ID"]; id != "" {
		return "id:" + id
	}

	if sku := row["SKU"]; sku != "" {
		return "sku:" + sku
	}

	if name, desc := row["Item Name"], row["Description"]; name != "" && desc != "" {
		name = strings.ToLower(strings.TrimSpace(name))
		desc = strings.ToLower(strings.TrimSpace(desc))
		if len(desc) > 50 {
			desc = desc[:50]
		}
		return "name_desc:" + name + "_" + desc
	}

	var values []string
	for _, h := range StandardHeaders {
		if v := row[h]; v != "" {
			values = append(values, v)
			if len(values) == 5 {
				break
			}
		}
	}
	if len(values) > 0 {
		return "hash:" + strings.Join(values, "_")
	}

	return "unknown:" + time.Now().Format("20060102150405.000000000")
}

// KeySet is the set of record keys seen so far in a run. It is shared by
// every concurrent file worker; Add performs the membership check and the
// insert as one atomic step so two workers can never both claim the same
// key as novel.
type KeySet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewKeySet returns an empty key set.
func NewKeySet() *KeySet {
	return &KeySet{seen: make(map[string]struct{})}
}

// Add records key and reports whether it was already present.
func (s *KeySet) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seen[key]; dup {
		return true
	}
	s.seen[key] = struct{}{}
	return false
}

// Len returns the number of distinct keys recorded.
func (s *KeySet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
