package parser

import "sync"

// StringIntern deduplicates plate strings. The same plate appears in many
// files on both sides; interning keeps one copy per run.
type StringIntern struct {
	mu   sync.RWMutex
	pool map[string]string
}

// MaxInternPoolSize limits the pool; past it strings are returned unpooled.
const MaxInternPoolSize = 500000

// NewStringIntern creates a new string interner.
func NewStringIntern() *StringIntern {
	return &StringIntern{
		pool: make(map[string]string, 1024),
	}
}

// Intern returns the canonical version of s.
func (si *StringIntern) Intern(s string) string {
	si.mu.RLock()
	if pooled, ok := si.pool[s]; ok {
		si.mu.RUnlock()
		return pooled
	}
	full := len(si.pool) >= MaxInternPoolSize
	si.mu.RUnlock()
	if full {
		return s
	}

	si.mu.Lock()
	defer si.mu.Unlock()
	if pooled, ok := si.pool[s]; ok {
		return pooled
	}
	si.pool[s] = s
	return s
}

// Len returns the number of pooled strings.
func (si *StringIntern) Len() int {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return len(si.pool)
}
