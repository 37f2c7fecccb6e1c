package fetch

import (
	"sort"
	"sync"
)

// ErrorMap collects download failures keyed by case id. Workers share
// one map, so every access takes the lock.
type ErrorMap struct {
	mu    sync.Mutex
	items map[string]string
}

func NewErrorMap() *ErrorMap {
	return &ErrorMap{items: make(map[string]string)}
}

func (m *ErrorMap) Set(caseID, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[caseID] = detail
}

func (m *ErrorMap) Remove(caseID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, caseID)
}

func (m *ErrorMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Keys returns the failed case ids in sorted order.
func (m *ErrorMap) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Items returns a copy so callers can iterate without holding the lock.
func (m *ErrorMap) Items() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.items))
	for k, v := range m.items {
		out[k] = v
	}
	return out
}

func (m *ErrorMap) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]string)
}
