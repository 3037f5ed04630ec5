package headers

import (
	"strings"
	"sync"
)

// OrderedHeaders preserves the wire order of HTTP header fields and handles
// case-insensitive lookups. A name may carry several field lines (Add), while
// Set keeps the name unique.
type OrderedHeaders struct {
	mu      sync.RWMutex
	entries []Header
}

// Header represents a single HTTP header field line
type Header struct {
	Name  string
	Value string
}

// NewOrderedHeaders creates a new OrderedHeaders instance
func NewOrderedHeaders() *OrderedHeaders {
	return &OrderedHeaders{
		entries: make([]Header, 0),
	}
}

// Set adds or replaces a header. The first field line with the same name keeps
// its position, later duplicates are dropped.
func (h *OrderedHeaders) Set(name, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx := -1
	kept := h.entries[:0]
	for _, entry := range h.entries {
		if strings.EqualFold(entry.Name, name) {
			if idx != -1 {
				continue
			}
			idx = len(kept)
		}
		kept = append(kept, entry)
	}
	h.entries = kept

	if idx == -1 {
		h.entries = append(h.entries, Header{Name: name, Value: value})
		return
	}
	h.entries[idx] = Header{Name: name, Value: value}
}

// Add appends a field line without touching existing ones (Set-Cookie,
// repeated Transfer-Encoding, ...)
func (h *OrderedHeaders) Add(name, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, Header{Name: name, Value: value})
}

// Get retrieves the first value of a header (case-insensitive)
func (h *OrderedHeaders) Get(name string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, entry := range h.entries {
		if strings.EqualFold(entry.Name, name) {
			return entry.Value
		}
	}
	return ""
}

// Values returns every field line value of a header in wire order
func (h *OrderedHeaders) Values(name string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var values []string
	for _, entry := range h.entries {
		if strings.EqualFold(entry.Name, name) {
			values = append(values, entry.Value)
		}
	}
	return values
}

// GetRaw retrieves the original case of the header name
func (h *OrderedHeaders) GetRaw(name string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, entry := range h.entries {
		if strings.EqualFold(entry.Name, name) {
			return entry.Name
		}
	}
	return ""
}

// Has checks if a header exists (case-insensitive)
func (h *OrderedHeaders) Has(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, entry := range h.entries {
		if strings.EqualFold(entry.Name, name) {
			return true
		}
	}
	return false
}

// Del removes all field lines of a header
func (h *OrderedHeaders) Del(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.entries[:0]
	for _, entry := range h.entries {
		if !strings.EqualFold(entry.Name, name) {
			kept = append(kept, entry)
		}
	}
	h.entries = kept
}

// All returns all headers in their original order
func (h *OrderedHeaders) All() []Header {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Header, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of field lines
func (h *OrderedHeaders) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.entries)
}

// Clone returns an independent copy
func (h *OrderedHeaders) Clone() *OrderedHeaders {
	return &OrderedHeaders{entries: h.All()}
}
