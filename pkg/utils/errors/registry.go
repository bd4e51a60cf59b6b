package errors

import (
	"fmt"
	"sort"
	"sync"
)

// registry holds every Errno declared at package init, keyed by code.
var registry = struct {
	sync.RWMutex
	byCode map[int]*Errno
}{byCode: make(map[int]*Errno)}

// Register records e and returns it. Codes are unique process-wide; a second
// registration of the same code panics.
func Register(e *Errno) *Errno {
	registry.Lock()
	defer registry.Unlock()

	if existing, ok := registry.byCode[e.Code]; ok {
		panic(fmt.Sprintf("errno code %d already registered: %s", e.Code, existing.MessageEN))
	}
	registry.byCode[e.Code] = e
	return e
}

// Lookup returns the registered Errno for code.
func Lookup(code int) (*Errno, bool) {
	registry.RLock()
	defer registry.RUnlock()
	e, ok := registry.byCode[code]
	return e, ok
}

// Registered returns the registered errors of one service, ordered by code.
func Registered(service int) []*Errno {
	registry.RLock()
	defer registry.RUnlock()

	out := make([]*Errno, 0)
	for code, e := range registry.byCode {
		if GetService(code) == service {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
