package quote

import (
	"sync"

	"github.com/meenmo/curvekit/errs"
)

// Handle is a relinkable reference to a Quote. Helpers hold handles so the source
// of a value can be switched after construction.
type Handle struct {
	mu     sync.RWMutex
	target Quote
	// base is the stamp at the last relink; offset is the target generation then.
	base   uint64
	offset uint64
}

// NewHandle returns a handle linked to q; q may be nil.
func NewHandle(q Quote) *Handle {
	h := &Handle{}
	h.LinkTo(q)
	return h
}

// LinkTo points the handle at q.
func (h *Handle) LinkTo(q Quote) {
	h.mu.Lock()
	defer h.mu.Unlock()
	next := h.stampLocked() + 1
	h.target = q
	h.base = next
	h.offset = 0
	if q != nil {
		h.offset = q.Generation()
	}
}

// Current returns the linked quote, or nil.
func (h *Handle) Current() Quote {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.target
}

// Empty reports whether the handle points nowhere.
func (h *Handle) Empty() bool {
	return h.Current() == nil
}

// Value dereferences the handle.
func (h *Handle) Value() (float64, error) {
	q := h.Current()
	if q == nil {
		return 0, errs.EmptyQuote("quote.Handle.Value")
	}
	return q.Value()
}

// IsValid reports whether the handle is linked to a quote with a value.
func (h *Handle) IsValid() bool {
	q := h.Current()
	return q != nil && q.IsValid()
}

// Generation is a stamp that increases on every relink and on every change of the
// linked quote.
func (h *Handle) Generation() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stampLocked()
}

func (h *Handle) stampLocked() uint64 {
	if h.target == nil {
		return h.base
	}
	return h.base + h.target.Generation() - h.offset
}
