package roster

import (
	"strings"
	"sync"
	"time"

	"patient-management/internal/domain/entity"
)

// View owns a loaded roster and the current search inputs, and keeps the visible subset
// up to date. Status changes recompute immediately; term changes are debounced.
// Subscribers are called with the new visible roster and must not call back into the
// view.
type View struct {
	notifyMu sync.Mutex
	mu       sync.Mutex

	roster  []entity.Patient
	filter  entity.RosterFilter
	visible []entity.Patient

	subscribers map[int]func([]entity.Patient)
	nextSubID   int
	closed      bool

	terms *Debouncer[string]
}

func NewView(debounce time.Duration) *View {
	v := &View{
		filter:      entity.RosterFilter{Status: entity.StatusAll},
		visible:     []entity.Patient{},
		subscribers: make(map[int]func([]entity.Patient)),
	}
	v.terms = NewDebouncer(debounce, v.applyTerm)
	return v
}

// SetRoster replaces the loaded roster. The slice is copied.
func (v *View) SetRoster(all []entity.Patient) {
	v.mu.Lock()
	v.roster = append([]entity.Patient(nil), all...)
	v.mu.Unlock()

	v.recompute()
}

func (v *View) SetStatus(status string) {
	v.mu.Lock()
	v.filter.Status = status
	v.mu.Unlock()

	v.recompute()
}

// SetTerm schedules a recompute for term once typing has settled.
func (v *View) SetTerm(term string) {
	v.terms.Push(strings.ToLower(strings.TrimSpace(term)))
}

// Flush applies a pending search term without waiting for the delay.
func (v *View) Flush() {
	v.terms.Flush()
}

func (v *View) Filter() entity.RosterFilter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter.Normalized()
}

// Visible returns a copy of the current visible roster.
func (v *View) Visible() []entity.Patient {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]entity.Patient{}, v.visible...)
}

// Subscribe registers fn for visible roster changes.
func (v *View) Subscribe(fn func([]entity.Patient)) (unsubscribe func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return func() {}
	}
	id := v.nextSubID
	v.nextSubID++
	v.subscribers[id] = fn

	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.subscribers, id)
	}
}

// Close stops the debouncer and drops every subscriber. No notification is delivered
// after Close returns.
func (v *View) Close() {
	v.terms.Close()

	v.notifyMu.Lock()
	defer v.notifyMu.Unlock()

	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.subscribers = nil
}

func (v *View) applyTerm(term string) {
	v.mu.Lock()
	v.filter.Term = term
	v.mu.Unlock()

	v.recompute()
}

func (v *View) recompute() {
	v.notifyMu.Lock()
	defer v.notifyMu.Unlock()

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.visible = Apply(v.roster, v.filter)
	subscribers := make([]func([]entity.Patient), 0, len(v.subscribers))
	for id := 0; id < v.nextSubID; id++ {
		if fn, ok := v.subscribers[id]; ok {
			subscribers = append(subscribers, fn)
		}
	}
	visible := v.visible
	v.mu.Unlock()

	for _, fn := range subscribers {
		fn(append([]entity.Patient{}, visible...))
	}
}
