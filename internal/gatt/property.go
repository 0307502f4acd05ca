package gatt

import (
	"sync"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// GetFunc reads a property from a node. Getters are side-effect-free apart
// from logging.
type GetFunc func(Attribute) (dbus.Variant, *Error)

// SetFunc applies a property write to a node. The outcome is reported only
// through the pending completion, never via a return value: the network
// reply is decoupled from the in-process mutation.
type SetFunc func(Attribute, dbus.Variant, *Pending)

// PropertyEntry describes one named, typed property of a node kind. A nil
// Get marks a declared-but-unimplemented accessor (skipped by GetAll); a nil
// Set marks a read-only property.
type PropertyEntry struct {
	Name      string
	Signature string
	Get       GetFunc
	Set       SetFunc
}

// PropertyTable is the ordered name→entry dispatch registry for one node
// kind. It is built once at registry construction and never mutated at
// runtime.
type PropertyTable struct {
	entries *orderedmap.OrderedMap[string, *PropertyEntry]
}

// NewPropertyTable builds a table from the given entries, preserving order.
// Duplicate names are a configuration error and panic.
func NewPropertyTable(entries ...*PropertyEntry) *PropertyTable {
	t := &PropertyTable{entries: orderedmap.New[string, *PropertyEntry]()}
	for _, e := range entries {
		if _, exists := t.entries.Get(e.Name); exists {
			panic("gatt: duplicate property " + e.Name)
		}
		t.entries.Set(e.Name, e)
	}
	return t
}

// Lookup returns the entry registered under name.
func (t *PropertyTable) Lookup(name string) (*PropertyEntry, bool) {
	return t.entries.Get(name)
}

// Names returns the property names in registration order.
func (t *PropertyTable) Names() []string {
	names := make([]string, 0, t.entries.Len())
	for pair := t.entries.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Get invokes the registered getter for name on attr. Unknown names fail
// with ErrInvalidArguments; entries without a getter fail with
// ErrNotSupported.
func (t *PropertyTable) Get(attr Attribute, name string) (dbus.Variant, *Error) {
	entry, ok := t.entries.Get(name)
	if !ok {
		return dbus.Variant{}, InvalidArgumentsf("unknown property %q", name)
	}
	if entry.Get == nil {
		return dbus.Variant{}, NotSupportedf("property %q has no accessor", name)
	}
	return entry.Get(attr)
}

// GetAll reads every readable property of attr in registration order,
// skipping entries without a getter.
func (t *PropertyTable) GetAll(attr Attribute) map[string]dbus.Variant {
	out := make(map[string]dbus.Variant, t.entries.Len())
	for pair := t.entries.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Get == nil {
			continue
		}
		v, err := pair.Value.Get(attr)
		if err != nil {
			continue
		}
		out[pair.Key] = v
	}
	return out
}

// Set routes a property write to the registered setter. The outcome flows
// exclusively through pending: a read-only property fails NotPermitted
// before any state is touched, an unknown name fails InvalidArguments, and
// the setter itself signals success or a decode failure.
func (t *PropertyTable) Set(attr Attribute, name string, value dbus.Variant, pending *Pending) {
	entry, ok := t.entries.Get(name)
	if !ok {
		pending.Fail(InvalidArgumentsf("unknown property %q", name))
		return
	}
	if entry.Set == nil {
		pending.Fail(NotPermittedf("property %q is read-only", name))
		return
	}
	entry.Set(attr, value, pending)
}

// pendingID numbers completions for log correlation across the process.
var pendingID atomic.Uint64

// Pending is the asynchronous acknowledgment channel for a property-set
// outcome. The dispatcher completes it exactly once, today synchronously
// before Set returns, but callers must collect the outcome through Wait
// rather than assume that ordering.
type Pending struct {
	id   uint64
	once sync.Once
	ch   chan *Error
}

// NewPending allocates a completion with a process-unique id.
func NewPending() *Pending {
	return &Pending{
		id: pendingID.Add(1),
		ch: make(chan *Error, 1),
	}
}

// ID returns the completion's process-unique identifier.
func (p *Pending) ID() uint64 {
	return p.id
}

// Complete resolves the completion as success. Later resolutions are
// ignored.
func (p *Pending) Complete() {
	p.resolve(nil)
}

// Fail resolves the completion with the given error. Later resolutions are
// ignored.
func (p *Pending) Fail(e *Error) {
	if e == nil {
		e = ErrInvalidArguments
	}
	p.resolve(e)
}

// Wait blocks until the completion resolves and returns the outcome, nil on
// success.
func (p *Pending) Wait() *Error {
	err := <-p.ch
	p.ch <- err
	return err
}

func (p *Pending) resolve(e *Error) {
	p.once.Do(func() {
		p.ch <- e
	})
}
