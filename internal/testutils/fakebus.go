package testutils

import (
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/srg/blip/internal/gatt"
)

// FakeBus is an in-memory gatt.Transport and gatt.Notifier for registry and
// dispatch tests. It records publishes, unpublishes, and change
// notifications in order, and can inject publish failures through FailOn.
type FakeBus struct {
	mu sync.Mutex

	// FailOn, when set, is consulted before each publish; a non-nil return
	// rejects the publish with that error.
	FailOn func(gatt.Attribute) error

	live          map[dbus.ObjectPath]gatt.Attribute
	publishOrder  []dbus.ObjectPath
	unpublished   []dbus.ObjectPath
	notifications []dbus.ObjectPath
}

func NewFakeBus() *FakeBus {
	return &FakeBus{
		live: make(map[dbus.ObjectPath]gatt.Attribute),
	}
}

// Publish records the node as live, unless FailOn rejects it.
func (b *FakeBus) Publish(a gatt.Attribute) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailOn != nil {
		if err := b.FailOn(a); err != nil {
			return err
		}
	}
	b.live[a.Path()] = a
	b.publishOrder = append(b.publishOrder, a.Path())
	return nil
}

// Unpublish removes the path from the live set and records the withdrawal.
func (b *FakeBus) Unpublish(path dbus.ObjectPath) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.live, path)
	b.unpublished = append(b.unpublished, path)
	return nil
}

// ValueChanged records a Value change notification for the node's path.
func (b *FakeBus) ValueChanged(a gatt.Attribute) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifications = append(b.notifications, a.Path())
	return nil
}

// IsLive reports whether the path is currently published.
func (b *FakeBus) IsLive(path dbus.ObjectPath) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.live[path]
	return ok
}

// LiveCount returns the number of currently published paths.
func (b *FakeBus) LiveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.live)
}

// PublishOrder returns every published path in publish order, including
// paths withdrawn later.
func (b *FakeBus) PublishOrder() []dbus.ObjectPath {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]dbus.ObjectPath, len(b.publishOrder))
	copy(out, b.publishOrder)
	return out
}

// Unpublished returns every withdrawn path in withdrawal order.
func (b *FakeBus) Unpublished() []dbus.ObjectPath {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]dbus.ObjectPath, len(b.unpublished))
	copy(out, b.unpublished)
	return out
}

// Notifications returns the paths of all Value change notifications in
// emission order.
func (b *FakeBus) Notifications() []dbus.ObjectPath {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]dbus.ObjectPath, len(b.notifications))
	copy(out, b.notifications)
	return out
}

// NotificationCount returns how many Value change notifications were
// emitted for the given path.
func (b *FakeBus) NotificationCount(path dbus.ObjectPath) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, p := range b.notifications {
		if p == path {
			n++
		}
	}
	return n
}
