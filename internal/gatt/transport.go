package gatt

import (
	"github.com/godbus/dbus/v5"
)

// Transport publishes and withdraws attribute nodes on the bus. The bluez
// binding implements it over a live connection; tests supply a fake.
type Transport interface {
	// Publish exposes the node's method and property surface under its path.
	Publish(Attribute) error
	// Unpublish removes every interface exported under path. Safe to call
	// during rollback for a path that was only partially published.
	Unpublish(dbus.ObjectPath) error
}

// Notifier raises change events for subscribed observers. Emission is
// fire-and-forget: no acknowledgment, no retry, ordering only by issuance.
type Notifier interface {
	// ValueChanged signals that the node's Value property changed.
	ValueChanged(Attribute) error
}

// WriteObserver is invoked after every successful value-store replacement
// with the owning node and the new buffer. Used for auditing and telemetry;
// the callback must not block.
type WriteObserver func(Attribute, []byte)
