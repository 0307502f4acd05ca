// Package gatt implements the transport-agnostic GATT attribute server: the
// service/characteristic/descriptor node model, the per-kind property and
// method dispatch, and the registry that publishes consistent attribute
// hierarchies with rollback on partial failure.
//
// The package is single-threaded by contract. A transport binding that
// dispatches calls on multiple goroutines must serialize every entry into
// this package (see internal/gatt/bluez).
package gatt

import (
	"github.com/godbus/dbus/v5"
)

// Interface names under which attribute nodes are published.
const (
	ServiceInterface        = "org.bluez.GattService1"
	CharacteristicInterface = "org.bluez.GattCharacteristic1"
	DescriptorInterface     = "org.bluez.GattDescriptor1"
)

// Attribute is a node in the published hierarchy: a Service,
// Characteristic, or Descriptor.
type Attribute interface {
	// UUID returns the node's canonical 128-bit dashed UUID.
	UUID() string
	// Path returns the hierarchical identifier the node is published under.
	Path() dbus.ObjectPath
	// Interface returns the remote interface name the node implements.
	Interface() string
	// Table returns the node kind's property table.
	Table() *PropertyTable
}

// valued is satisfied by nodes that own a value store (characteristics and
// descriptors).
type valued interface {
	Value() *Value
}

// flagged is satisfied by nodes that carry permission flags.
type flagged interface {
	Flags() Flags
}
