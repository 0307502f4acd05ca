package gatt

import (
	"github.com/godbus/dbus/v5"
)

// Descriptor is a published GATT descriptor node. The back-reference to its
// owning characteristic is a path handle, resolved through the registry.
type Descriptor struct {
	uuid               string
	path               dbus.ObjectPath
	characteristicPath dbus.ObjectPath
	value              *Value
	flags              Flags
	table              *PropertyTable
}

// UUID returns the descriptor UUID in canonical 128-bit dashed form.
func (d *Descriptor) UUID() string { return d.uuid }

// Path returns the identifier the descriptor is published under.
func (d *Descriptor) Path() dbus.ObjectPath { return d.path }

// Interface returns the remote interface name of descriptor nodes.
func (d *Descriptor) Interface() string { return DescriptorInterface }

// Table returns the descriptor property table.
func (d *Descriptor) Table() *PropertyTable { return d.table }

// CharacteristicPath returns the path of the owning characteristic.
func (d *Descriptor) CharacteristicPath() dbus.ObjectPath { return d.characteristicPath }

// Value returns the descriptor's value store.
func (d *Descriptor) Value() *Value { return d.value }

// Flags returns the descriptor's permission flags.
func (d *Descriptor) Flags() Flags { return d.flags }
