package gatt

import (
	"github.com/godbus/dbus/v5"
)

// Characteristic is a published GATT characteristic node. The back-reference
// to its owning service is a path handle resolved through the registry, not
// a pointer, so service teardown cannot leave it dangling.
type Characteristic struct {
	uuid        string
	path        dbus.ObjectPath
	servicePath dbus.ObjectPath
	value       *Value
	flags       Flags
	notifyValue []byte
	table       *PropertyTable

	descriptors []*Descriptor
}

// UUID returns the characteristic UUID in canonical 128-bit dashed form.
func (c *Characteristic) UUID() string { return c.uuid }

// Path returns the identifier the characteristic is published under.
func (c *Characteristic) Path() dbus.ObjectPath { return c.path }

// Interface returns the remote interface name of characteristic nodes.
func (c *Characteristic) Interface() string { return CharacteristicInterface }

// Table returns the characteristic property table.
func (c *Characteristic) Table() *PropertyTable { return c.table }

// ServicePath returns the path of the owning service.
func (c *Characteristic) ServicePath() dbus.ObjectPath { return c.servicePath }

// Value returns the characteristic's value store.
func (c *Characteristic) Value() *Value { return c.value }

// Flags returns the characteristic's permission flags.
func (c *Characteristic) Flags() Flags { return c.flags }

// Descriptors returns the characteristic's descriptors in registration
// order.
func (c *Characteristic) Descriptors() []*Descriptor {
	out := make([]*Descriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

func (c *Characteristic) removeDescriptor(path dbus.ObjectPath) {
	for i, d := range c.descriptors {
		if d.path == path {
			c.descriptors = append(c.descriptors[:i], c.descriptors[i+1:]...)
			return
		}
	}
}
