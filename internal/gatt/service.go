package gatt

import (
	"github.com/godbus/dbus/v5"
)

// Service is a published GATT service node. It owns zero or more
// characteristics, registered in order under its path.
type Service struct {
	uuid    string
	path    dbus.ObjectPath
	primary bool
	table   *PropertyTable

	characteristics []*Characteristic
}

// UUID returns the service UUID in canonical 128-bit dashed form.
func (s *Service) UUID() string { return s.uuid }

// Path returns the identifier the service is published under.
func (s *Service) Path() dbus.ObjectPath { return s.path }

// Interface returns the remote interface name of service nodes.
func (s *Service) Interface() string { return ServiceInterface }

// Table returns the service property table.
func (s *Service) Table() *PropertyTable { return s.table }

// Primary reports whether this is a primary service.
func (s *Service) Primary() bool { return s.primary }

// Characteristics returns the service's characteristics in registration
// order.
func (s *Service) Characteristics() []*Characteristic {
	out := make([]*Characteristic, len(s.characteristics))
	copy(out, s.characteristics)
	return out
}

func (s *Service) removeCharacteristic(path dbus.ObjectPath) {
	for i, c := range s.characteristics {
		if c.path == path {
			s.characteristics = append(s.characteristics[:i], s.characteristics[i+1:]...)
			return
		}
	}
}
