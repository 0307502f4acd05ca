package bluez

import (
	"github.com/godbus/dbus/v5"

	"github.com/srg/blip/internal/gatt"
)

// objectManager implements org.freedesktop.DBus.ObjectManager on the
// application root. BlueZ reads the whole attribute tree through a single
// GetManagedObjects call when the application registers.
type objectManager struct {
	srv *Server
}

// GetManagedObjects returns every published node keyed by path, each with
// its GATT interface and the current property snapshot.
func (m *objectManager) GetManagedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, *dbus.Error) {
	m.srv.mu.Lock()
	defer m.srv.mu.Unlock()

	out := managedObjects(m.srv.reg.Services())
	m.srv.log.WithField("objects", len(out)).Debug("managed objects requested")
	return out, nil
}

// managedObjects walks the registered service trees into the snapshot shape
// GetManagedObjects replies with.
func managedObjects(services []*gatt.Service) map[dbus.ObjectPath]map[string]map[string]dbus.Variant {
	out := make(map[dbus.ObjectPath]map[string]map[string]dbus.Variant)
	for _, svc := range services {
		out[svc.Path()] = map[string]map[string]dbus.Variant{
			svc.Interface(): svc.Table().GetAll(svc),
		}
		for _, chr := range svc.Characteristics() {
			out[chr.Path()] = map[string]map[string]dbus.Variant{
				chr.Interface(): chr.Table().GetAll(chr),
			}
			for _, desc := range chr.Descriptors() {
				out[desc.Path()] = map[string]map[string]dbus.Variant{
					desc.Interface(): desc.Table().GetAll(desc),
				}
			}
		}
	}
	return out
}
