package bluez

import (
	"context"
	"fmt"
	"sort"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"

	"github.com/srg/blip/internal/groutine"
)

const interfacesAddedSignal = objectManagerInterface + ".InterfacesAdded"

// Registrar announces the application to BlueZ's GattManager1 and withdraws
// it on shutdown. Registration happens once per process; there is no retry.
type Registrar struct {
	log     logrus.FieldLogger
	conn    *dbus.Conn
	appPath dbus.ObjectPath

	manager   dbus.ObjectPath
	announced bool
}

// NewRegistrar creates a registrar announcing the application root.
func NewRegistrar(conn *dbus.Conn, logger *logrus.Logger) *Registrar {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registrar{
		log:     logger.WithField("component", "bluez-registrar"),
		conn:    conn,
		appPath: ApplicationPath,
	}
}

// Manager returns the resolved GattManager1 carrier path, if any.
func (r *Registrar) Manager() dbus.ObjectPath {
	return r.manager
}

// FindManager resolves the adapter carrying GattManager1. When no adapter
// is present yet, it waits for one to appear until ctx is done.
func (r *Registrar) FindManager(ctx context.Context) (dbus.ObjectPath, error) {
	// Watch before scanning so an adapter appearing in between is not missed.
	rule := fmt.Sprintf("type='signal',sender='%s',interface='%s',member='InterfacesAdded'", BusName, objectManagerInterface)
	if call := r.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule); call.Err != nil {
		return "", fmt.Errorf("failed to add match signal: %w", call.Err)
	}
	sigChan := make(chan *dbus.Signal, 16)
	r.conn.Signal(sigChan)
	defer r.conn.RemoveSignal(sigChan)

	objects, err := r.managedObjects()
	if err != nil {
		return "", err
	}
	if path, ok := managerPathIn(objects); ok {
		r.manager = path
		r.log.WithField("adapter", path).Debug("GATT manager found")
		return path, nil
	}

	r.log.Info("no GATT manager present, waiting for an adapter")
	for {
		select {
		case sig := <-sigChan:
			if sig == nil || sig.Name != interfacesAddedSignal || len(sig.Body) < 2 {
				continue
			}
			path, ok := sig.Body[0].(dbus.ObjectPath)
			if !ok {
				continue
			}
			ifaces, ok := sig.Body[1].(map[string]map[string]dbus.Variant)
			if !ok {
				continue
			}
			if _, ok := ifaces[gattManagerInterface]; ok {
				r.manager = path
				r.log.WithField("adapter", path).Info("GATT manager appeared")
				return path, nil
			}
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for GATT manager: %w", ctx.Err())
		}
	}
}

// Announce asynchronously registers the application with the resolved
// manager. The outcome is logged when the manager replies; the call itself
// returns as soon as the request is on the wire.
func (r *Registrar) Announce(ctx context.Context) error {
	if r.manager == "" {
		return fmt.Errorf("no GATT manager resolved")
	}
	if r.announced {
		return fmt.Errorf("application already announced")
	}
	r.announced = true

	obj := r.conn.Object(BusName, r.manager)
	ch := make(chan *dbus.Call, 1)
	obj.Go(gattManagerInterface+".RegisterApplication", 0, ch, r.appPath, map[string]dbus.Variant{})

	groutine.Go(ctx, "bluez-register", func(ctx context.Context) {
		select {
		case call := <-ch:
			if call.Err != nil {
				r.log.WithError(call.Err).Error("RegisterApplication failed")
				return
			}
			r.log.Info("RegisterApplication: OK")
		case <-ctx.Done():
			r.log.Debugf("%s: exiting", groutine.GetName(ctx))
		}
	})
	return nil
}

// Withdraw unregisters the application. Best-effort at shutdown; the
// registrar stays spent afterwards.
func (r *Registrar) Withdraw() error {
	if !r.announced {
		return nil
	}
	obj := r.conn.Object(BusName, r.manager)
	if call := obj.Call(gattManagerInterface+".UnregisterApplication", 0, r.appPath); call.Err != nil {
		return fmt.Errorf("UnregisterApplication: %w", call.Err)
	}
	r.log.Info("application withdrawn")
	return nil
}

func (r *Registrar) managedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	obj := r.conn.Object(BusName, "/")
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if err := obj.Call("org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0).Store(&objects); err != nil {
		return nil, fmt.Errorf("failed to get managed objects: %w", err)
	}
	return objects, nil
}

// managerPathIn scans a managed-objects reply for adapters carrying
// GattManager1 and returns the lowest path, keeping the pick stable when
// several adapters are present.
func managerPathIn(objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant) (dbus.ObjectPath, bool) {
	var found []dbus.ObjectPath
	for path, ifaces := range objects {
		if _, ok := ifaces[gattManagerInterface]; ok {
			found = append(found, path)
		}
	}
	if len(found) == 0 {
		return "", false
	}
	sort.Slice(found, func(i, j int) bool { return found[i] < found[j] })
	return found[0], true
}
