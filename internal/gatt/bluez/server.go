// Package bluez binds the attribute registry to the D-Bus surface BlueZ
// expects from a GATT application: per-node org.bluez.Gatt* interfaces,
// org.freedesktop.DBus.Properties, introspection, and an ObjectManager at
// the application root.
//
// The registry itself is single-threaded. D-Bus dispatches every incoming
// call on its own goroutine, so the server funnels all of them through one
// mutex before the registry is touched.
package bluez

import (
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/sirupsen/logrus"

	"github.com/srg/blip/internal/gatt"
)

const (
	// BusName is the well-known name BlueZ owns on the system bus.
	BusName = "org.bluez"

	// ApplicationPath is the root under which all attribute nodes live and
	// which is handed to RegisterApplication.
	ApplicationPath = dbus.ObjectPath("/")

	gattManagerInterface    = "org.bluez.GattManager1"
	propertiesInterface     = "org.freedesktop.DBus.Properties"
	objectManagerInterface  = "org.freedesktop.DBus.ObjectManager"
	introspectableInterface = "org.freedesktop.DBus.Introspectable"
	propertiesChangedSignal = propertiesInterface + ".PropertiesChanged"
)

// ServerOptions configures a Server.
type ServerOptions struct {
	// Conn is the bus connection nodes are exported on. Required.
	Conn *dbus.Conn
	// Observer is forwarded to the registry and sees every value write.
	Observer gatt.WriteObserver
	// Logger defaults to the standard logger.
	Logger *logrus.Logger
}

// Server owns the D-Bus face of one GATT application. It implements
// gatt.Transport and gatt.Notifier for the registry it creates.
type Server struct {
	log  logrus.FieldLogger
	conn *dbus.Conn

	// mu serializes every dispatch into the registry. D-Bus handlers run
	// on arbitrary goroutines and must all pass through here.
	mu  sync.Mutex
	reg *gatt.Registry
}

// NewServer creates a server, its registry, and exports the application
// root on the connection.
func NewServer(opts ServerOptions) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Server{
		log:  logger.WithField("component", "bluez-server"),
		conn: opts.Conn,
	}
	s.reg = gatt.NewRegistry(gatt.RegistryOptions{
		Transport: s,
		Notifier:  s,
		Observer:  opts.Observer,
		Logger:    logger,
	})

	if err := s.exportRoot(); err != nil {
		return nil, err
	}
	return s, nil
}

// RegisterProfile registers the declared service trees through the registry.
func (s *Server) RegisterProfile(services []gatt.ServiceConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.RegisterProfile(services)
}

// UnregisterAll withdraws every registered service.
func (s *Server) UnregisterAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reg.UnregisterAll()
}

// Services returns the currently registered services sorted by path.
func (s *Server) Services() []*gatt.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.Services()
}

// Publish exports a node's GATT interface, its Properties interface and its
// introspection data. A partially exported node is cleared before the error
// is returned, so failure leaves no trace on the bus.
func (s *Server) Publish(a gatt.Attribute) error {
	path := a.Path()

	methods := s.methodTable(a)
	if len(methods) > 0 {
		if err := s.conn.ExportMethodTable(methods, path, a.Interface()); err != nil {
			return err
		}
	} else {
		// Services carry no methods but still need the interface visible
		// for introspection-driven tooling.
		if err := s.conn.Export(struct{}{}, path, a.Interface()); err != nil {
			return err
		}
	}

	if err := s.conn.Export(&propertiesHandler{srv: s, node: a}, path, propertiesInterface); err != nil {
		_ = s.Unpublish(path)
		return err
	}

	if err := s.conn.Export(introspect.NewIntrospectable(introspectNode(a)), path, introspectableInterface); err != nil {
		_ = s.Unpublish(path)
		return err
	}
	return nil
}

// Unpublish clears every interface slot the node may occupy at path.
func (s *Server) Unpublish(path dbus.ObjectPath) error {
	var firstErr error
	for _, iface := range []string{
		gatt.ServiceInterface,
		gatt.CharacteristicInterface,
		gatt.DescriptorInterface,
		propertiesInterface,
		introspectableInterface,
	} {
		if err := s.conn.Export(nil, path, iface); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ValueChanged emits PropertiesChanged for the node's Value property.
// Delivery is fire-and-forget: the emission outcome never reaches the
// caller that triggered the change.
func (s *Server) ValueChanged(a gatt.Attribute) error {
	v, derr := a.Table().Get(a, "Value")
	if derr != nil {
		return derr
	}
	return s.conn.Emit(a.Path(), propertiesChangedSignal,
		a.Interface(),
		map[string]dbus.Variant{"Value": v},
		[]string{},
	)
}

// methodTable builds the node's exported method set. Payload and options
// parameters stay untyped so the registry owns the decode semantics and the
// InvalidArguments replies that go with them.
func (s *Server) methodTable(a gatt.Attribute) map[string]interface{} {
	switch node := a.(type) {
	case *gatt.Characteristic:
		return map[string]interface{}{
			"ReadValue": func(options interface{}) ([]byte, *dbus.Error) {
				return s.readValue(node, options)
			},
			"WriteValue": func(value, options interface{}) *dbus.Error {
				return s.writeValue(node, value, options)
			},
			"StartNotify": func() *dbus.Error {
				s.mu.Lock()
				defer s.mu.Unlock()
				if derr := s.reg.StartNotify(node); derr != nil {
					return derr.DBus()
				}
				return nil
			},
			"StopNotify": func() *dbus.Error {
				s.mu.Lock()
				defer s.mu.Unlock()
				if derr := s.reg.StopNotify(node); derr != nil {
					return derr.DBus()
				}
				return nil
			},
		}
	case *gatt.Descriptor:
		return map[string]interface{}{
			"ReadValue": func(options interface{}) ([]byte, *dbus.Error) {
				return s.readValue(node, options)
			},
			"WriteValue": func(value, options interface{}) *dbus.Error {
				return s.writeValue(node, value, options)
			},
		}
	default:
		return nil
	}
}

func (s *Server) readValue(a gatt.Attribute, options interface{}) ([]byte, *dbus.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, derr := s.reg.ReadValue(a, options)
	if derr != nil {
		return nil, derr.DBus()
	}
	return data, nil
}

func (s *Server) writeValue(a gatt.Attribute, value, options interface{}) *dbus.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if derr := s.reg.WriteValue(a, value, options); derr != nil {
		return derr.DBus()
	}
	return nil
}

func (s *Server) exportRoot() error {
	if err := s.conn.Export(&objectManager{srv: s}, ApplicationPath, objectManagerInterface); err != nil {
		return err
	}
	return s.conn.Export(introspect.NewIntrospectable(rootIntrospection()), ApplicationPath, introspectableInterface)
}

// propertiesHandler implements org.freedesktop.DBus.Properties for one node
// by delegating to its property table.
type propertiesHandler struct {
	srv  *Server
	node gatt.Attribute
}

func (h *propertiesHandler) Get(iface, property string) (dbus.Variant, *dbus.Error) {
	h.srv.mu.Lock()
	defer h.srv.mu.Unlock()
	if iface != h.node.Interface() {
		return dbus.Variant{}, gatt.InvalidArgumentsf("no property %q on interface %q", property, iface).DBus()
	}
	v, derr := h.node.Table().Get(h.node, property)
	if derr != nil {
		return dbus.Variant{}, derr.DBus()
	}
	return v, nil
}

func (h *propertiesHandler) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	h.srv.mu.Lock()
	defer h.srv.mu.Unlock()
	if iface != h.node.Interface() {
		return nil, gatt.InvalidArgumentsf("unknown interface %q", iface).DBus()
	}
	return h.node.Table().GetAll(h.node), nil
}

func (h *propertiesHandler) Set(iface, property string, value dbus.Variant) *dbus.Error {
	if iface != h.node.Interface() {
		return gatt.InvalidArgumentsf("no property %q on interface %q", property, iface).DBus()
	}

	pending := gatt.NewPending()
	h.srv.mu.Lock()
	h.node.Table().Set(h.node, property, value, pending)
	h.srv.mu.Unlock()

	// The reply is held until the table resolves the completion.
	if derr := pending.Wait(); derr != nil {
		return derr.DBus()
	}
	return nil
}
