package gatt

import (
	"fmt"
	"sort"

	"github.com/cornelk/hashmap"
	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"

	"github.com/srg/blip/internal/bledb"
)

// DescriptorConfig declares one descriptor of a characteristic.
type DescriptorConfig struct {
	UUID  string
	Value []byte
	Flags Flags
}

// CharacteristicConfig declares one characteristic of a service, with its
// optional descriptors.
type CharacteristicConfig struct {
	UUID  string
	Value []byte
	Flags Flags
	// NotifyValue is the payload published when notification starts. When
	// empty, the current value is used.
	NotifyValue []byte
	Descriptors []DescriptorConfig
}

// ServiceConfig declares one service tree for registration.
type ServiceConfig struct {
	UUID            string
	Primary         bool
	Characteristics []CharacteristicConfig
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Transport publishes nodes on the bus. Required.
	Transport Transport
	// Notifier raises Value change events. Optional; nil disables emission.
	Notifier Notifier
	// Observer is invoked on every successful value replacement. Optional.
	Observer WriteObserver
	// Logger receives structured registration and dispatch logs. Optional;
	// defaults to the standard logger.
	Logger *logrus.Logger
}

// Registry owns the attribute hierarchy: it allocates paths, publishes and
// withdraws nodes through the transport, tracks the published set for
// teardown, and dispatches the runtime read/write/notify operations.
//
// All state is mutated on the transport binding's serialized dispatch path;
// the registry itself takes no locks.
type Registry struct {
	log       logrus.FieldLogger
	transport Transport
	notifier  Notifier
	observer  WriteObserver

	// nextID is the shared monotonic path counter. Identifiers are never
	// reused for the process lifetime.
	nextID uint64

	services *hashmap.Map[string, *Service]
	index    *hashmap.Map[string, Attribute]

	serviceTable        *PropertyTable
	characteristicTable *PropertyTable
	descriptorTable     *PropertyTable
}

// NewRegistry creates a registry publishing through the given transport.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Transport == nil {
		panic("gatt: registry requires a transport")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := &Registry{
		log:       logger.WithField("component", "gatt-registry"),
		transport: opts.Transport,
		notifier:  opts.Notifier,
		observer:  opts.Observer,
		services:  hashmap.New[string, *Service](),
		index:     hashmap.New[string, Attribute](),
	}

	r.serviceTable = NewPropertyTable(
		&PropertyEntry{Name: "Primary", Signature: "b", Get: getPrimary},
		&PropertyEntry{Name: "UUID", Signature: "s", Get: getUUID},
		&PropertyEntry{Name: "Includes", Signature: "ao"},
	)
	r.characteristicTable = NewPropertyTable(
		&PropertyEntry{Name: "UUID", Signature: "s", Get: getUUID},
		&PropertyEntry{Name: "Service", Signature: "o", Get: getServicePath},
		&PropertyEntry{Name: "Value", Signature: "ay", Get: getValue, Set: r.setValueProperty},
		&PropertyEntry{Name: "Flags", Signature: "as", Get: getFlags},
	)
	r.descriptorTable = NewPropertyTable(
		&PropertyEntry{Name: "UUID", Signature: "s", Get: getUUID},
		&PropertyEntry{Name: "Characteristic", Signature: "o", Get: getCharacteristicPath},
		&PropertyEntry{Name: "Value", Signature: "ay", Get: getValue, Set: r.setValueProperty},
		&PropertyEntry{Name: "Flags", Signature: "as", Get: getFlags},
	)
	return r
}

func (r *Registry) allocID() uint64 {
	r.nextID++
	return r.nextID
}

// RegisterService allocates a path for a service with the given UUID and
// publishes its property surface. On transport rejection nothing is
// retained and the error wraps ErrRegistrationFailed.
func (r *Registry) RegisterService(uuid string, primary bool) (*Service, error) {
	canonical, err := bledb.ExpandUUID(uuid)
	if err != nil {
		return nil, fmt.Errorf("invalid service UUID: %w", err)
	}

	svc := &Service{
		uuid:    canonical,
		path:    dbus.ObjectPath(fmt.Sprintf("/service%d", r.allocID())),
		primary: primary,
		table:   r.serviceTable,
	}

	if err := r.transport.Publish(svc); err != nil {
		r.log.WithError(err).WithField("uuid", canonical).Error("service publish rejected")
		return nil, fmt.Errorf("%w: service %s: %v", ErrRegistrationFailed, bledb.NormalizeUUID(canonical), err)
	}

	r.services.Set(string(svc.path), svc)
	r.index.Set(string(svc.path), svc)
	r.log.WithFields(logrus.Fields{
		"path": svc.path,
		"uuid": canonical,
	}).Debug("service published")
	return svc, nil
}

// RegisterCharacteristic allocates and publishes a characteristic under svc,
// then its declared descriptors. If a descriptor publish fails, everything
// published for this call is withdrawn before the error propagates, leaving
// svc as it was.
func (r *Registry) RegisterCharacteristic(svc *Service, cfg CharacteristicConfig) (*Characteristic, error) {
	if _, ok := r.services.Get(string(svc.Path())); !ok {
		return nil, fmt.Errorf("service %s is not registered", svc.Path())
	}
	canonical, err := bledb.ExpandUUID(cfg.UUID)
	if err != nil {
		return nil, fmt.Errorf("invalid characteristic UUID: %w", err)
	}

	chr := &Characteristic{
		uuid:        canonical,
		path:        dbus.ObjectPath(fmt.Sprintf("%s/characteristic%d", svc.Path(), r.allocID())),
		servicePath: svc.Path(),
		value:       NewValue(cfg.Value),
		flags:       cfg.Flags,
		notifyValue: append([]byte(nil), cfg.NotifyValue...),
		table:       r.characteristicTable,
	}

	if err := r.transport.Publish(chr); err != nil {
		r.log.WithError(err).WithField("uuid", canonical).Error("characteristic publish rejected")
		return nil, fmt.Errorf("%w: characteristic %s: %v", ErrRegistrationFailed, bledb.NormalizeUUID(canonical), err)
	}
	r.index.Set(string(chr.path), chr)
	svc.characteristics = append(svc.characteristics, chr)
	r.log.WithFields(logrus.Fields{
		"path":  chr.path,
		"uuid":  canonical,
		"flags": chr.flags.String(),
	}).Debug("characteristic published")

	for _, dcfg := range cfg.Descriptors {
		if _, err := r.registerDescriptor(chr, dcfg); err != nil {
			r.log.WithFields(logrus.Fields{
				"path": chr.path,
				"uuid": canonical,
			}).Warn("rolling back characteristic registration")
			r.unregisterCharacteristic(svc, chr)
			return nil, err
		}
	}
	return chr, nil
}

func (r *Registry) registerDescriptor(chr *Characteristic, cfg DescriptorConfig) (*Descriptor, error) {
	canonical, err := bledb.ExpandUUID(cfg.UUID)
	if err != nil {
		return nil, fmt.Errorf("invalid descriptor UUID: %w", err)
	}

	desc := &Descriptor{
		uuid:               canonical,
		path:               dbus.ObjectPath(fmt.Sprintf("%s/descriptor%d", chr.Path(), r.allocID())),
		characteristicPath: chr.Path(),
		value:              NewValue(cfg.Value),
		flags:              cfg.Flags,
		table:              r.descriptorTable,
	}

	if err := r.transport.Publish(desc); err != nil {
		r.log.WithError(err).WithField("uuid", canonical).Error("descriptor publish rejected")
		return nil, fmt.Errorf("%w: descriptor %s: %v", ErrRegistrationFailed, bledb.NormalizeUUID(canonical), err)
	}
	r.index.Set(string(desc.path), desc)
	chr.descriptors = append(chr.descriptors, desc)
	r.log.WithFields(logrus.Fields{
		"path":  desc.path,
		"uuid":  canonical,
		"flags": desc.flags.String(),
	}).Debug("descriptor published")
	return desc, nil
}

// RegisterProfile registers every declared service tree in order. Each
// service appears atomically: if any of its characteristics fails to
// register, the whole service is withdrawn before the error surfaces.
// Services registered earlier in the profile stay live.
func (r *Registry) RegisterProfile(services []ServiceConfig) error {
	for _, scfg := range services {
		svc, err := r.RegisterService(scfg.UUID, scfg.Primary)
		if err != nil {
			return err
		}
		r.log.WithField("path", svc.Path()).Debug("publishing characteristics")
		for _, ccfg := range scfg.Characteristics {
			if _, err := r.RegisterCharacteristic(svc, ccfg); err != nil {
				r.log.WithFields(logrus.Fields{
					"path": svc.Path(),
					"uuid": svc.UUID(),
				}).Warn("rolling back service registration")
				_ = r.UnregisterService(svc.Path())
				return err
			}
		}
		r.log.WithFields(logrus.Fields{
			"path":            svc.Path(),
			"uuid":            svc.UUID(),
			"characteristics": len(scfg.Characteristics),
		}).Info("service registered")
	}
	return nil
}

// UnregisterService withdraws the service at path and everything beneath
// it, releasing the nodes from the registry. Path identifiers are not
// reused. Unknown paths are an error.
func (r *Registry) UnregisterService(path dbus.ObjectPath) error {
	svc, ok := r.services.Get(string(path))
	if !ok {
		return fmt.Errorf("service %s is not registered", path)
	}
	for _, chr := range svc.Characteristics() {
		r.unregisterCharacteristic(svc, chr)
	}
	r.unpublish(svc.path)
	r.index.Del(string(svc.path))
	r.services.Del(string(svc.path))
	r.log.WithField("path", path).Debug("service unregistered")
	return nil
}

// UnregisterAll withdraws every registered service. Used at teardown.
func (r *Registry) UnregisterAll() {
	for _, svc := range r.Services() {
		_ = r.UnregisterService(svc.Path())
	}
}

func (r *Registry) unregisterCharacteristic(svc *Service, chr *Characteristic) {
	for _, desc := range chr.Descriptors() {
		r.unpublish(desc.path)
		r.index.Del(string(desc.path))
		chr.removeDescriptor(desc.path)
	}
	r.unpublish(chr.path)
	r.index.Del(string(chr.path))
	svc.removeCharacteristic(chr.path)
}

func (r *Registry) unpublish(path dbus.ObjectPath) {
	if err := r.transport.Unpublish(path); err != nil {
		r.log.WithError(err).WithField("path", path).Warn("unpublish failed")
	}
}

// Lookup resolves a published path to its attribute node.
func (r *Registry) Lookup(path dbus.ObjectPath) (Attribute, bool) {
	return r.index.Get(string(path))
}

// Services returns the currently published services sorted by path.
func (r *Registry) Services() []*Service {
	out := make([]*Service, 0, r.services.Len())
	r.services.Range(func(_ string, svc *Service) bool {
		out = append(out, svc)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out
}

// ReadValue handles a node's ReadValue call: decodes the options, logs the
// requesting peer when provided, and returns the current value.
func (r *Registry) ReadValue(a Attribute, rawOpts interface{}) ([]byte, *Error) {
	holder, ok := a.(valued)
	if !ok {
		return nil, NotSupportedf("node %s has no value", a.Path())
	}
	opts, derr := DecodeOptions(rawOpts)
	if derr != nil {
		return nil, derr
	}
	entry := r.log.WithFields(logrus.Fields{"path": a.Path(), "uuid": bledb.NormalizeUUID(a.UUID())})
	if dev, ok := opts.Device(); ok {
		entry = entry.WithField("device", dev)
	}
	entry.Debug("read value")
	return holder.Value().Load(), nil
}

// WriteValue handles a node's WriteValue call: decodes the payload and
// options, replaces the value store content, invokes the write observer,
// and raises exactly one Value change notification.
func (r *Registry) WriteValue(a Attribute, rawValue, rawOpts interface{}) *Error {
	if _, ok := a.(valued); !ok {
		return NotSupportedf("node %s has no value", a.Path())
	}
	data, derr := DecodeValue(rawValue)
	if derr != nil {
		return derr
	}
	opts, derr := DecodeOptions(rawOpts)
	if derr != nil {
		return derr
	}
	entry := r.log.WithFields(logrus.Fields{"path": a.Path(), "uuid": bledb.NormalizeUUID(a.UUID()), "len": len(data)})
	if dev, ok := opts.Device(); ok {
		entry = entry.WithField("device", dev)
	}
	entry.Debug("write value")
	r.setValue(a, data)
	return nil
}

// StartNotify begins notification on a characteristic. Characteristics
// without the notify flag reject with NotSupported. Starting publishes the
// configured notification payload through the regular value pipeline, which
// raises the initial change event.
func (r *Registry) StartNotify(c *Characteristic) *Error {
	if !c.flags.Has(FlagNotify) {
		return NotSupportedf("characteristic %s does not support notifications", ShortenUUID(bledb.NormalizeUUID(c.uuid)))
	}
	payload := c.notifyValue
	if len(payload) == 0 {
		payload = c.value.Load()
	}
	r.log.WithFields(logrus.Fields{"path": c.path, "uuid": bledb.NormalizeUUID(c.uuid)}).Debug("notification started")
	r.setValue(c, payload)
	return nil
}

// StopNotify always rejects: once started, notification cannot be disabled
// in this profile family.
func (r *Registry) StopNotify(c *Characteristic) *Error {
	r.log.WithField("path", c.path).Debug("notification stop requested")
	return NotSupportedf("notification stop is not supported")
}

// setValue is the single value-mutation pipeline: atomic replace, write
// observer, one change notification.
func (r *Registry) setValue(a Attribute, data []byte) {
	holder := a.(valued)
	holder.Value().Replace(data)
	if r.observer != nil {
		r.observer(a, holder.Value().Load())
	}
	if r.notifier != nil {
		if err := r.notifier.ValueChanged(a); err != nil {
			r.log.WithError(err).WithField("path", a.Path()).Warn("change notification failed")
		}
	}
}

// setValueProperty is the Value property setter shared by characteristics
// and descriptors. The payload must decode as a byte array; decode failure
// fails the completion without touching state.
func (r *Registry) setValueProperty(a Attribute, value dbus.Variant, pending *Pending) {
	data, derr := DecodeValue(value)
	if derr != nil {
		r.log.WithFields(logrus.Fields{
			"path":    a.Path(),
			"pending": pending.ID(),
		}).WithError(derr).Debug("value assignment rejected")
		pending.Fail(derr)
		return
	}
	r.setValue(a, data)
	r.log.WithFields(logrus.Fields{
		"path":    a.Path(),
		"pending": pending.ID(),
		"len":     len(data),
	}).Debug("value assignment applied")
	pending.Complete()
}

func getUUID(a Attribute) (dbus.Variant, *Error) {
	return dbus.MakeVariant(a.UUID()), nil
}

func getPrimary(a Attribute) (dbus.Variant, *Error) {
	return dbus.MakeVariant(a.(*Service).primary), nil
}

func getServicePath(a Attribute) (dbus.Variant, *Error) {
	return dbus.MakeVariant(a.(*Characteristic).servicePath), nil
}

func getCharacteristicPath(a Attribute) (dbus.Variant, *Error) {
	return dbus.MakeVariant(a.(*Descriptor).characteristicPath), nil
}

func getValue(a Attribute) (dbus.Variant, *Error) {
	return dbus.MakeVariant(a.(valued).Value().Load()), nil
}

func getFlags(a Attribute) (dbus.Variant, *Error) {
	return dbus.MakeVariant(a.(flagged).Flags().Project()), nil
}
