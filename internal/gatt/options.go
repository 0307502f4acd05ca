package gatt

import (
	"github.com/godbus/dbus/v5"
)

// Options is the decoded string-keyed variant map every ReadValue/WriteValue
// call carries. Unrecognized keys are preserved but ignored.
type Options map[string]dbus.Variant

// Device returns the peer identifier from the "device" option, when present.
// The manager sends it as an object path; a plain string is tolerated.
func (o Options) Device() (dbus.ObjectPath, bool) {
	v, ok := o["device"]
	if !ok {
		return "", false
	}
	switch p := v.Value().(type) {
	case dbus.ObjectPath:
		return p, true
	case string:
		return dbus.ObjectPath(p), true
	default:
		return "", false
	}
}

// DecodeOptions decodes a method's options argument. The transport hands the
// argument through untyped; anything that is not a string-keyed variant map
// fails with ErrInvalidArguments.
func DecodeOptions(raw interface{}) (Options, *Error) {
	switch m := raw.(type) {
	case nil:
		return Options{}, nil
	case map[string]dbus.Variant:
		return Options(m), nil
	case Options:
		return m, nil
	case dbus.Variant:
		return DecodeOptions(m.Value())
	default:
		return nil, InvalidArgumentsf("options must be a string-keyed variant map, got %T", raw)
	}
}

// DecodeValue decodes a byte-sequence argument (a WriteValue payload or a
// Value property assignment). Only an array-of-byte container is accepted,
// directly or wrapped in a variant; any other shape fails with
// ErrInvalidArguments and must not reach the value store.
func DecodeValue(raw interface{}) ([]byte, *Error) {
	switch v := raw.(type) {
	case []byte:
		return v, nil
	case dbus.Variant:
		return DecodeValue(v.Value())
	default:
		return nil, InvalidArgumentsf("value must be a byte array, got %T", raw)
	}
}
