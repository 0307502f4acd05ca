package gatt

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Error is a bus-mappable attribute-server error. Name carries the D-Bus
// error name expected by the manager; Msg is the human-readable detail.
type Error struct {
	Name string
	Msg  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Name
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Msg)
}

// Is reports whether target is an Error with the same D-Bus error name,
// so errors.Is matches the sentinel regardless of the attached message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Name == e.Name
}

// DBus converts the error into the reply form the transport sends back.
func (e *Error) DBus() *dbus.Error {
	return dbus.NewError(e.Name, []interface{}{e.Msg})
}

// Sentinel errors for the attribute-server taxonomy. Compare with
// errors.Is; attach context with the matching constructor.
var (
	// ErrInvalidArguments indicates a malformed RPC payload: a value that is
	// not a byte array, or options that are not a string-keyed variant map.
	ErrInvalidArguments = &Error{Name: "org.bluez.Error.InvalidArguments"}

	// ErrNotSupported indicates an operation this node or profile does not
	// offer, such as StopNotify or notifications on a non-notify node.
	ErrNotSupported = &Error{Name: "org.bluez.Error.NotSupported"}

	// ErrNotPermitted indicates a write attempted on a read-only property.
	ErrNotPermitted = &Error{Name: "org.bluez.Error.NotPermitted"}

	// ErrNoMemory indicates a reply could not be constructed.
	ErrNoMemory = &Error{Name: "org.freedesktop.DBus.Error.NoMemory"}

	// ErrRegistrationFailed indicates the transport rejected a publish or a
	// hierarchy rollback was required.
	ErrRegistrationFailed = &Error{Name: "org.bluez.Error.Failed"}
)

// InvalidArgumentsf returns an ErrInvalidArguments with a formatted message.
func InvalidArgumentsf(format string, args ...interface{}) *Error {
	return &Error{Name: ErrInvalidArguments.Name, Msg: fmt.Sprintf(format, args...)}
}

// NotSupportedf returns an ErrNotSupported with a formatted message.
func NotSupportedf(format string, args ...interface{}) *Error {
	return &Error{Name: ErrNotSupported.Name, Msg: fmt.Sprintf(format, args...)}
}

// NotPermittedf returns an ErrNotPermitted with a formatted message.
func NotPermittedf(format string, args ...interface{}) *Error {
	return &Error{Name: ErrNotPermitted.Name, Msg: fmt.Sprintf(format, args...)}
}

// RegistrationFailedf returns an ErrRegistrationFailed with a formatted message.
func RegistrationFailedf(format string, args ...interface{}) *Error {
	return &Error{Name: ErrRegistrationFailed.Name, Msg: fmt.Sprintf(format, args...)}
}
