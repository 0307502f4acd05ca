package main

import (
	"errors"
	"fmt"

	"github.com/srg/blip/internal/gatt"
)

// Command-level errors
var (
	// ErrNoAdapter indicates no GATT manager appeared on the bus before the
	// wait window expired. This usually means bluetoothd is not running or
	// the machine has no Bluetooth controller.
	ErrNoAdapter = errors.New("no GATT manager found on the bus")

	// ErrBusLost indicates the bus connection closed underneath a running
	// server, taking every exported object with it.
	ErrBusLost = errors.New("bus connection lost")
)

// FormatUserError renders an error as a single human-readable line.
// Attribute-server errors carry a reverse-DNS D-Bus error name that means
// nothing to a terminal user; keep the name as a short suffix and lead
// with the message text.
func FormatUserError(err error) string {
	var gattErr *gatt.Error
	if errors.As(err, &gattErr) {
		if gattErr.Msg != "" {
			return fmt.Sprintf("%s (%s)", gattErr.Msg, gattErr.Name)
		}
		return gattErr.Name
	}
	if errors.Is(err, ErrNoAdapter) {
		return fmt.Sprintf("%s - is bluetoothd running?", err.Error())
	}
	return err.Error()
}
