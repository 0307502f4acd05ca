//go:generate go run ./gen

// Package bledb provides UUID normalization helpers and a curated subset of
// the Bluetooth SIG assigned-numbers database (services, characteristics,
// descriptors) for resolving human-readable attribute names. The name
// tables live in names_gen.go.
package bledb

import (
	"fmt"
	"strings"
)

// sigBaseSuffix is the tail of the Bluetooth SIG base UUID
// (xxxxxxxx-0000-1000-8000-00805f9b34fb) with dashes removed.
const sigBaseSuffix = "00001000800000805f9b34fb"

// NormalizeUUID converts a UUID string to the internal short format
// (lowercase, no dashes). Strips surrounding braces and a 0x prefix if
// present. Full 128-bit UUIDs on the Bluetooth SIG base
// (0000xxxx-0000-1000-8000-00805f9b34fb) collapse to the 16-bit short
// form (xxxx); any other 128-bit UUID stays 32 hex characters.
func NormalizeUUID(uuid string) string {
	u := strings.ToLower(strings.TrimSpace(uuid))
	u = strings.TrimPrefix(u, "{")
	u = strings.TrimSuffix(u, "}")
	u = strings.TrimPrefix(u, "0x")
	u = strings.ReplaceAll(u, "-", "")

	if !isHex(u) {
		return ""
	}

	if len(u) == 32 && strings.HasPrefix(u, "0000") && u[8:] == sigBaseSuffix {
		return u[4:8]
	}
	return u
}

// NormalizeUUIDs normalizes a slice of UUID strings to internal format.
func NormalizeUUIDs(uuids []string) []string {
	result := make([]string, 0, len(uuids))
	for _, u := range uuids {
		result = append(result, NormalizeUUID(u))
	}
	return result
}

// ExpandUUID converts a UUID in any accepted form to the canonical dashed
// 128-bit representation used on the wire. 16-bit and 32-bit short forms
// are expanded onto the Bluetooth SIG base UUID.
func ExpandUUID(uuid string) (string, error) {
	u := NormalizeUUID(uuid)
	switch len(u) {
	case 4:
		u = "0000" + u + sigBaseSuffix
	case 8:
		u = u + sigBaseSuffix
	case 32:
		// already full-length
	default:
		return "", fmt.Errorf("invalid UUID %q", uuid)
	}
	return u[0:8] + "-" + u[8:12] + "-" + u[12:16] + "-" + u[16:20] + "-" + u[20:32], nil
}

// LookupService returns the assigned name of a service UUID, or "" when the
// UUID is not in the database.
func LookupService(uuid string) string {
	return serviceNames[NormalizeUUID(uuid)]
}

// LookupCharacteristic returns the assigned name of a characteristic UUID,
// or "" when the UUID is not in the database.
func LookupCharacteristic(uuid string) string {
	return characteristicNames[NormalizeUUID(uuid)]
}

// LookupDescriptor returns the assigned name of a descriptor UUID, or ""
// when the UUID is not in the database.
func LookupDescriptor(uuid string) string {
	return descriptorNames[NormalizeUUID(uuid)]
}

// Lookup resolves a UUID of any attribute kind to its assigned name,
// checking services, then characteristics, then descriptors.
func Lookup(uuid string) string {
	n := NormalizeUUID(uuid)
	if name, ok := serviceNames[n]; ok {
		return name
	}
	if name, ok := characteristicNames[n]; ok {
		return name
	}
	return descriptorNames[n]
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}
