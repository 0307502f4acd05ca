package gatt

import (
	"fmt"
	"strings"
)

// Permission flags understood by the attribute server. The names follow the
// manager's GATT vocabulary and are sent verbatim in the Flags property.
const (
	FlagRead                 = "read"
	FlagWrite                = "write"
	FlagWriteWithoutResponse = "write-without-response"
	FlagNotify               = "notify"
	FlagIndicate             = "indicate"
	FlagEncryptRead          = "encrypt-read"
	FlagEncryptWrite         = "encrypt-write"
)

var knownFlags = map[string]struct{}{
	FlagRead:                 {},
	FlagWrite:                {},
	FlagWriteWithoutResponse: {},
	FlagNotify:               {},
	FlagIndicate:             {},
	FlagEncryptRead:          {},
	FlagEncryptWrite:         {},
}

// Flags is an attribute's ordered permission-flag set. Order is the declared
// order; construction dedupes, so projection is stable and duplicate-free.
type Flags []string

// NewFlags validates the given flags and returns them as an ordered,
// deduplicated set. Unknown flag names are rejected.
func NewFlags(flags ...string) (Flags, error) {
	result := make(Flags, 0, len(flags))
	seen := make(map[string]struct{}, len(flags))
	for _, f := range flags {
		f = strings.TrimSpace(strings.ToLower(f))
		if f == "" {
			continue
		}
		if _, ok := knownFlags[f]; !ok {
			return nil, fmt.Errorf("unknown flag %q", f)
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		result = append(result, f)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("at least one flag is required")
	}
	return result, nil
}

// ParseFlags parses a comma-separated flag list such as "read,write,notify".
func ParseFlags(s string) (Flags, error) {
	return NewFlags(strings.Split(s, ",")...)
}

// Has reports whether the set contains the given flag.
func (f Flags) Has(flag string) bool {
	for _, v := range f {
		if v == flag {
			return true
		}
	}
	return false
}

// Project returns the flag set as a fresh string slice in declared order,
// suitable for the Flags property value.
func (f Flags) Project() []string {
	out := make([]string, len(f))
	copy(out, f)
	return out
}

// String renders the set in the comma-separated input form.
func (f Flags) String() string {
	return strings.Join(f, ",")
}
