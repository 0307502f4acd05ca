package profile

import "sort"

// Client Characteristic Configuration lookalike used by the heart-rate demo.
const heartRateCCCDUUID = "82602902-1a54-426b-9e36-e84c238bc669"

var builtins = map[string]*Profile{
	"heart-rate": heartRate(),
}

// Builtin returns a built-in profile by name.
func Builtin(name string) (*Profile, bool) {
	p, ok := builtins[name]
	return p, ok
}

// BuiltinNames lists built-in profile names, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// heartRate is the demo Heart Rate service: a notifying measurement
// characteristic with its client configuration descriptor, the sensor
// location, and the control point.
func heartRate() *Profile {
	return &Profile{
		Name: "heart-rate",
		Services: []Service{{
			UUID: "180d",
			Characteristics: []Characteristic{
				{
					UUID:        "2a37",
					Flags:       "read,notify",
					Value:       "00",
					NotifyValue: "33 34 35",
					Descriptors: []Descriptor{{
						UUID:  heartRateCCCDUUID,
						Flags: "read,write",
						Value: "00",
					}},
				},
				{
					UUID:  "2a38",
					Flags: "read",
					Value: "00",
				},
				{
					UUID:  "2a39",
					Flags: "write",
					Value: "00",
				},
			},
		}},
	}
}
