package bluez

import (
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"

	"github.com/srg/blip/internal/gatt"
)

// introspectNode renders one attribute node's introspection tree: its GATT
// interface with the property and method surface, plus the standard
// Introspectable and Properties interfaces.
func introspectNode(a gatt.Attribute) *introspect.Node {
	iface := introspect.Interface{
		Name:       a.Interface(),
		Methods:    methodSignatures(a.Interface()),
		Properties: propertySignatures(a.Table()),
	}
	return &introspect.Node{
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			iface,
		},
	}
}

// rootIntrospection renders the application root, which carries only the
// ObjectManager surface BlueZ reads the attribute tree through.
func rootIntrospection() *introspect.Node {
	return &introspect.Node{
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name: objectManagerInterface,
				Methods: []introspect.Method{{
					Name: "GetManagedObjects",
					Args: []introspect.Arg{
						{Name: "objects", Type: "a{oa{sa{sv}}}", Direction: "out"},
					},
				}},
			},
		},
	}
}

func propertySignatures(table *gatt.PropertyTable) []introspect.Property {
	names := table.Names()
	props := make([]introspect.Property, 0, len(names))
	for _, name := range names {
		entry, ok := table.Lookup(name)
		if !ok {
			continue
		}
		access := "read"
		if entry.Set != nil {
			access = "readwrite"
		}
		props = append(props, introspect.Property{
			Name:   entry.Name,
			Type:   entry.Signature,
			Access: access,
		})
	}
	return props
}

func methodSignatures(iface string) []introspect.Method {
	readValue := introspect.Method{
		Name: "ReadValue",
		Args: []introspect.Arg{
			{Name: "options", Type: "a{sv}", Direction: "in"},
			{Name: "value", Type: "ay", Direction: "out"},
		},
	}
	writeValue := introspect.Method{
		Name: "WriteValue",
		Args: []introspect.Arg{
			{Name: "value", Type: "ay", Direction: "in"},
			{Name: "options", Type: "a{sv}", Direction: "in"},
		},
	}

	switch iface {
	case gatt.CharacteristicInterface:
		return []introspect.Method{
			readValue,
			writeValue,
			{Name: "StartNotify"},
			{Name: "StopNotify"},
		}
	case gatt.DescriptorInterface:
		return []introspect.Method{readValue, writeValue}
	default:
		return nil
	}
}
