// Package profile loads GATT service declarations from YAML and turns them
// into registry configurations. A small set of built-in profiles ships with
// the binary for quick demos.
package profile

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/srg/blip/internal/gatt"
)

// Descriptor declares one descriptor of a characteristic.
type Descriptor struct {
	UUID  string `json:"uuid" yaml:"uuid"`
	Flags string `json:"flags" yaml:"flags"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// Characteristic declares one characteristic of a service. Values are hex
// strings; separators and 0x prefixes are tolerated.
type Characteristic struct {
	UUID  string `json:"uuid" yaml:"uuid"`
	Flags string `json:"flags" yaml:"flags"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`

	// NotifyValue is the payload published when a subscriber starts
	// notification. Requires the notify flag.
	NotifyValue string `json:"notify_value,omitempty" yaml:"notify_value,omitempty"`

	Descriptors []Descriptor `json:"descriptors,omitempty" yaml:"descriptors,omitempty"`
}

// Service declares one service tree.
type Service struct {
	UUID string `json:"uuid" yaml:"uuid"`

	// Primary defaults to true when omitted.
	Primary *bool `json:"primary,omitempty" yaml:"primary,omitempty"`

	Characteristics []Characteristic `json:"characteristics" yaml:"characteristics"`
}

// Profile is a named set of service declarations.
type Profile struct {
	Name     string    `json:"name,omitempty" yaml:"name,omitempty"`
	Services []Service `json:"services" yaml:"services"`
}

// Load reads and parses a profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return p, nil
}

// Parse parses YAML profile content.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	return &p, nil
}

// Build validates the profile and expands it into registry service
// configurations. UUIDs come out in their canonical 128-bit dashed form,
// so the configs read back exactly as the registry will expose them.
func (p *Profile) Build() ([]gatt.ServiceConfig, error) {
	if len(p.Services) == 0 {
		return nil, fmt.Errorf("profile declares no services")
	}

	out := make([]gatt.ServiceConfig, 0, len(p.Services))
	for _, svc := range p.Services {
		canonical, err := gatt.ValidateUUID(svc.UUID)
		if err != nil {
			return nil, fmt.Errorf("service %q: %w", svc.UUID, err)
		}
		cfg := gatt.ServiceConfig{
			UUID:    canonical[0],
			Primary: svc.Primary == nil || *svc.Primary,
		}
		for _, chr := range svc.Characteristics {
			ccfg, err := chr.build()
			if err != nil {
				return nil, fmt.Errorf("service %q characteristic %q: %w", svc.UUID, chr.UUID, err)
			}
			cfg.Characteristics = append(cfg.Characteristics, ccfg)
		}
		out = append(out, cfg)
	}
	return out, nil
}

func (c *Characteristic) build() (gatt.CharacteristicConfig, error) {
	var zero gatt.CharacteristicConfig

	canonical, err := gatt.ValidateUUID(c.UUID)
	if err != nil {
		return zero, err
	}
	flags, err := gatt.ParseFlags(c.Flags)
	if err != nil {
		return zero, err
	}
	value, err := parseHexValue(c.Value)
	if err != nil {
		return zero, fmt.Errorf("invalid value: %w", err)
	}
	notify, err := parseHexValue(c.NotifyValue)
	if err != nil {
		return zero, fmt.Errorf("invalid notify_value: %w", err)
	}
	if len(notify) > 0 && !flags.Has(gatt.FlagNotify) {
		return zero, fmt.Errorf("notify_value requires the notify flag")
	}

	cfg := gatt.CharacteristicConfig{
		UUID:        canonical[0],
		Value:       value,
		Flags:       flags,
		NotifyValue: notify,
	}
	for _, desc := range c.Descriptors {
		dcfg, err := desc.build()
		if err != nil {
			return zero, fmt.Errorf("descriptor %q: %w", desc.UUID, err)
		}
		cfg.Descriptors = append(cfg.Descriptors, dcfg)
	}
	return cfg, nil
}

func (d *Descriptor) build() (gatt.DescriptorConfig, error) {
	var zero gatt.DescriptorConfig

	canonical, err := gatt.ValidateUUID(d.UUID)
	if err != nil {
		return zero, err
	}
	flags, err := gatt.ParseFlags(d.Flags)
	if err != nil {
		return zero, err
	}
	value, err := parseHexValue(d.Value)
	if err != nil {
		return zero, fmt.Errorf("invalid value: %w", err)
	}
	return gatt.DescriptorConfig{
		UUID:  canonical[0],
		Value: value,
		Flags: flags,
	}, nil
}

// parseHexValue converts a hex string to bytes, tolerating common
// separators. Empty input yields an empty value.
func parseHexValue(s string) ([]byte, error) {
	cleaned := strings.ReplaceAll(s, " ", "")
	cleaned = strings.ReplaceAll(cleaned, ":", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	cleaned = strings.ReplaceAll(cleaned, "0x", "")
	if cleaned == "" {
		return nil, nil
	}

	data, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data: %w", err)
	}
	return data, nil
}
