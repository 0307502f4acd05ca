package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/srg/blip/internal/gatt"
	"github.com/stretchr/testify/suite"
)

// ErrorsTestSuite provides testify/suite for proper test isolation
type ErrorsTestSuite struct {
	suite.Suite
}

func (suite *ErrorsTestSuite) TestFormatUserError() {
	// GOAL: Verify error rendering strips D-Bus noise while keeping the cause
	//
	// TEST SCENARIO: Various error shapes → single clean line each

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "plain error passes through",
			err:      errors.New("profile declares no services"),
			expected: "profile declares no services",
		},
		{
			name:     "attribute error leads with the message",
			err:      gatt.NotPermittedf("property %q is read-only", "UUID"),
			expected: `property "UUID" is read-only (org.bluez.Error.NotPermitted)`,
		},
		{
			name:     "wrapped attribute error is unwrapped",
			err:      fmt.Errorf("serving profile: %w", gatt.InvalidArgumentsf("expected byte array")),
			expected: "expected byte array (org.bluez.Error.InvalidArguments)",
		},
		{
			name:     "bare attribute error keeps only the name",
			err:      gatt.ErrNotSupported,
			expected: "org.bluez.Error.NotSupported",
		},
		{
			name:     "missing adapter gets a hint",
			err:      ErrNoAdapter,
			expected: "no GATT manager found on the bus - is bluetoothd running?",
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.Assert().Equal(tt.expected, FormatUserError(tt.err), "rendered error MUST match")
		})
	}
}

func (suite *ErrorsTestSuite) TestFormatVersion() {
	// GOAL: Verify version formatting adds 'v' prefix only for numeric versions
	//
	// TEST SCENARIO: Various version strings → correct prefix behavior

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "numeric version gets prefix", input: "1.2.3", expected: "v1.2.3"},
		{name: "prefixed version unchanged", input: "v1.2.3", expected: "v1.2.3"},
		{name: "dev build unchanged", input: "dev", expected: "dev"},
		{name: "empty string unchanged", input: "", expected: ""},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.Assert().Equal(tt.expected, formatVersion(tt.input), "formatted version MUST match")
		})
	}
}

// TestErrorsSuite runs the test suite
func TestErrorsSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}
