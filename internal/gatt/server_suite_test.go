//go:build test

package gatt_test

import (
	"time"

	"github.com/srg/blip/internal/audit"
	"github.com/srg/blip/internal/bledb"
	"github.com/srg/blip/internal/gatt"
	"github.com/srg/blip/internal/profile"
	"github.com/srg/blip/internal/testutils"
	"github.com/stretchr/testify/suite"
)

// ServerTestSuite wires a registry, a fake transport and a running audit
// collector into the same assembly the serve command builds, minus the bus
// connection.
type ServerTestSuite struct {
	suite.Suite

	bus       *testutils.FakeBus
	reg       *gatt.Registry
	records   chan audit.Record
	collector *audit.Collector
}

// SetupTest registers the built-in heart-rate profile on a fresh registry
// with write auditing enabled.
func (suite *ServerTestSuite) SetupTest() {
	prof, ok := profile.Builtin("heart-rate")
	suite.Require().True(ok, "heart-rate built-in MUST exist")
	services, err := prof.Build()
	suite.Require().NoError(err, "built-in profile MUST build")

	suite.bus = testutils.NewFakeBus()
	suite.records = make(chan audit.Record, 16)
	suite.collector, err = audit.NewCollector(suite.records, 64, func(err error) {
		suite.T().Errorf("collector failure: %v", err)
	})
	suite.Require().NoError(err, "MUST create collector")
	suite.Require().NoError(suite.collector.Start(), "MUST start collector")

	suite.reg = gatt.NewRegistry(gatt.RegistryOptions{
		Transport: suite.bus,
		Notifier:  suite.bus,
		Observer:  audit.Observer(suite.records),
		Logger:    testutils.NewTestHelper(suite.T()).Logger,
	})
	suite.Require().NoError(suite.reg.RegisterProfile(services), "MUST register profile")
}

// SetupSubTest starts each scenario step with an empty trail and zeroed
// counters. Steps that produce records wait for them before returning, so
// draining here cannot race the collector.
func (suite *ServerTestSuite) SetupSubTest() {
	_, err := suite.collector.ConsumePlainText()
	suite.Require().NoError(err)
	suite.collector.ResetMetrics()
}

func (suite *ServerTestSuite) TearDownTest() {
	suite.reg.UnregisterAll()
	suite.Require().NoError(suite.collector.Stop(), "MUST stop collector")
}

// characteristic finds a registered characteristic by UUID in any accepted
// form.
func (suite *ServerTestSuite) characteristic(uuid string) *gatt.Characteristic {
	want := bledb.NormalizeUUID(uuid)
	for _, svc := range suite.reg.Services() {
		for _, chr := range svc.Characteristics() {
			if bledb.NormalizeUUID(chr.UUID()) == want {
				return chr
			}
		}
	}
	suite.Require().FailNow("characteristic not registered", "uuid=%s", uuid)
	return nil
}

// descriptor finds a registered descriptor by UUID in any accepted form.
func (suite *ServerTestSuite) descriptor(uuid string) *gatt.Descriptor {
	want := bledb.NormalizeUUID(uuid)
	for _, svc := range suite.reg.Services() {
		for _, chr := range svc.Characteristics() {
			for _, desc := range chr.Descriptors() {
				if bledb.NormalizeUUID(desc.UUID()) == want {
					return desc
				}
			}
		}
	}
	suite.Require().FailNow("descriptor not registered", "uuid=%s", uuid)
	return nil
}

// waitForRecords polls until the collector has accepted at least n records,
// bridging the asynchronous drain goroutine.
func (suite *ServerTestSuite) waitForRecords(n int64, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if suite.collector.GetMetrics().RecordsProcessed >= n {
			return true
		}
		time.Sleep(1 * time.Millisecond)
	}
	return suite.collector.GetMetrics().RecordsProcessed >= n
}

// collectRecords drains the audit trail into a slice, oldest first.
func (suite *ServerTestSuite) collectRecords() []audit.Record {
	var out []audit.Record
	records, err := audit.ConsumeRecords(suite.collector, func(rec *audit.Record) ([]audit.Record, error) {
		if rec == nil {
			return out, nil
		}
		out = append(out, *rec)
		return nil, nil
	})
	suite.Require().NoError(err, "MUST drain trail")
	return records
}
