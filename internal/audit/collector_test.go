package audit

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/srg/blip/internal/gatt"
)

// CollectorTestSuite provides tests for the audit Collector
type CollectorTestSuite struct {
	suite.Suite
}

// waitForState waits for the collector to reach the expected state with active polling
func (suite *CollectorTestSuite) waitForState(collector *Collector, expectedState uint32, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if collector.GetState() == expectedState {
			return true
		}
		time.Sleep(1 * time.Millisecond)
	}
	return false
}

func makeRecord(i int) Record {
	return Record{
		Time: time.Now(),
		Path: dbus.ObjectPath(fmt.Sprintf("/service1/characteristic%d", i+2)),
		UUID: "00002a39-0000-1000-8000-00805f9b34fb",
		Data: []byte{byte(i)},
	}
}

// TestNewCollector tests the constructor with various input test-scenarios
func (suite *CollectorTestSuite) TestNewCollector() {
	// GOAL: Verify the constructor validates parameters and initializes correctly
	//
	// TEST SCENARIO: Call NewCollector with various parameters → validate returns or errors
	suite.Run("ValidParameters", func() {
		ch := make(chan Record, 1)
		defer close(ch)

		collector, err := NewCollector(ch, 100, nil)
		suite.NoError(err)
		suite.NotNil(collector)
		suite.GreaterOrEqual(collector.buffer.Cap(), uint32(100)) // buffer may be power-of-2 rounded
		suite.NotNil(collector.onError)
	})

	suite.Run("CustomErrorHandler", func() {
		ch := make(chan Record, 1)
		defer close(ch)

		var capturedError error
		collector, err := NewCollector(ch, 50, func(err error) {
			capturedError = err
		})
		suite.NoError(err)

		testErr := errors.New("test error")
		collector.onError(testErr)
		suite.Equal(testErr, capturedError)
	})

	suite.Run("NilChannel", func() {
		collector, err := NewCollector(nil, 100, nil)
		suite.Error(err)
		suite.Nil(collector)
		suite.Contains(err.Error(), "record channel cannot be nil")
	})

	suite.Run("ZeroBufferSize", func() {
		ch := make(chan Record, 1)
		defer close(ch)

		collector, err := NewCollector(ch, 0, nil)
		suite.Error(err)
		suite.Nil(collector)
		suite.Contains(err.Error(), "buffer size must be > 0")
	})

	suite.Run("ExceedsMaxBufferSize", func() {
		ch := make(chan Record, 1)
		defer close(ch)

		collector, err := NewCollector(ch, MaxBufferSize+1, nil)
		suite.Error(err)
		suite.Nil(collector)
		suite.Contains(err.Error(), "exceeds maximum")
	})
}

// TestStartStop tests the basic start/stop lifecycle
func (suite *CollectorTestSuite) TestStartStop() {
	// GOAL: Verify lifecycle state transitions work correctly for start/stop operations
	//
	// TEST SCENARIO: Start collector → verify running state → stop collector → verify stopped state
	suite.Run("StartStop", func() {
		ch := make(chan Record, 10)
		defer close(ch)

		collector, err := NewCollector(ch, 100, nil)
		suite.NoError(err)

		suite.NoError(collector.Start())
		suite.True(suite.waitForState(collector, StateRunning, 100*time.Millisecond))
		suite.NoError(collector.Stop())
	})

	suite.Run("PreventDuplicateStart", func() {
		ch := make(chan Record, 10)
		defer close(ch)

		collector, err := NewCollector(ch, 100, nil)
		suite.NoError(err)

		suite.NoError(collector.Start())

		err = collector.Start()
		suite.Error(err)
		suite.Contains(err.Error(), "already running")

		suite.True(suite.waitForState(collector, StateRunning, 100*time.Millisecond))
		suite.NoError(collector.Stop())
	})

	suite.Run("RestartAfterStop", func() {
		ch := make(chan Record, 10)
		defer close(ch)

		collector, err := NewCollector(ch, 100, nil)
		suite.NoError(err)

		suite.NoError(collector.Start())
		suite.True(suite.waitForState(collector, StateRunning, 100*time.Millisecond))
		suite.NoError(collector.Stop())
		suite.True(suite.waitForState(collector, StateNotRunning, 100*time.Millisecond))

		suite.NoError(collector.Start())
		suite.True(suite.waitForState(collector, StateRunning, 100*time.Millisecond))
		suite.NoError(collector.Stop())
	})

	suite.Run("StopWithoutStart", func() {
		ch := make(chan Record, 10)
		defer close(ch)

		collector, err := NewCollector(ch, 100, nil)
		suite.NoError(err)
		suite.NoError(collector.Stop())
	})
}

// TestDataProcessing tests record draining and metrics
func (suite *CollectorTestSuite) TestDataProcessing() {
	// GOAL: Verify the collector drains records and updates metrics correctly
	//
	// TEST SCENARIO: Send records to running collector → verify records drained → check metrics
	suite.Run("ProcessMultipleRecords", func() {
		ch := make(chan Record, 10)
		defer close(ch)

		collector, err := NewCollector(ch, 100, nil)
		suite.NoError(err)

		suite.NoError(collector.Start())
		defer func() {
			_ = collector.Stop()
		}()

		recordCount := 10
		for i := 0; i < recordCount; i++ {
			ch <- makeRecord(i)
		}

		time.Sleep(100 * time.Millisecond)

		metrics := collector.GetMetrics()
		suite.Equal(int64(recordCount), metrics.RecordsProcessed)
		suite.Equal(int64(0), metrics.ErrorsOccurred)
	})

	suite.Run("ChannelClosure", func() {
		ch := make(chan Record, 10)

		collector, err := NewCollector(ch, 100, nil)
		suite.NoError(err)
		suite.NoError(collector.Start())

		for i := 0; i < 5; i++ {
			ch <- makeRecord(i)
		}
		close(ch)

		// Closure drains the goroutine back to NotRunning
		suite.True(suite.waitForState(collector, StateNotRunning, time.Second))

		metrics := collector.GetMetrics()
		suite.Equal(int64(5), metrics.RecordsProcessed)
		suite.Equal(int64(0), metrics.ErrorsOccurred)
	})

	suite.Run("MetricsReset", func() {
		ch := make(chan Record, 10)
		defer close(ch)

		collector, err := NewCollector(ch, 100, nil)
		suite.NoError(err)

		collector.metrics.IncrementRecordsProcessed()
		collector.metrics.IncrementErrorsOccurred()
		collector.metrics.IncrementRecordsOverwritten(2)

		metrics := collector.GetMetrics()
		suite.Equal(int64(1), metrics.RecordsProcessed)
		suite.Equal(int64(1), metrics.ErrorsOccurred)
		suite.Equal(int64(2), metrics.RecordsOverwritten)

		collector.ResetMetrics()
		metrics = collector.GetMetrics()
		suite.Equal(int64(0), metrics.RecordsProcessed)
		suite.Equal(int64(0), metrics.ErrorsOccurred)
		suite.Equal(int64(0), metrics.RecordsOverwritten)
	})
}

// TestObserver tests the write-observer adapter feeding the collector
func (suite *CollectorTestSuite) TestObserver() {
	// GOAL: Verify the observer feeds write events into the channel without blocking the caller
	//
	// TEST SCENARIO: Invoke observer → verify record fields → overfill channel → verify drop, no block
	suite.Run("RecordFields", func() {
		ch := make(chan Record, 1)

		attr := &observedAttr{
			uuid: "00002a39-0000-1000-8000-00805f9b34fb",
			path: "/service1/characteristic2",
		}
		Observer(ch)(attr, []byte{0xab, 0xcd})

		rec := <-ch
		suite.Equal(attr.path, rec.Path)
		suite.Equal(attr.uuid, rec.UUID)
		suite.Equal([]byte{0xab, 0xcd}, rec.Data)
		suite.WithinDuration(time.Now(), rec.Time, time.Second)
	})

	suite.Run("DropsWhenFull", func() {
		ch := make(chan Record, 1)
		attr := &observedAttr{uuid: "u", path: "/service1"}

		obs := Observer(ch)
		done := make(chan struct{})
		go func() {
			obs(attr, []byte{0x01})
			obs(attr, []byte{0x02}) // channel already full, must not block
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			suite.FailNow("observer blocked on a full channel")
		}

		rec := <-ch
		suite.Equal([]byte{0x01}, rec.Data)
		suite.Empty(ch)
	})
}

// TestConsumerFunctions tests the consumer pattern and record consumption
func (suite *CollectorTestSuite) TestConsumerFunctions() {
	// GOAL: Verify the ConsumerFunc protocol drains buffered records and handles early termination
	//
	// TEST SCENARIO: Fill buffer → apply consumer → verify rendered output or early termination
	suite.Run("PlainTextConsumer", func() {
		ch := make(chan Record, 10)
		defer close(ch)

		collector, err := NewCollector(ch, 100, nil)
		suite.NoError(err)
		suite.NoError(collector.Start())
		defer func() {
			_ = collector.Stop()
		}()

		stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		ch <- Record{Time: stamp, Path: "/service1/characteristic2", UUID: "uuid-a", Data: []byte{0x01, 0x02}}
		ch <- Record{Time: stamp, Path: "/service1/characteristic3", UUID: "uuid-b", Data: nil}

		time.Sleep(100 * time.Millisecond)

		result, err := collector.ConsumePlainText()
		suite.NoError(err)

		lines := strings.Split(strings.TrimRight(result, "\n"), "\n")
		suite.Len(lines, 2)
		suite.Contains(lines[0], "/service1/characteristic2")
		suite.Contains(lines[0], "uuid-a")
		suite.Contains(lines[0], "0102")
		suite.Contains(lines[1], "uuid-b")
		suite.True(strings.HasSuffix(lines[1], " -"), "empty payload renders as a dash")
	})

	suite.Run("ConsumerEarlyTermination", func() {
		ch := make(chan Record, 10)
		defer close(ch)

		collector, err := NewCollector(ch, 100, nil)
		suite.NoError(err)
		suite.NoError(collector.Start())
		defer func() {
			_ = collector.Stop()
		}()

		for i := 0; i < 10; i++ {
			ch <- makeRecord(i)
		}
		time.Sleep(100 * time.Millisecond)

		var recordCount int
		consumer := func(record *Record) (string, error) {
			if record == nil {
				return "completed", nil
			}
			recordCount++
			if recordCount >= 3 {
				return "stopped early", nil
			}
			return "", nil
		}

		result, err := ConsumeRecords(collector, consumer)
		suite.NoError(err)
		suite.Equal("stopped early", result)
		suite.Equal(3, recordCount)
	})

	suite.Run("ConsumerError", func() {
		ch := make(chan Record, 10)
		defer close(ch)

		collector, err := NewCollector(ch, 100, nil)
		suite.NoError(err)
		suite.NoError(collector.Start())
		defer func() {
			_ = collector.Stop()
		}()

		ch <- makeRecord(0)
		time.Sleep(100 * time.Millisecond)

		consumer := func(record *Record) (string, error) {
			if record == nil {
				return "", nil
			}
			return "", errors.New("consumer error")
		}

		result, err := ConsumeRecords(collector, consumer)
		suite.Error(err)
		suite.Contains(err.Error(), "consumer error")
		suite.Empty(result)
	})

	suite.Run("BufferEmpty", func() {
		ch := make(chan Record, 10)
		defer close(ch)

		collector, err := NewCollector(ch, 100, nil)
		suite.NoError(err)

		result, err := collector.ConsumePlainText()
		suite.NoError(err)
		suite.Empty(result)
	})
}

// TestConcurrency tests concurrent access and race conditions
func (suite *CollectorTestSuite) TestConcurrency() {
	// GOAL: Verify thread-safe operations under concurrent access without data races
	//
	// TEST SCENARIO: Run concurrent starts and producers → verify consistent final state
	suite.Run("ConcurrentStartAttempts", func() {
		ch := make(chan Record, 100)
		defer close(ch)

		collector, err := NewCollector(ch, 100, nil)
		suite.NoError(err)

		var wg sync.WaitGroup
		var mu sync.Mutex
		var startErrors []error

		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := collector.Start(); err != nil {
					mu.Lock()
					startErrors = append(startErrors, err)
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		suite.Len(startErrors, 9, "exactly one concurrent start may win")
		suite.NoError(collector.Stop())
	})

	suite.Run("ConcurrentProducers", func() {
		ch := make(chan Record, 100)
		defer close(ch)

		collector, err := NewCollector(ch, 1024, nil)
		suite.NoError(err)
		suite.NoError(collector.Start())
		defer func() {
			_ = collector.Stop()
		}()

		var wg sync.WaitGroup
		producerCount := 10
		recordsPerProducer := 50
		for p := 0; p < producerCount; p++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				for i := 0; i < recordsPerProducer; i++ {
					ch <- makeRecord(p*recordsPerProducer + i)
				}
			}(p)
		}
		wg.Wait()

		deadline := time.Now().Add(2 * time.Second)
		expected := int64(producerCount * recordsPerProducer)
		for time.Now().Before(deadline) {
			if collector.GetMetrics().RecordsProcessed >= expected {
				break
			}
			time.Sleep(5 * time.Millisecond)
		}
		suite.Equal(expected, collector.GetMetrics().RecordsProcessed)
	})
}

// observedAttr is a minimal attribute for observer tests
type observedAttr struct {
	uuid string
	path dbus.ObjectPath
}

func (a *observedAttr) UUID() string               { return a.uuid }
func (a *observedAttr) Path() dbus.ObjectPath      { return a.path }
func (a *observedAttr) Interface() string          { return "com.example.Observed" }
func (a *observedAttr) Table() *gatt.PropertyTable { return nil }

func TestIsZeroValue(t *testing.T) {
	// GOAL: Verify isZeroValue identifies zero values across types used by consumers
	assert.True(t, isZeroValue(""))
	assert.True(t, isZeroValue(0))
	assert.True(t, isZeroValue(false))

	var emptySlice []string
	assert.True(t, isZeroValue(emptySlice))

	assert.False(t, isZeroValue("hello"))
	assert.False(t, isZeroValue(42))
	assert.False(t, isZeroValue([]byte{0x01}))
}

// Run the test suite
func TestCollectorTestSuite(t *testing.T) {
	suite.Run(t, new(CollectorTestSuite))
}
