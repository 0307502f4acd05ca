// Package audit gathers attribute write events into a bounded in-memory
// trail that can be drained and rendered on demand, e.g. on operator signal.
package audit

import (
	"context"
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/hedzr/go-ringbuf/v2/mpmc"

	"github.com/srg/blip/internal/gatt"
	"github.com/srg/blip/internal/groutine"
)

// Record is one observed value replacement.
type Record struct {
	Time time.Time       `json:"time"`
	Path dbus.ObjectPath `json:"path"`
	UUID string          `json:"uuid"`
	Data []byte          `json:"data"`
}

// Metrics provides lock-free counters for a Collector.
// All fields use atomic operations for thread-safe access.
type Metrics struct {
	RecordsProcessed   int64 // records accepted into the trail
	ErrorsOccurred     int64 // unexpected buffer errors
	RecordsOverwritten int64 // records lost to buffer overflow
}

// IncrementRecordsProcessed atomically increments the records processed counter.
func (m *Metrics) IncrementRecordsProcessed() {
	atomic.AddInt64(&m.RecordsProcessed, 1)
}

// IncrementErrorsOccurred atomically increments the error counter.
func (m *Metrics) IncrementErrorsOccurred() {
	atomic.AddInt64(&m.ErrorsOccurred, 1)
}

// IncrementRecordsOverwritten atomically adds to the overwritten records counter.
func (m *Metrics) IncrementRecordsOverwritten(count uint32) {
	atomic.AddInt64(&m.RecordsOverwritten, int64(count))
}

// GetRecordsProcessed atomically reads the records processed counter.
func (m *Metrics) GetRecordsProcessed() int64 {
	return atomic.LoadInt64(&m.RecordsProcessed)
}

// GetErrorsOccurred atomically reads the error counter.
func (m *Metrics) GetErrorsOccurred() int64 {
	return atomic.LoadInt64(&m.ErrorsOccurred)
}

// GetRecordsOverwritten atomically reads the overwritten records counter.
func (m *Metrics) GetRecordsOverwritten() int64 {
	return atomic.LoadInt64(&m.RecordsOverwritten)
}

// Reset resets all counters to zero.
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.RecordsProcessed, 0)
	atomic.StoreInt64(&m.ErrorsOccurred, 0)
	atomic.StoreInt64(&m.RecordsOverwritten, 0)
}

// Collector drains write records from a channel into a ring buffer and
// exposes them to a pluggable ConsumerFunc with metrics tracking.
//
// All methods are thread-safe.
type Collector struct {
	records <-chan Record
	buffer  mpmc.RichOverlappedRingBuffer[Record]
	stop    chan struct{}
	done    chan struct{} // signals when the drain goroutine has stopped
	onError func(error)   // error handler, defaults to panic if nil
	metrics Metrics
	state   uint32 // atomic state using the State* constants
}

const (
	StateNotRunning uint32 = iota // not running, ready to start
	StateRunning                  // draining records
	StateStopping                 // shutdown in progress

	// MaxBufferSize guards against accidental misconfiguration.
	MaxBufferSize uint32 = 1024 * 1024
)

// NewCollector creates a collector draining ch into a ring buffer of
// bufferSize records. onError is called on unexpected errors; if nil, the
// collector panics instead.
func NewCollector(ch <-chan Record, bufferSize uint32, onError func(error)) (*Collector, error) {
	if ch == nil {
		return nil, fmt.Errorf("record channel cannot be nil")
	}

	if bufferSize == 0 {
		return nil, fmt.Errorf("buffer size must be > 0")
	}

	if bufferSize > MaxBufferSize {
		return nil, fmt.Errorf("buffer size %d exceeds maximum %d", bufferSize, MaxBufferSize)
	}

	if onError == nil {
		onError = func(err error) {
			panic(fmt.Sprintf("audit.Collector: %v", err))
		}
	}

	return &Collector{
		records: ch,
		buffer:  mpmc.NewOverlappedRingBuffer[Record](bufferSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		onError: onError,
		state:   StateNotRunning,
	}, nil
}

// Observer adapts a record channel into a write observer suitable for the
// attribute registry. The send never blocks the dispatch path: when the
// channel is full the record is dropped.
func Observer(ch chan<- Record) gatt.WriteObserver {
	return func(a gatt.Attribute, data []byte) {
		rec := Record{
			Time: time.Now(),
			Path: a.Path(),
			UUID: a.UUID(),
			Data: data,
		}
		select {
		case ch <- rec:
		default:
		}
	}
}

// Start begins draining records.
// Blocks until the drain goroutine is running or times out.
// Returns an error if already started or if startup takes too long.
func (c *Collector) Start() error {
	if !atomic.CompareAndSwapUint32(&c.state, StateNotRunning, StateRunning) {
		currentState := atomic.LoadUint32(&c.state)
		switch currentState {
		case StateRunning:
			return fmt.Errorf("collector is already running")
		case StateStopping:
			return fmt.Errorf("collector is stopping, wait for it to finish")
		default:
			return fmt.Errorf("collector is in unknown state %d", currentState)
		}
	}

	// Fresh channels per start cycle so restart cannot close a closed channel.
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	// Buffered so the goroutine never blocks on the startup signal even if
	// the timeout below fires first.
	started := make(chan struct{}, 1)

	groutine.Go(context.Background(), "audit-drain", func(_ context.Context) {
		started <- struct{}{}

		defer func() {
			close(c.done)
			atomic.StoreUint32(&c.state, StateNotRunning)
		}()
		for {
			select {
			case <-c.stop:
				return
			case rec, ok := <-c.records:
				if !ok {
					return // channel closed
				}
				// The ring handles overflow by dropping the oldest record.
				if overwrites, err := c.buffer.EnqueueM(rec); err != nil {
					c.metrics.IncrementErrorsOccurred()
					c.onError(fmt.Errorf("unexpected buffer.Enqueue error: %w", err))
					return
				} else {
					c.metrics.IncrementRecordsOverwritten(overwrites)
					c.metrics.IncrementRecordsProcessed()
				}
			}
		}
	})

	select {
	case <-started:
		return nil
	case <-time.After(1 * time.Second):
		// Timeout: stop the goroutine and wait for clean exit.
		close(c.stop)
		<-c.done
		return fmt.Errorf("collector failed to start within 1s timeout")
	}
}

// Stop stops draining.
// Returns an error if stopping takes longer than expected.
func (c *Collector) Stop() error {
	if !atomic.CompareAndSwapUint32(&c.state, StateRunning, StateStopping) {
		currentState := atomic.LoadUint32(&c.state)
		switch currentState {
		case StateNotRunning:
			return nil // already stopped
		case StateStopping:
			break // already stopping, wait for completion
		default:
			return fmt.Errorf("collector is in unknown state %d", currentState)
		}
	} else {
		close(c.stop)
	}

	// Wait for the goroutine to finish, symmetric with Start's timeout handling.
	select {
	case <-c.done:
		return nil
	case <-time.After(5 * time.Second):
		// Stop was already signalled; block until the goroutine actually
		// exits so state stays consistent.
		<-c.done
		return fmt.Errorf("stop completed but exceeded 5s timeout (possible slow shutdown or deadlock)")
	}
}

// GetMetrics returns a copy of the current metrics.
func (c *Collector) GetMetrics() Metrics {
	return Metrics{
		RecordsProcessed:   c.metrics.GetRecordsProcessed(),
		ErrorsOccurred:     c.metrics.GetErrorsOccurred(),
		RecordsOverwritten: c.metrics.GetRecordsOverwritten(),
	}
}

// ResetMetrics atomically resets all metric counters.
func (c *Collector) ResetMetrics() {
	c.metrics.Reset()
}

// GetState returns the current lifecycle state of the collector.
func (c *Collector) GetState() uint32 {
	return atomic.LoadUint32(&c.state)
}

// ConsumerFunc consumes drained records.
//
// Protocol:
//   - If record != nil: process the record.
//     Return (zero, nil) to continue with more records.
//     Return (result, nil) to stop early with a final result.
//   - If record == nil: no more records will be provided.
//     Return the final accumulated result.
//
// The function manages any internal state or buffers needed across calls.
// For a ready-to-use implementation, see PlainTextConsumerFunc.
type ConsumerFunc[T any] func(record *Record) (T, error)

// PlainTextConsumerFunc returns a ConsumerFunc that renders each record as
// one "<time> <path> <uuid> <hex payload>" line.
func PlainTextConsumerFunc() ConsumerFunc[string] {
	var buffer strings.Builder
	return func(record *Record) (string, error) {
		if record == nil {
			return buffer.String(), nil
		}
		payload := "-"
		if len(record.Data) > 0 {
			payload = hex.EncodeToString(record.Data)
		}
		fmt.Fprintf(&buffer, "%s %s %s %s\n",
			record.Time.Format(time.RFC3339Nano), record.Path, record.UUID, payload)
		return "", nil
	}
}

// ConsumeRecords drains all buffered records through the given ConsumerFunc.
//
// The consumer decides when to stop and what result to return. See
// ConsumerFunc for the processing protocol.
func ConsumeRecords[T any](c *Collector, consumer ConsumerFunc[T]) (T, error) {
	for !c.buffer.IsEmpty() {
		rec, err := c.buffer.Dequeue()
		if err != nil {
			var zero T
			return zero, fmt.Errorf("buffer dequeue error: %w", err)
		}

		result, err := consumer(&rec)
		if err != nil {
			return result, err
		}

		// A non-zero result means the consumer wants to stop early.
		if !isZeroValue(result) {
			return result, nil
		}
	}

	// No more data, ask the consumer for its final result.
	return consumer(nil)
}

// isZeroValue checks if a value is the zero value for its type.
func isZeroValue[T any](v T) bool {
	var zero T
	return reflect.DeepEqual(v, zero)
}

// ConsumePlainText drains the trail and returns it as newline-separated
// plain-text lines.
func (c *Collector) ConsumePlainText() (string, error) {
	return ConsumeRecords(c, PlainTextConsumerFunc())
}
