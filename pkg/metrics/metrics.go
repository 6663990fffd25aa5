// Package metrics provides observability primitives for the HKDS/DUKPT key-distribution library.
//
// The package includes:
//   - Counter and gauge metrics held in Collector, and the Histogram type
//   - Prometheus-compatible metrics export
//   - OpenTelemetry tracing support
//   - Structured logging with levels
//   - Health check functionality
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates metrics from device transactions and token exchanges.
type Collector struct {
	// Transaction metrics
	transactionsActive   atomic.Uint64
	transactionsTotal    atomic.Uint64
	transactionsFailed   atomic.Uint64
	tokenExchangeLatency *Histogram

	// Traffic metrics
	bytesSent     atomic.Uint64
	bytesReceived atomic.Uint64
	packetsSent   atomic.Uint64
	packetsRecv   atomic.Uint64

	// Security metrics
	counterReuseBlocked   atomic.Uint64
	authFailures          atomic.Uint64
	cacheRefillsInitiated atomic.Uint64
	cacheRefillsCompleted atomic.Uint64
	cacheRefillsFailed    atomic.Uint64

	// Error metrics
	encryptErrors  atomic.Uint64
	decryptErrors  atomic.Uint64
	protocolErrors atomic.Uint64

	// Performance histograms
	encryptLatency *Histogram
	decryptLatency *Histogram

	// Creation time for uptime tracking
	createdAt time.Time

	// Labels for this collector instance
	labels Labels
}

// Labels represents key-value pairs for metric labeling.
type Labels map[string]string

// NewCollector creates a new metrics collector.
func NewCollector(labels Labels) *Collector {
	if labels == nil {
		labels = make(Labels)
	}

	return &Collector{
		tokenExchangeLatency: NewHistogram(TokenExchangeLatencyBuckets),
		encryptLatency:       NewHistogram(LatencyBuckets),
		decryptLatency:       NewHistogram(LatencyBuckets),
		createdAt:            time.Now(),
		labels:               labels,
	}
}

// Default bucket configurations for histograms.
var (
	// TokenExchangeLatencyBuckets for token exchange duration (milliseconds).
	TokenExchangeLatencyBuckets = []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

	// LatencyBuckets for encrypt/decrypt operations (microseconds).
	LatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}
)

// --- Transaction Metrics ---

// TransactionStarted increments active and total transaction counters.
func (c *Collector) TransactionStarted() {
	c.transactionsActive.Add(1)
	c.transactionsTotal.Add(1)
}

// TransactionEnded decrements active transaction counter.
func (c *Collector) TransactionEnded() {
	for {
		current := c.transactionsActive.Load()
		if current == 0 {
			return
		}
		if c.transactionsActive.CompareAndSwap(current, current-1) {
			return
		}
	}
}

// TransactionFailed records a failed transaction attempt.
func (c *Collector) TransactionFailed() {
	c.transactionsFailed.Add(1)
}

// RecordTokenExchangeLatency records a token exchange duration.
func (c *Collector) RecordTokenExchangeLatency(d time.Duration) {
	c.tokenExchangeLatency.Observe(float64(d.Milliseconds()))
}

// --- Traffic Metrics ---

// RecordBytesSent adds to the bytes sent counter.
func (c *Collector) RecordBytesSent(n uint64) {
	c.bytesSent.Add(n)
}

// RecordBytesReceived adds to the bytes received counter.
func (c *Collector) RecordBytesReceived(n uint64) {
	c.bytesReceived.Add(n)
}

// RecordPacketSent increments packets sent counter.
func (c *Collector) RecordPacketSent() {
	c.packetsSent.Add(1)
}

// RecordPacketReceived increments packets received counter.
func (c *Collector) RecordPacketReceived() {
	c.packetsRecv.Add(1)
}

// --- Security Metrics ---

// RecordCounterReuseBlocked increments the counter-reuse attack counter.
func (c *Collector) RecordCounterReuseBlocked() {
	c.counterReuseBlocked.Add(1)
}

// RecordAuthFailure increments the authentication failure counter.
func (c *Collector) RecordAuthFailure() {
	c.authFailures.Add(1)
}

// RecordCacheRefillInitiated records a cache-refill initiation.
func (c *Collector) RecordCacheRefillInitiated() {
	c.cacheRefillsInitiated.Add(1)
}

// RecordCacheRefillCompleted records a successful cache-refill completion.
func (c *Collector) RecordCacheRefillCompleted() {
	c.cacheRefillsCompleted.Add(1)
}

// RecordCacheRefillFailed records a failed cache-refill attempt.
func (c *Collector) RecordCacheRefillFailed() {
	c.cacheRefillsFailed.Add(1)
}

// --- Error Metrics ---

// RecordEncryptError increments encryption error counter.
func (c *Collector) RecordEncryptError() {
	c.encryptErrors.Add(1)
}

// RecordDecryptError increments decryption error counter.
func (c *Collector) RecordDecryptError() {
	c.decryptErrors.Add(1)
}

// RecordProtocolError increments protocol error counter.
func (c *Collector) RecordProtocolError() {
	c.protocolErrors.Add(1)
}

// --- Performance Metrics ---

// RecordEncryptLatency records encryption operation latency.
func (c *Collector) RecordEncryptLatency(d time.Duration) {
	c.encryptLatency.Observe(float64(d.Microseconds()))
}

// RecordDecryptLatency records decryption operation latency.
func (c *Collector) RecordDecryptLatency(d time.Duration) {
	c.decryptLatency.Observe(float64(d.Microseconds()))
}

// --- Snapshot ---

// Snapshot returns a point-in-time snapshot of all metrics.
type Snapshot struct {
	// Timestamp of the snapshot
	Timestamp time.Time

	// Uptime since collector creation
	Uptime time.Duration

	// Transaction metrics
	TransactionsActive uint64
	TransactionsTotal  uint64
	TransactionsFailed uint64

	// Traffic metrics
	BytesSent     uint64
	BytesReceived uint64
	PacketsSent   uint64
	PacketsRecv   uint64

	// Security metrics
	CounterReuseBlocked   uint64
	AuthFailures          uint64
	CacheRefillsInitiated uint64
	CacheRefillsCompleted uint64
	CacheRefillsFailed    uint64

	// Error metrics
	EncryptErrors  uint64
	DecryptErrors  uint64
	ProtocolErrors uint64

	// Histogram summaries
	TokenExchangeLatency HistogramSummary
	EncryptLatency       HistogramSummary
	DecryptLatency       HistogramSummary

	// Labels
	Labels Labels
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Timestamp:             time.Now(),
		Uptime:                time.Since(c.createdAt),
		TransactionsActive:    c.transactionsActive.Load(),
		TransactionsTotal:     c.transactionsTotal.Load(),
		TransactionsFailed:    c.transactionsFailed.Load(),
		BytesSent:             c.bytesSent.Load(),
		BytesReceived:         c.bytesReceived.Load(),
		PacketsSent:           c.packetsSent.Load(),
		PacketsRecv:           c.packetsRecv.Load(),
		CounterReuseBlocked:   c.counterReuseBlocked.Load(),
		AuthFailures:          c.authFailures.Load(),
		CacheRefillsInitiated: c.cacheRefillsInitiated.Load(),
		CacheRefillsCompleted: c.cacheRefillsCompleted.Load(),
		CacheRefillsFailed:    c.cacheRefillsFailed.Load(),
		EncryptErrors:         c.encryptErrors.Load(),
		DecryptErrors:         c.decryptErrors.Load(),
		ProtocolErrors:        c.protocolErrors.Load(),
		TokenExchangeLatency:  c.tokenExchangeLatency.Summary(),
		EncryptLatency:        c.encryptLatency.Summary(),
		DecryptLatency:        c.decryptLatency.Summary(),
		Labels:                c.labels,
	}
}

// Reset clears all metrics (useful for testing).
func (c *Collector) Reset() {
	c.transactionsActive.Store(0)
	c.transactionsTotal.Store(0)
	c.transactionsFailed.Store(0)
	c.bytesSent.Store(0)
	c.bytesReceived.Store(0)
	c.packetsSent.Store(0)
	c.packetsRecv.Store(0)
	c.counterReuseBlocked.Store(0)
	c.authFailures.Store(0)
	c.cacheRefillsInitiated.Store(0)
	c.cacheRefillsCompleted.Store(0)
	c.cacheRefillsFailed.Store(0)
	c.encryptErrors.Store(0)
	c.decryptErrors.Store(0)
	c.protocolErrors.Store(0)
	c.tokenExchangeLatency.Reset()
	c.encryptLatency.Reset()
	c.decryptLatency.Reset()
	c.createdAt = time.Now()
}

// --- Global Collector ---

var (
	globalCollector     *Collector
	globalCollectorOnce sync.Once
)

// Global returns the global metrics collector.
// Creates one with default settings if not already initialized.
func Global() *Collector {
	globalCollectorOnce.Do(func() {
		globalCollector = NewCollector(Labels{"instance": "default"})
	})
	return globalCollector
}

// SetGlobal sets the global metrics collector.
// Should be called during initialization before any metrics are recorded.
func SetGlobal(c *Collector) {
	// Consume the Once so a later Global() call does not replace c.
	globalCollectorOnce.Do(func() {})
	globalCollector = c
}
