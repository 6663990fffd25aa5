package metrics

import (
	"context"
	"encoding/hex"
	"time"
)

// TransactionObserver provides observability hooks for device transaction operations.
// Attach this to a device transaction stream to automatically record metrics and traces.
type TransactionObserver struct {
	collector *Collector
	tracer    Tracer
	logger    *Logger
	deviceID  string
	role      string
}

// TransactionObserverConfig configures a transaction observer.
type TransactionObserverConfig struct {
	Collector *Collector
	Tracer    Tracer
	Logger    *Logger
	DeviceID  []byte
	Role      string // "client" or "server"
}

// NewTransactionObserver creates a new transaction observer.
func NewTransactionObserver(cfg TransactionObserverConfig) *TransactionObserver {
	if cfg.Collector == nil {
		cfg.Collector = Global()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = GetTracer()
	}
	if cfg.Logger == nil {
		cfg.Logger = GetLogger()
	}

	deviceID := ""
	if len(cfg.DeviceID) > 0 {
		deviceID = hex.EncodeToString(cfg.DeviceID[:min(8, len(cfg.DeviceID))])
	}

	return &TransactionObserver{
		collector: cfg.Collector,
		tracer:    cfg.Tracer,
		logger: cfg.Logger.Named("transaction").With(Fields{
			"device_id": deviceID,
			"role":      cfg.Role,
		}),
		deviceID: deviceID,
		role:     cfg.Role,
	}
}

// OnTransactionStart should be called when a new device transaction begins.
func (o *TransactionObserver) OnTransactionStart() {
	o.collector.TransactionStarted()
	o.logger.Info("transaction started")
}

// OnTransactionEnd should be called when a device transaction ends.
func (o *TransactionObserver) OnTransactionEnd() {
	o.collector.TransactionEnded()
	o.logger.Info("transaction ended")
}

// OnTransactionFailed should be called when a device transaction fails.
func (o *TransactionObserver) OnTransactionFailed(err error) {
	o.collector.TransactionFailed()
	o.logger.Error("transaction failed", Fields{"error": err.Error()})
}

// OnTokenExchangeStart returns a context and completion function for token-exchange tracing.
func (o *TransactionObserver) OnTokenExchangeStart(ctx context.Context) (context.Context, func(error)) {
	spanName := SpanTokenExchangeClient
	if o.role == "server" {
		spanName = SpanTokenExchangeServer
	}

	start := time.Now()
	ctx, endSpan := o.tracer.StartSpan(ctx, spanName, WithSpanKind(SpanKindServer))

	o.logger.Debug("token exchange started")

	return ctx, func(err error) {
		duration := time.Since(start)
		o.collector.RecordTokenExchangeLatency(duration)

		if err != nil {
			o.logger.Error("token exchange failed", Fields{
				"error":    err.Error(),
				"duration": duration.String(),
			})
		} else {
			o.logger.Info("token exchange completed", Fields{
				"duration": duration.String(),
			})
		}

		endSpan(err)
	}
}

// OnEncrypt records encryption metrics.
func (o *TransactionObserver) OnEncrypt(ctx context.Context, plaintextLen int) (context.Context, func(error)) {
	start := time.Now()
	ctx, endSpan := o.tracer.StartSpan(ctx, SpanEncrypt)

	return ctx, func(err error) {
		duration := time.Since(start)
		o.collector.RecordEncryptLatency(duration)

		if err != nil {
			o.collector.RecordEncryptError()
			o.logger.Debug("encrypt failed", Fields{"error": err.Error()})
		} else {
			o.collector.RecordBytesSent(uint64(plaintextLen))
			o.collector.RecordPacketSent()
		}

		endSpan(err)
	}
}

// OnDecrypt records decryption metrics.
func (o *TransactionObserver) OnDecrypt(ctx context.Context, ciphertextLen int) (context.Context, func(error)) {
	start := time.Now()
	ctx, endSpan := o.tracer.StartSpan(ctx, SpanDecrypt)

	return ctx, func(err error) {
		duration := time.Since(start)
		o.collector.RecordDecryptLatency(duration)

		if err != nil {
			o.collector.RecordDecryptError()
			o.logger.Debug("decrypt failed", Fields{"error": err.Error()})
		} else {
			o.collector.RecordBytesReceived(uint64(ciphertextLen))
			o.collector.RecordPacketReceived()
		}

		endSpan(err)
	}
}

// OnCounterReuseDetected records a blocked counter-reuse attempt.
func (o *TransactionObserver) OnCounterReuseDetected() {
	o.collector.RecordCounterReuseBlocked()
	o.logger.Warn("counter reuse blocked")
}

// OnAuthFailure records an authentication failure.
func (o *TransactionObserver) OnAuthFailure() {
	o.collector.RecordAuthFailure()
	o.logger.Warn("authentication failed")
}

// OnCacheRefillStart records the start of a cache-refill operation.
func (o *TransactionObserver) OnCacheRefillStart(ctx context.Context) (context.Context, func(error)) {
	o.collector.RecordCacheRefillInitiated()
	ctx, endSpan := o.tracer.StartSpan(ctx, SpanCacheRefill)

	o.logger.Debug("cache refill initiated")

	return ctx, func(err error) {
		if err != nil {
			o.collector.RecordCacheRefillFailed()
			o.logger.Error("cache refill failed", Fields{"error": err.Error()})
		} else {
			o.collector.RecordCacheRefillCompleted()
			o.logger.Info("cache refill completed")
		}
		endSpan(err)
	}
}

// OnProtocolError records a protocol error.
func (o *TransactionObserver) OnProtocolError(err error) {
	o.collector.RecordProtocolError()
	o.logger.Error("protocol error", Fields{"error": err.Error()})
}

// Logger returns the observer's logger for custom logging.
func (o *TransactionObserver) Logger() *Logger {
	return o.logger
}

// --- Instrumented Wrappers ---

// InstrumentedTransaction wraps transaction metrics collection.
// This can be used to wrap encrypt/decrypt calls.
type InstrumentedTransaction struct {
	observer *TransactionObserver
}

// NewInstrumentedTransaction creates a new instrumented transaction wrapper.
func NewInstrumentedTransaction(observer *TransactionObserver) *InstrumentedTransaction {
	return &InstrumentedTransaction{observer: observer}
}

// WrapEncrypt wraps an encrypt operation with metrics.
func (s *InstrumentedTransaction) WrapEncrypt(ctx context.Context, plaintextLen int, fn func() error) error {
	_, done := s.observer.OnEncrypt(ctx, plaintextLen)
	err := fn()
	done(err)
	return err
}

// WrapDecrypt wraps a decrypt operation with metrics.
func (s *InstrumentedTransaction) WrapDecrypt(ctx context.Context, ciphertextLen int, fn func() error) error {
	_, done := s.observer.OnDecrypt(ctx, ciphertextLen)
	err := fn()
	done(err)
	return err
}

// --- Event Types ---

// EventType represents a type of transaction event for logging.
type EventType string

const (
	EventTransactionStart    EventType = "transaction.start"
	EventTransactionEnd      EventType = "transaction.end"
	EventTransactionFailed   EventType = "transaction.failed"
	EventTokenExchangeStart  EventType = "token_exchange.start"
	EventTokenExchangeEnd    EventType = "token_exchange.end"
	EventDataSent            EventType = "data.sent"
	EventDataReceived        EventType = "data.received"
	EventCacheRefillStart    EventType = "cache_refill.start"
	EventCacheRefillEnd      EventType = "cache_refill.end"
	EventCounterReuseBlocked EventType = "security.counter_reuse_blocked"
	EventAuthFailed          EventType = "security.auth_failed"
	EventError               EventType = "error"
)

// Event represents a structured transaction event.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	DeviceID  string                 `json:"device_id,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// min returns the smaller of two integers.
func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
