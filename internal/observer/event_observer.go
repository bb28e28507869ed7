package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// AuthenticationEvent represents an authentication or reference event
type AuthenticationEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	RequestID      string                 `json:"request_id,omitempty"`
	Source         string                 `json:"source,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	Genuine        bool                   `json:"genuine"`
	Denomination   string                 `json:"denomination,omitempty"`
	Score          float64                `json:"score"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of event
type EventType string

const (
	// AuthenticationStarted when a candidate is received
	AuthenticationStarted EventType = "authentication_started"
	// AuthenticationCompleted when a verdict is reached
	AuthenticationCompleted EventType = "authentication_completed"
	// AuthenticationFailed when no verdict could be reached
	AuthenticationFailed EventType = "authentication_failed"
	// ReferencesLoaded when the reference set is (re)built
	ReferencesLoaded EventType = "references_loaded"
	// ReferencesLoadFailed when rebuilding the reference set fails
	ReferencesLoadFailed EventType = "references_load_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event AuthenticationEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event AuthenticationEvent)
}

// LoggingObserver logs events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent logs the event at a level matching its type
func (o *LoggingObserver) OnEvent(ctx context.Context, event AuthenticationEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.Source != "" {
		fields["source"] = event.Source
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	switch event.EventType {
	case AuthenticationStarted:
		o.logger.WithFields(fields).Debug("Authentication started")
	case AuthenticationCompleted:
		fields["genuine"] = event.Genuine
		fields["denomination"] = event.Denomination
		fields["score"] = event.Score
		o.logger.WithFields(fields).Info("Authentication completed")
	case AuthenticationFailed:
		o.logger.WithFields(fields).Error("Authentication failed")
	case ReferencesLoaded:
		o.logger.WithFields(fields).Info("References loaded")
	case ReferencesLoadFailed:
		o.logger.WithFields(fields).Error("References load failed")
	default:
		o.logger.WithFields(fields).Info("Event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver aggregates counters for the stats endpoint
type MetricsObserver struct {
	mu                  sync.RWMutex
	started             int64
	completed           int64
	failed              int64
	genuine             int64
	byDenomination      map[string]int64
	totalProcessingTime time.Duration
	referenceLoads      int64
	referenceLoadErrors int64
	lastReferenceLoad   time.Time
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{byDenomination: make(map[string]int64)}
}

// OnEvent updates counters
func (o *MetricsObserver) OnEvent(ctx context.Context, event AuthenticationEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case AuthenticationStarted:
		o.started++
	case AuthenticationCompleted:
		o.completed++
		o.totalProcessingTime += event.ProcessingTime
		if event.Genuine {
			o.genuine++
			o.byDenomination[event.Denomination]++
		}
	case AuthenticationFailed:
		o.failed++
	case ReferencesLoaded:
		o.referenceLoads++
		o.lastReferenceLoad = event.Timestamp
	case ReferencesLoadFailed:
		o.referenceLoadErrors++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.completed > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.completed)
	}
	byDenomination := make(map[string]int64, len(o.byDenomination))
	for k, v := range o.byDenomination {
		byDenomination[k] = v
	}

	metrics := map[string]interface{}{
		"total_authentications":     o.started,
		"completed_authentications": o.completed,
		"failed_authentications":    o.failed,
		"genuine_verdicts":          o.genuine,
		"rejected_verdicts":         o.completed - o.genuine,
		"genuine_by_denomination":   byDenomination,
		"avg_processing_time_ms":    avgProcessingTime.Milliseconds(),
		"reference_loads":           o.referenceLoads,
		"reference_load_errors":     o.referenceLoadErrors,
	}
	if !o.lastReferenceLoad.IsZero() {
		metrics["last_reference_load"] = o.lastReferenceLoad.Format(time.RFC3339)
	}
	return metrics
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers concurrently. Observers outlive
// the request, so they receive a context without its cancellation.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event AuthenticationEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	detached := context.WithoutCancel(ctx)
	for _, observer := range observers {
		go func(obs Observer) {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(detached, event)
		}(observer)
	}
}
