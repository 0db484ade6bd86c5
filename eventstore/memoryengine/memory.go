// Package memoryengine is a process-local eventstore engine with the same Query/Append semantics
// as the PostgreSQL engine. It is meant for tests, demos and single-process deployments.
package memoryengine

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/library-circulation-go/eventstore"
)

const (
	engineName                = "memory"
	operationQuery            = "query"
	operationAppend           = "append"
	logMsgQueryCompleted      = "eventstore operation: query completed"
	logMsgEventsAppended      = "eventstore operation: events appended"
	logMsgConcurrencyConflict = "eventstore operation: concurrency conflict detected"
	logAttrEventCount         = "event_count"
	logAttrExpectedSequence   = "expected_sequence"
	logAttrActualSequence     = "actual_sequence"
)

var ErrPayloadNotAnObject = errors.New("event payload is not a JSON object")

type storedEvent struct {
	event          eventstore.StorableEvent
	payload        map[string]any
	sequenceNumber eventstore.MaxSequenceNumberUint
}

// EventStore keeps all events in a slice guarded by a RWMutex.
// Append holds the write lock while it re-evaluates the Filter, which makes the optimistic check exact.
type EventStore struct {
	mu               sync.RWMutex
	events           []storedEvent
	lastSequence     eventstore.MaxSequenceNumberUint
	logger           eventstore.Logger
	contextualLogger eventstore.ContextualLogger
	metricsCollector eventstore.MetricsCollector
}

// Option defines a functional option for configuring EventStore.
type Option func(*EventStore)

// WithLogger sets the logger for the EventStore.
func WithLogger(logger eventstore.Logger) Option {
	return func(es *EventStore) {
		es.logger = logger
	}
}

// WithContextualLogger sets a context-aware logger, preferred over the one set with WithLogger.
func WithContextualLogger(logger eventstore.ContextualLogger) Option {
	return func(es *EventStore) {
		es.contextualLogger = logger
	}
}

// WithMetrics sets the metrics collector for the EventStore.
func WithMetrics(collector eventstore.MetricsCollector) Option {
	return func(es *EventStore) {
		es.metricsCollector = collector
	}
}

// NewEventStore creates an empty EventStore.
func NewEventStore(options ...Option) *EventStore {
	es := &EventStore{}

	for _, option := range options {
		option(es)
	}

	return es
}

// Query returns copies of the matching events in append order and the max sequence number among them.
func (es *EventStore) Query(ctx context.Context, filter eventstore.Filter) (
	eventstore.StorableEvents,
	eventstore.MaxSequenceNumberUint,
	error,
) {

	if err := ctx.Err(); err != nil {
		return nil, 0, errors.Join(eventstore.ErrQueryingEventsFailed, err)
	}

	start := time.Now()

	es.mu.RLock()
	eventStream, maxSequenceNumber := es.matching(filter)
	es.mu.RUnlock()

	es.recordDuration(eventstore.MetricQueryDuration, operationQuery, eventstore.StatusSuccess, time.Since(start))

	es.logInfo(ctx, logMsgQueryCompleted, logAttrEventCount, len(eventStream))

	return eventStream, maxSequenceNumber, nil
}

// Append appends all events or none. It fails with eventstore.ErrConcurrencyConflict when the
// max sequence number of the events matching the Filter differs from expectedMaxSequenceNumber.
func (es *EventStore) Append(
	ctx context.Context,
	filter eventstore.Filter,
	expectedMaxSequenceNumber eventstore.MaxSequenceNumberUint,
	event eventstore.StorableEvent,
	additionalEvents ...eventstore.StorableEvent,
) error {
	if err := ctx.Err(); err != nil {
		return errors.Join(eventstore.ErrAppendingEventFailed, err)
	}

	allEvents := append(eventstore.StorableEvents{event}, additionalEvents...)

	decoded := make([]map[string]any, 0, len(allEvents))
	for _, e := range allEvents {
		payload, decodeErr := decodePayload(e.PayloadJSON)
		if decodeErr != nil {
			return errors.Join(eventstore.ErrAppendingEventFailed, decodeErr)
		}

		decoded = append(decoded, payload)
	}

	start := time.Now()

	es.mu.Lock()
	defer es.mu.Unlock()

	_, actualMaxSequenceNumber := es.matching(filter)
	if actualMaxSequenceNumber != expectedMaxSequenceNumber {
		es.logInfo(
			ctx,
			logMsgConcurrencyConflict,
			logAttrExpectedSequence, expectedMaxSequenceNumber,
			logAttrActualSequence, actualMaxSequenceNumber,
		)

		es.incrementCounter(eventstore.MetricConcurrencyConflict, operationAppend)

		return eventstore.ErrConcurrencyConflict
	}

	for i, e := range allEvents {
		es.lastSequence++
		es.events = append(es.events, storedEvent{
			event:          cloneEvent(e),
			payload:        decoded[i],
			sequenceNumber: es.lastSequence,
		})
	}

	es.recordDuration(eventstore.MetricAppendDuration, operationAppend, eventstore.StatusSuccess, time.Since(start))

	es.logInfo(ctx, logMsgEventsAppended, logAttrEventCount, len(allEvents))

	return nil
}

func (es *EventStore) logInfo(ctx context.Context, msg string, args ...any) {
	switch {
	case es.contextualLogger != nil:
		es.contextualLogger.InfoContext(ctx, msg, args...)
	case es.logger != nil:
		es.logger.Info(msg, args...)
	}
}

// matching must be called with at least the read lock held.
func (es *EventStore) matching(filter eventstore.Filter) (eventstore.StorableEvents, eventstore.MaxSequenceNumberUint) {
	eventStream := make(eventstore.StorableEvents, 0)
	maxSequenceNumber := eventstore.MaxSequenceNumberUint(0)

	for _, stored := range es.events {
		if !matchesFilter(filter, stored) {
			continue
		}

		eventStream = append(eventStream, cloneEvent(stored.event))
		maxSequenceNumber = stored.sequenceNumber
	}

	return eventStream, maxSequenceNumber
}

func matchesFilter(filter eventstore.Filter, stored storedEvent) bool {
	if len(filter.Items()) == 0 {
		return true
	}

	for _, item := range filter.Items() {
		if matchesItem(item, stored) {
			return true
		}
	}

	return false
}

func matchesItem(item eventstore.FilterItem, stored storedEvent) bool {
	if len(item.EventTypes()) > 0 && !slices.Contains(item.EventTypes(), stored.event.EventType) {
		return false
	}

	if len(item.Predicates()) == 0 {
		return true
	}

	contains := func(p eventstore.FilterPredicate) bool {
		val, ok := stored.payload[p.Key()].(string)

		return ok && val == p.Val()
	}

	if item.AllPredicatesMustMatch() {
		for _, p := range item.Predicates() {
			if !contains(p) {
				return false
			}
		}

		return true
	}

	return slices.ContainsFunc(item.Predicates(), contains)
}

func decodePayload(payloadJSON []byte) (map[string]any, error) {
	var payload map[string]any

	if err := jsoniter.ConfigFastest.Unmarshal(payloadJSON, &payload); err != nil {
		return nil, errors.Join(ErrPayloadNotAnObject, err)
	}

	return payload, nil
}

func cloneEvent(e eventstore.StorableEvent) eventstore.StorableEvent {
	return eventstore.StorableEvent{
		EventType:    e.EventType,
		OccurredAt:   e.OccurredAt,
		PayloadJSON:  slices.Clone(e.PayloadJSON),
		MetadataJSON: slices.Clone(e.MetadataJSON),
	}
}

func (es *EventStore) recordDuration(metric string, operation string, status string, duration time.Duration) {
	if es.metricsCollector == nil {
		return
	}

	es.metricsCollector.RecordDuration(metric, duration, map[string]string{
		eventstore.LabelEngine:    engineName,
		eventstore.LabelOperation: operation,
		eventstore.LabelStatus:    status,
	})
}

func (es *EventStore) incrementCounter(metric string, operation string) {
	if es.metricsCollector == nil {
		return
	}

	es.metricsCollector.IncrementCounter(metric, map[string]string{
		eventstore.LabelEngine:    engineName,
		eventstore.LabelOperation: operation,
	})
}
