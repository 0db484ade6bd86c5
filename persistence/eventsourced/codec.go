package eventsourced

import (
	"errors"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/library-circulation-go/eventstore"
)

var (
	ErrMappingToStorableEventFailed         = errors.New("mapping to storable event failed")
	ErrMappingToDomainEventFailed           = errors.New("mapping to domain event failed")
	ErrMappingToDomainEventUnknownEventType = errors.New("unknown event type")
	ErrMappingToEventMetadataFailed         = errors.New("mapping to event metadata failed")
)

// EventMetadata contains event tracking information.
type EventMetadata struct {
	MessageID     string
	CausationID   string
	CorrelationID string
}

// BuildEventMetadata creates EventMetadata from UUID values.
func BuildEventMetadata(messageID uuid.UUID, causationID uuid.UUID, correlationID uuid.UUID) EventMetadata {
	return EventMetadata{
		MessageID:     messageID.String(),
		CausationID:   causationID.String(),
		CorrelationID: correlationID.String(),
	}
}

// EventMetadataFrom extracts EventMetadata from a StorableEvent.
func EventMetadataFrom(storableEvent eventstore.StorableEvent) (EventMetadata, error) {
	metadata := new(EventMetadata)

	if err := jsoniter.ConfigFastest.Unmarshal(storableEvent.MetadataJSON, metadata); err != nil {
		return EventMetadata{}, errors.Join(ErrMappingToEventMetadataFailed, err)
	}

	return *metadata, nil
}

// StorableEventFrom converts a DomainEvent and EventMetadata to a StorableEvent.
func StorableEventFrom(event DomainEvent, metadata EventMetadata) (eventstore.StorableEvent, error) {
	payloadJSON, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(event)
	if err != nil {
		return eventstore.StorableEvent{}, errors.Join(ErrMappingToStorableEventFailed, err)
	}

	metadataJSON, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(metadata)
	if err != nil {
		return eventstore.StorableEvent{}, errors.Join(ErrMappingToStorableEventFailed, err)
	}

	storableEvent, err := eventstore.BuildStorableEvent(event.IsEventType(), event.HasOccurredAt(), payloadJSON, metadataJSON)
	if err != nil {
		return eventstore.StorableEvent{}, errors.Join(ErrMappingToStorableEventFailed, err)
	}

	return storableEvent, nil
}

// DomainEventsFrom converts multiple StorableEvents to DomainEvents.
func DomainEventsFrom(storableEvents eventstore.StorableEvents) (DomainEvents, error) {
	domainEvents := make(DomainEvents, 0, len(storableEvents))

	for _, storableEvent := range storableEvents {
		domainEvent, err := DomainEventFrom(storableEvent)
		if err != nil {
			return nil, err
		}

		domainEvents = append(domainEvents, domainEvent)
	}

	return domainEvents, nil
}

// DomainEventFrom converts a StorableEvent to its corresponding DomainEvent.
func DomainEventFrom(storableEvent eventstore.StorableEvent) (DomainEvent, error) {
	switch storableEvent.EventType {
	case BookAddedToCatalogEventType:
		return unmarshal[BookAddedToCatalog](storableEvent.PayloadJSON)

	case UserRegisteredEventType:
		return unmarshal[UserRegistered](storableEvent.PayloadJSON)

	case BookBorrowedEventType:
		return unmarshal[BookBorrowed](storableEvent.PayloadJSON)

	case BookReturnedEventType:
		return unmarshal[BookReturned](storableEvent.PayloadJSON)
	}

	return nil, errors.Join(ErrMappingToDomainEventFailed, ErrMappingToDomainEventUnknownEventType)
}

func unmarshal[E DomainEvent](payloadJSON []byte) (DomainEvent, error) {
	var event E

	if err := jsoniter.ConfigFastest.Unmarshal(payloadJSON, &event); err != nil {
		return nil, errors.Join(ErrMappingToDomainEventFailed, err)
	}

	return event, nil
}
