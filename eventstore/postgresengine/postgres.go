package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/library-circulation-go/eventstore"
	"github.com/AntonStoeckl/library-circulation-go/eventstore/postgresengine/internal/adapters"
)

const (
	defaultEventTableName          = "events"
	logMsgBuildSelectQueryFailed   = "failed to build select query"
	logMsgDBQueryFailed            = "database query execution failed"
	logMsgCloseRowsFailed          = "failed to close database rows"
	logMsgScanRowFailed            = "failed to scan database row"
	logMsgBuildStorableEventFailed = "failed to build storable event from database row"
	logMsgBuildInsertQueryFailed   = "failed to build insert query"
	logMsgDBExecFailed             = "database execution failed during event append"
	logMsgRowsAffectedFailed       = "failed to get rows affected count"
	logMsgQueryCompleted           = "eventstore operation: query completed"
	logMsgEventsAppended           = "eventstore operation: events appended"
	logMsgConcurrencyConflict      = "eventstore operation: concurrency conflict detected"
	logMsgSQLExecuted              = "executed sql for: "
	logAttrError                   = "error"
	logAttrQuery                   = "query"
	logAttrEventCount              = "event_count"
	logAttrDurationMS              = "duration_ms"
	logAttrExpectedEvents          = "expected_events"
	logAttrRowsAffected            = "rows_affected"
	logAttrExpectedSequence        = "expected_sequence"
	operationQuery                 = "query"
	operationAppend                = "append"
	colEventType                   = "event_type"
	colOccurredAt                  = "occurred_at"
	colPayload                     = "payload"
	colMetadata                    = "metadata"
	colSequenceNumber              = "sequence_number"
	cteContext                     = "context"
	cteVals                        = "vals"
	dialectPostgres                = "postgres"
	aliasMaxSeq                    = "max_seq"
	castText                       = "?::text"
	castTimestamp                  = "?::timestamp with time zone"
	castJsonb                      = "?::jsonb"
	payloadContains                = colPayload + " @> ?::jsonb"
)

// EventStore is the PostgreSQL engine for dynamic event streams.
// It works on a single events table and supports pgx, database/sql and sqlx connections.
type EventStore struct {
	db               adapters.DBAdapter
	eventTableName   string
	logger           eventstore.Logger
	contextualLogger eventstore.ContextualLogger
	metricsCollector eventstore.MetricsCollector
}

type queryResultRow struct {
	eventType         string
	payload           []byte
	metadata          []byte
	occurredAt        time.Time
	maxSequenceNumber eventstore.MaxSequenceNumberUint
}

// NewEventStoreFromPGXPool creates a new EventStore using a pgx Pool with optional configuration.
func NewEventStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewPGXAdapter(db), options...)
}

// NewEventStoreFromPGXPoolAndReplica creates a new EventStore which queries the replica and appends to the primary.
//
// Queries on a replica are eventually consistent, so a decision made on them can be based on stale events.
// The Append is still safe: stale reads surface as eventstore.ErrConcurrencyConflict.
func NewEventStoreFromPGXPoolAndReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (EventStore, error) {
	if db == nil || replica == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewPGXAdapterWithReplica(db, replica), options...)
}

// NewEventStoreFromSQLDB creates a new EventStore using a sql.DB with optional configuration.
func NewEventStoreFromSQLDB(db *sql.DB, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewSQLAdapter(db), options...)
}

// NewEventStoreFromSQLX creates a new EventStore using a sqlx.DB with optional configuration.
func NewEventStoreFromSQLX(db *sqlx.DB, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewSQLXAdapter(db), options...)
}

func newEventStore(db adapters.DBAdapter, options ...Option) (EventStore, error) {
	es := EventStore{
		db:             db,
		eventTableName: defaultEventTableName,
	}

	for _, option := range options {
		if err := option(&es); err != nil {
			return EventStore{}, err
		}
	}

	return es, nil
}

// Query retrieves the events matching the eventstore.Filter ordered by sequence number,
// together with the MaxSequenceNumberUint of this "dynamic event stream" at the time of the query.
func (es EventStore) Query(ctx context.Context, filter eventstore.Filter) (
	eventstore.StorableEvents,
	eventstore.MaxSequenceNumberUint,
	error,
) {

	var empty eventstore.StorableEvents

	sqlQuery, buildQueryErr := es.buildSelectQuery(filter)
	if buildQueryErr != nil {
		es.logError(ctx, logMsgBuildSelectQueryFailed, buildQueryErr)

		return empty, 0, buildQueryErr
	}

	start := time.Now()
	rows, queryErr := es.db.Query(ctx, sqlQuery)
	es.logQueryWithDuration(ctx, sqlQuery, operationQuery, time.Since(start))

	if queryErr != nil {
		es.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		es.incrementCounter(eventstore.MetricDatabaseErrors, operationQuery)
		es.recordDuration(eventstore.MetricQueryDuration, operationQuery, eventstore.StatusError, time.Since(start))

		return empty, 0, errors.Join(eventstore.ErrQueryingEventsFailed, queryErr)
	}
	defer es.closeRows(ctx, rows)

	eventStream, maxSequenceNumber, scanErr := es.processQueryResults(ctx, rows)
	if scanErr != nil {
		es.incrementCounter(eventstore.MetricDatabaseErrors, operationQuery)
		es.recordDuration(eventstore.MetricQueryDuration, operationQuery, eventstore.StatusError, time.Since(start))

		return empty, 0, scanErr
	}

	duration := time.Since(start)
	es.recordDuration(eventstore.MetricQueryDuration, operationQuery, eventstore.StatusSuccess, duration)
	es.recordEventCount(eventstore.MetricEventsQueried, len(eventStream))
	es.logInfo(ctx, logMsgQueryCompleted, logAttrEventCount, len(eventStream), logAttrDurationMS, toMilliseconds(duration))

	return eventStream, maxSequenceNumber, nil
}

func (es EventStore) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		es.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

func (es EventStore) processQueryResults(ctx context.Context, rows adapters.DBRows) (
	eventstore.StorableEvents,
	eventstore.MaxSequenceNumberUint,
	error,
) {

	var empty eventstore.StorableEvents
	result := queryResultRow{}
	eventStream := make(eventstore.StorableEvents, 0)
	maxSequenceNumber := eventstore.MaxSequenceNumberUint(0)

	for rows.Next() {
		rowScanErr := rows.Scan(&result.eventType, &result.occurredAt, &result.payload, &result.metadata, &result.maxSequenceNumber)
		if rowScanErr != nil {
			es.logError(ctx, logMsgScanRowFailed, rowScanErr)

			return empty, 0, errors.Join(eventstore.ErrScanningDBRowFailed, rowScanErr)
		}

		event, buildStorableErr := eventstore.BuildStorableEvent(result.eventType, result.occurredAt, result.payload, result.metadata)
		if buildStorableErr != nil {
			es.logError(ctx, logMsgBuildStorableEventFailed, buildStorableErr)

			return empty, 0, errors.Join(eventstore.ErrBuildingStorableEventFailed, buildStorableErr)
		}

		eventStream = append(eventStream, event)
		maxSequenceNumber = result.maxSequenceNumber
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		es.logError(ctx, logMsgScanRowFailed, rowsErr)

		return empty, 0, errors.Join(eventstore.ErrScanningDBRowFailed, rowsErr)
	}

	return eventStream, maxSequenceNumber, nil
}

// Append appends one or multiple eventstore.StorableEvent(s) atomically, but only if the "dynamic event stream"
// selected by the eventstore.Filter still has the expected MaxSequenceNumberUint.
// Otherwise, nothing is appended and eventstore.ErrConcurrencyConflict is returned.
//
// The eventstore.Filter must be the same one that was used for the Query the decision was based on.
func (es EventStore) Append(
	ctx context.Context,
	filter eventstore.Filter,
	expectedMaxSequenceNumber eventstore.MaxSequenceNumberUint,
	event eventstore.StorableEvent,
	additionalEvents ...eventstore.StorableEvent,
) error {

	allEvents := eventstore.StorableEvents{event}
	allEvents = append(allEvents, additionalEvents...)

	sqlQuery, buildQueryErr := es.buildAppendQuery(allEvents, filter, expectedMaxSequenceNumber)
	if buildQueryErr != nil {
		es.logError(ctx, logMsgBuildInsertQueryFailed, buildQueryErr, logAttrEventCount, len(allEvents))

		return buildQueryErr
	}

	start := time.Now()
	tag, execErr := es.db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	es.logQueryWithDuration(ctx, sqlQuery, operationAppend, duration)

	if execErr != nil {
		es.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)
		es.incrementCounter(eventstore.MetricDatabaseErrors, operationAppend)
		es.recordDuration(eventstore.MetricAppendDuration, operationAppend, eventstore.StatusError, duration)

		return errors.Join(eventstore.ErrAppendingEventFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := tag.RowsAffected()
	if rowsAffectedErr != nil {
		es.logError(ctx, logMsgRowsAffectedFailed, rowsAffectedErr)

		return errors.Join(eventstore.ErrGettingRowsAffectedFailed, rowsAffectedErr)
	}

	if rowsAffected < int64(len(allEvents)) {
		es.logInfo(
			ctx,
			logMsgConcurrencyConflict,
			logAttrExpectedEvents, len(allEvents),
			logAttrRowsAffected, rowsAffected,
			logAttrExpectedSequence, expectedMaxSequenceNumber,
		)
		es.incrementCounter(eventstore.MetricConcurrencyConflict, operationAppend)
		es.recordDuration(eventstore.MetricAppendDuration, operationAppend, eventstore.StatusError, duration)

		return eventstore.ErrConcurrencyConflict
	}

	es.recordDuration(eventstore.MetricAppendDuration, operationAppend, eventstore.StatusSuccess, duration)
	es.recordEventCount(eventstore.MetricEventsAppended, len(allEvents))
	es.logInfo(ctx, logMsgEventsAppended, logAttrEventCount, len(allEvents), logAttrDurationMS, toMilliseconds(duration))

	return nil
}

// buildAppendQuery builds the lighter single-event query where possible.
func (es EventStore) buildAppendQuery(
	allEvents eventstore.StorableEvents,
	filter eventstore.Filter,
	expectedMaxSequenceNumber eventstore.MaxSequenceNumberUint,
) (string, error) {

	if len(allEvents) == 1 {
		return es.buildInsertQueryForSingleEvent(allEvents[0], filter, expectedMaxSequenceNumber)
	}

	return es.buildInsertQueryForMultipleEvents(allEvents, filter, expectedMaxSequenceNumber)
}

func (es EventStore) buildSelectQuery(filter eventstore.Filter) (string, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(es.eventTableName).
		Select(colEventType, colOccurredAt, colPayload, colMetadata, colSequenceNumber).
		Order(goqu.I(colSequenceNumber).Asc())

	selectStmt, whereErr := es.addWhereClause(filter, selectStmt)
	if whereErr != nil {
		return "", whereErr
	}

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// buildContextCTE selects the current max sequence number of the "dynamic event stream".
func (es EventStore) buildContextCTE(builder goqu.DialectWrapper, filter eventstore.Filter) (*goqu.SelectDataset, error) {
	cteStmt := builder.
		From(es.eventTableName).
		Select(goqu.MAX(colSequenceNumber).As(aliasMaxSeq))

	return es.addWhereClause(filter, cteStmt)
}

func (es EventStore) buildInsertQueryForSingleEvent(
	event eventstore.StorableEvent,
	filter eventstore.Filter,
	expectedMaxSequenceNumber eventstore.MaxSequenceNumberUint,
) (string, error) {

	builder := goqu.Dialect(dialectPostgres)

	cteStmt, cteErr := es.buildContextCTE(builder, filter)
	if cteErr != nil {
		return "", cteErr
	}

	selectStmt := builder.
		From(cteContext).
		Select(
			goqu.L(castText, event.EventType),
			goqu.L(castTimestamp, event.OccurredAt),
			goqu.L(castJsonb, string(event.PayloadJSON)),
			goqu.L(castJsonb, string(event.MetadataJSON)),
		).
		Where(goqu.COALESCE(goqu.C(aliasMaxSeq), 0).Eq(goqu.V(expectedMaxSequenceNumber)))

	insertStmt := builder.
		Insert(es.eventTableName).
		Cols(colEventType, colOccurredAt, colPayload, colMetadata).
		FromQuery(selectStmt).
		With(cteContext, cteStmt)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (es EventStore) buildInsertQueryForMultipleEvents(
	events eventstore.StorableEvents,
	filter eventstore.Filter,
	expectedMaxSequenceNumber eventstore.MaxSequenceNumberUint,
) (string, error) {

	builder := goqu.Dialect(dialectPostgres)

	cteStmt, cteErr := es.buildContextCTE(builder, filter)
	if cteErr != nil {
		return "", cteErr
	}

	var valuesStmt *goqu.SelectDataset

	for _, event := range events {
		eventStmt := builder.Select(
			goqu.L(castText, event.EventType).As(colEventType),
			goqu.L(castTimestamp, event.OccurredAt).As(colOccurredAt),
			goqu.L(castJsonb, string(event.PayloadJSON)).As(colPayload),
			goqu.L(castJsonb, string(event.MetadataJSON)).As(colMetadata),
		)

		if valuesStmt == nil {
			valuesStmt = eventStmt
			continue
		}

		valuesStmt = valuesStmt.UnionAll(eventStmt)
	}

	insertStmt := builder.
		Insert(es.eventTableName).
		Cols(colEventType, colOccurredAt, colPayload, colMetadata).
		With(cteContext, cteStmt).
		With(cteVals, valuesStmt).
		FromQuery(
			builder.From(cteContext, cteVals).
				Select(
					goqu.I(cteVals+"."+colEventType),
					goqu.I(cteVals+"."+colOccurredAt),
					goqu.I(cteVals+"."+colPayload),
					goqu.I(cteVals+"."+colMetadata),
				).
				Where(goqu.COALESCE(goqu.C(aliasMaxSeq), 0).Eq(goqu.V(expectedMaxSequenceNumber))),
		)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// addWhereClause translates the Filter: items are OR-ed, within an item the event types are OR-ed
// and AND-ed with the predicates. Predicates use JSONB containment, so they can use a GIN index.
func (es EventStore) addWhereClause(filter eventstore.Filter, selectStmt *goqu.SelectDataset) (*goqu.SelectDataset, error) {
	itemsExpressions := make([]goqu.Expression, 0, len(filter.Items()))

	for _, item := range filter.Items() {
		itemExpressions := make([]goqu.Expression, 0, 2)

		if len(item.EventTypes()) > 0 {
			itemExpressions = append(itemExpressions, goqu.C(colEventType).In(item.EventTypes()))
		}

		if len(item.Predicates()) > 0 {
			predicateExpressions := make([]goqu.Expression, 0, len(item.Predicates()))

			for _, predicate := range item.Predicates() {
				containedJSON, marshalErr := jsoniter.ConfigFastest.Marshal(map[string]string{predicate.Key(): predicate.Val()})
				if marshalErr != nil {
					return nil, errors.Join(eventstore.ErrBuildingQueryFailed, fmt.Errorf("predicate %q: %w", predicate.Key(), marshalErr))
				}

				predicateExpressions = append(predicateExpressions, goqu.L(payloadContains, string(containedJSON)))
			}

			var predicatesExpressionList exp.ExpressionList

			if item.AllPredicatesMustMatch() {
				predicatesExpressionList = goqu.And(predicateExpressions...)
			} else {
				predicatesExpressionList = goqu.Or(predicateExpressions...)
			}

			itemExpressions = append(itemExpressions, predicatesExpressionList)
		}

		if len(itemExpressions) > 0 {
			itemsExpressions = append(itemsExpressions, goqu.And(itemExpressions...))
		}
	}

	if len(itemsExpressions) == 0 {
		return selectStmt, nil
	}

	return selectStmt.Where(goqu.Or(itemsExpressions...)), nil
}
