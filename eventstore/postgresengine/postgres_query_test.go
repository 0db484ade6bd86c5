package postgresengine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-circulation-go/eventstore"
	"github.com/AntonStoeckl/library-circulation-go/eventstore/postgresengine/internal/adapters"
)

func bookFilter(isbn string) eventstore.Filter {
	return eventstore.BuildEventFilter().
		Matching().
		AnyEventTypeOf("BookAddedToCatalog", "BookBorrowed", "BookReturned").
		AndAnyPredicateOf(eventstore.P("ISBN", isbn)).
		Finalize()
}

func storableEvent(t *testing.T, payload string) eventstore.StorableEvent {
	t.Helper()

	event, err := eventstore.BuildStorableEventWithEmptyMetadata(
		"BookBorrowed",
		time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
		[]byte(payload),
	)
	require.NoError(t, err, "error in arranging test data")

	return event
}

func Test_EventStore_BuildSelectQuery_WithEventTypesAndPredicate(t *testing.T) {
	// arrange
	es, err := newEventStore(&fakeAdapter{}, WithTableName("library_events"))
	require.NoError(t, err)

	// act
	sqlQuery, err := es.buildSelectQuery(bookFilter("978-92-95055-02-5"))

	// assert
	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `FROM "library_events"`)
	assert.Contains(t, sqlQuery, `"event_type" IN ('BookAddedToCatalog', 'BookBorrowed', 'BookReturned')`)
	assert.Contains(t, sqlQuery, `payload @> '{"ISBN":"978-92-95055-02-5"}'::jsonb`)
	assert.Contains(t, sqlQuery, `ORDER BY "sequence_number" ASC`)
}

func Test_EventStore_BuildSelectQuery_EmptyFilterHasNoWhereClause(t *testing.T) {
	es, err := newEventStore(&fakeAdapter{})
	require.NoError(t, err)

	sqlQuery, err := es.buildSelectQuery(eventstore.BuildEventFilter().MatchingAnyEvent())

	require.NoError(t, err)
	assert.NotContains(t, sqlQuery, "WHERE")
}

func Test_EventStore_BuildSelectQuery_EscapesPredicateValues(t *testing.T) {
	es, err := newEventStore(&fakeAdapter{})
	require.NoError(t, err)

	sqlQuery, err := es.buildSelectQuery(bookFilter(`x'); DROP TABLE events; --`))

	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `'{"ISBN":"x''); DROP TABLE events; --"}'::jsonb`)
}

func Test_EventStore_BuildInsertQuery_GuardsOnExpectedMaxSequenceNumber(t *testing.T) {
	es, err := newEventStore(&fakeAdapter{})
	require.NoError(t, err)

	single, err := es.buildAppendQuery(
		eventstore.StorableEvents{storableEvent(t, `{"ISBN": "1"}`)},
		bookFilter("1"),
		7,
	)
	require.NoError(t, err)

	multiple, err := es.buildAppendQuery(
		eventstore.StorableEvents{storableEvent(t, `{"ISBN": "1"}`), storableEvent(t, `{"ISBN": "1"}`)},
		bookFilter("1"),
		7,
	)
	require.NoError(t, err)

	for _, sqlQuery := range []string{single, multiple} {
		assert.Contains(t, sqlQuery, `WITH context AS (SELECT MAX("sequence_number") AS "max_seq" FROM "events"`)
		assert.Contains(t, sqlQuery, `COALESCE("max_seq", 0) = 7`)
		assert.Contains(t, sqlQuery, `INSERT INTO "events" ("event_type", "occurred_at", "payload", "metadata")`)
	}

	assert.Contains(t, multiple, "UNION ALL")
}

func Test_EventStore_Append_ReturnsConcurrencyConflict_WhenRowsAreMissing(t *testing.T) {
	// arrange
	db := &fakeAdapter{rowsAffected: 0}
	es, err := newEventStore(db)
	require.NoError(t, err)

	// act
	err = es.Append(context.Background(), bookFilter("1"), 3, storableEvent(t, `{"ISBN": "1"}`))

	// assert
	assert.ErrorIs(t, err, eventstore.ErrConcurrencyConflict)
	assert.Len(t, db.execQueries, 1)
}

func Test_EventStore_Append_Success(t *testing.T) {
	db := &fakeAdapter{rowsAffected: 2}
	es, err := newEventStore(db)
	require.NoError(t, err)

	err = es.Append(
		context.Background(),
		bookFilter("1"),
		0,
		storableEvent(t, `{"ISBN": "1"}`),
		storableEvent(t, `{"ISBN": "1"}`),
	)

	assert.NoError(t, err)
}

func Test_EventStore_Append_WrapsExecErrors(t *testing.T) {
	dbErr := errors.New("connection reset")
	es, err := newEventStore(&fakeAdapter{execErr: dbErr})
	require.NoError(t, err)

	err = es.Append(context.Background(), bookFilter("1"), 0, storableEvent(t, `{"ISBN": "1"}`))

	assert.ErrorIs(t, err, eventstore.ErrAppendingEventFailed)
	assert.ErrorIs(t, err, dbErr)
}

func Test_EventStore_Query_ReturnsEventsAndMaxSequenceNumber(t *testing.T) {
	// arrange
	occurredAt := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	db := &fakeAdapter{
		rows: []fakeRow{
			{eventType: "BookAddedToCatalog", occurredAt: occurredAt, payload: `{"ISBN": "1"}`, sequence: 4},
			{eventType: "BookBorrowed", occurredAt: occurredAt, payload: `{"ISBN": "1"}`, sequence: 9},
		},
	}
	es, err := newEventStore(db)
	require.NoError(t, err)

	// act
	events, maxSeq, err := es.Query(context.Background(), bookFilter("1"))

	// assert
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, "BookBorrowed", events[1].EventType)
	assert.Equal(t, eventstore.MaxSequenceNumberUint(9), maxSeq)
}

func Test_EventStore_Query_WrapsQueryErrors(t *testing.T) {
	dbErr := errors.New("too many connections")
	es, err := newEventStore(&fakeAdapter{queryErr: dbErr})
	require.NoError(t, err)

	_, _, err = es.Query(context.Background(), bookFilter("1"))

	assert.ErrorIs(t, err, eventstore.ErrQueryingEventsFailed)
	assert.ErrorIs(t, err, dbErr)
}

func Test_WithTableName_RejectsEmptyName(t *testing.T) {
	_, err := newEventStore(&fakeAdapter{}, WithTableName(""))

	assert.ErrorIs(t, err, eventstore.ErrEmptyEventsTableName)
}

func Test_Constructors_RejectNilConnections(t *testing.T) {
	_, err := NewEventStoreFromPGXPool(nil)
	assert.ErrorIs(t, err, eventstore.ErrNilDatabaseConnection)

	_, err = NewEventStoreFromSQLDB(nil)
	assert.ErrorIs(t, err, eventstore.ErrNilDatabaseConnection)

	_, err = NewEventStoreFromSQLX(nil)
	assert.ErrorIs(t, err, eventstore.ErrNilDatabaseConnection)
}

/***** fakes *****/

type fakeRow struct {
	eventType  string
	occurredAt time.Time
	payload    string
	sequence   uint
}

type fakeAdapter struct {
	rows         []fakeRow
	queryErr     error
	execErr      error
	rowsAffected int64
	execQueries  []string
}

func (f *fakeAdapter) Query(_ context.Context, _ string) (adapters.DBRows, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}

	return &fakeRows{rows: f.rows, idx: -1}, nil
}

func (f *fakeAdapter) Exec(_ context.Context, query string) (adapters.DBResult, error) {
	f.execQueries = append(f.execQueries, query)

	if f.execErr != nil {
		return nil, f.execErr
	}

	return fakeResult(f.rowsAffected), nil
}

type fakeRows struct {
	rows []fakeRow
	idx  int
}

func (r *fakeRows) Next() bool {
	r.idx++

	return r.idx < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx]
	*(dest[0].(*string)) = row.eventType
	*(dest[1].(*time.Time)) = row.occurredAt
	*(dest[2].(*[]byte)) = []byte(row.payload)
	*(dest[3].(*[]byte)) = []byte(`{}`)
	*(dest[4].(*uint)) = row.sequence

	return nil
}

func (r *fakeRows) Err() error {
	return nil
}

func (r *fakeRows) Close() error {
	return nil
}

type fakeResult int64

func (f fakeResult) RowsAffected() (int64, error) {
	return int64(f), nil
}
