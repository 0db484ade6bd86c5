package postgresengine_test

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-circulation-go/eventstore"
	"github.com/AntonStoeckl/library-circulation-go/eventstore/postgresengine"
	"github.com/AntonStoeckl/library-circulation-go/testutil/postgrescontainer"
)

type eventStore interface {
	Query(ctx context.Context, filter eventstore.Filter) (eventstore.StorableEvents, eventstore.MaxSequenceNumberUint, error)
	Append(
		ctx context.Context,
		filter eventstore.Filter,
		expectedMaxSequenceNumber eventstore.MaxSequenceNumberUint,
		event eventstore.StorableEvent,
		additionalEvents ...eventstore.StorableEvent,
	) error
}

func Test_PostgresEventStore_Integration(t *testing.T) {
	// setup
	dsn := postgrescontainer.StartOrSkip(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	require.NoError(t, postgresengine.MigrateDSN(ctx, dsn), "migration failed")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	sqlxDB := sqlx.NewDb(sqlDB, "postgres")

	pgxStore, err := postgresengine.NewEventStoreFromPGXPool(pool)
	require.NoError(t, err)
	sqlStore, err := postgresengine.NewEventStoreFromSQLDB(sqlDB)
	require.NoError(t, err)
	sqlxStore, err := postgresengine.NewEventStoreFromSQLX(sqlxDB)
	require.NoError(t, err)

	stores := map[string]eventStore{"pgx": pgxStore, "sql": sqlStore, "sqlx": sqlxStore}

	for name, es := range stores {
		t.Run(name+"/append_then_query_returns_only_matching_events", func(t *testing.T) {
			// arrange
			isbn := name + "-978-92-95055-02-5"
			filter := bookFilter(isbn)
			otherFilter := bookFilter(name + "-other")

			// act
			require.NoError(t, es.Append(ctx, filter, 0, bookEvent(t, "BookAddedToCatalog", isbn)))
			require.NoError(t, es.Append(ctx, otherFilter, 0, bookEvent(t, "BookAddedToCatalog", name+"-other")))

			events, maxSeq, queryErr := es.Query(ctx, filter)

			// assert
			require.NoError(t, queryErr)
			require.Len(t, events, 1)
			assert.Equal(t, "BookAddedToCatalog", events[0].EventType)
			assert.JSONEq(t, `{"ISBN": "`+isbn+`"}`, string(events[0].PayloadJSON))
			assert.Greater(t, maxSeq, eventstore.MaxSequenceNumberUint(0))
		})

		t.Run(name+"/stale_expected_sequence_is_a_concurrency_conflict", func(t *testing.T) {
			// arrange
			isbn := name + "-978-0-306-40615-7"
			filter := bookFilter(isbn)
			require.NoError(t, es.Append(ctx, filter, 0, bookEvent(t, "BookAddedToCatalog", isbn)))

			// act
			err := es.Append(ctx, filter, 0, bookEvent(t, "BookBorrowed", isbn))

			// assert
			assert.ErrorIs(t, err, eventstore.ErrConcurrencyConflict)

			events, _, queryErr := es.Query(ctx, filter)
			require.NoError(t, queryErr)
			assert.Len(t, events, 1)
		})

		t.Run(name+"/multiple_events_are_appended_atomically", func(t *testing.T) {
			isbn := name + "-978-0-00-000004-0"
			filter := bookFilter(isbn)

			err := es.Append(
				ctx,
				filter,
				0,
				bookEvent(t, "BookAddedToCatalog", isbn),
				bookEvent(t, "BookBorrowed", isbn),
				bookEvent(t, "BookReturned", isbn),
			)
			require.NoError(t, err)

			events, _, queryErr := es.Query(ctx, filter)
			require.NoError(t, queryErr)
			require.Len(t, events, 3)
			assert.Equal(t, "BookReturned", events[2].EventType)
		})
	}

	t.Run("concurrent_appends_on_the_same_stream_only_let_one_win", func(t *testing.T) {
		// arrange
		isbn := "race-978-92-95055-02-5"
		filter := bookFilter(isbn)
		_, maxSeq, err := pgxStore.Query(ctx, filter)
		require.NoError(t, err)

		var successes, conflicts atomic.Int32
		var wg sync.WaitGroup

		// act
		for range 5 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				appendErr := pgxStore.Append(ctx, filter, maxSeq, bookEvent(t, "BookAddedToCatalog", isbn))

				switch {
				case appendErr == nil:
					successes.Add(1)
				case assert.ErrorIs(t, appendErr, eventstore.ErrConcurrencyConflict):
					conflicts.Add(1)
				}
			}()
		}

		wg.Wait()

		// assert
		events, _, err := pgxStore.Query(ctx, filter)
		require.NoError(t, err)
		assert.Len(t, events, int(successes.Load()))
		assert.Equal(t, int32(5), successes.Load()+conflicts.Load())
		assert.GreaterOrEqual(t, successes.Load(), int32(1))
	})
}

func bookFilter(isbn string) eventstore.Filter {
	return eventstore.BuildEventFilter().
		Matching().
		AnyEventTypeOf("BookAddedToCatalog", "BookBorrowed", "BookReturned").
		AndAnyPredicateOf(eventstore.P("ISBN", isbn)).
		Finalize()
}

func bookEvent(t *testing.T, eventType string, isbn string) eventstore.StorableEvent {
	event, err := eventstore.BuildStorableEventWithEmptyMetadata(
		eventType,
		time.Now().UTC().Truncate(time.Microsecond),
		[]byte(`{"ISBN": "`+isbn+`"}`),
	)
	require.NoError(t, err, "error in arranging test data")

	return event
}
