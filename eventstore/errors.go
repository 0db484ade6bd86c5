package eventstore

import (
	"errors"
)

var (
	// ErrConcurrencyConflict is returned by Append when the "dynamic event stream" selected by the Filter
	// has moved past the expected MaxSequenceNumberUint between Query and Append.
	ErrConcurrencyConflict = errors.New("concurrency conflict: the event stream was modified since it was queried")

	ErrEmptyEventsTableName        = errors.New("events table name must not be empty")
	ErrNilDatabaseConnection       = errors.New("database connection must not be nil")
	ErrBuildingQueryFailed         = errors.New("building the query failed")
	ErrQueryingEventsFailed        = errors.New("querying events failed")
	ErrScanningDBRowFailed         = errors.New("scanning a database row failed")
	ErrBuildingStorableEventFailed = errors.New("building a storable event from a database row failed")
	ErrAppendingEventFailed        = errors.New("appending events failed")
	ErrGettingRowsAffectedFailed   = errors.New("getting the rows affected count failed")
)

// MaxSequenceNumberUint is a type alias for uint, representing the maximum sequence number for a "dynamic event stream".
type MaxSequenceNumberUint = uint
