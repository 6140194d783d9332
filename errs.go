package rowstream

import "errors"

var (
	ErrKeyAlreadyExists = errors.New("key already exists")
	ErrKeyNotFound      = errors.New("key not found")

	// ErrTableNotEmpty is returned by LoadUsersCSV when the table already has
	// rows and nothing was loaded.
	ErrTableNotEmpty = errors.New("table is not empty")

	// ErrStoreUnavailable wraps every failure to execute a page query: closed
	// handle, unreachable server, canceled context or a failed statement.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrMalformedRow is returned when a fetched row does not match the model's
	// column arity or types.
	ErrMalformedRow = errors.New("malformed row")

	ErrInvalidPage = errors.New("invalid page request")

	// ErrEndOfStream is returned by Stream.Next once no further rows will ever
	// be produced.
	ErrEndOfStream = errors.New("end of stream")
)
