package rowstream

// RowIterator is a pull-based iterator over rows. Next returns ErrEndOfStream
// once the rows are exhausted.
type RowIterator[T any] interface {
	Next() (*T, error)
	Close() error
}
