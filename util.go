package rowstream

import (
	"context"
)

type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

func sliceMap[In any, Out any](list []In, mapFn func(val In) Out) []Out {
	var newSlice = make([]Out, len(list))
	for i, val := range list {
		newSlice[i] = mapFn(val)
	}

	return newSlice
}

// SplitBatch splits list into consecutive chunks of at most chunk elements.
func SplitBatch[T any](list []T, chunk int) [][]T {
	if chunk <= 0 || len(list) == 0 {
		return nil
	}

	total := len(list)
	batch := (total + chunk - 1) / chunk

	var newList = make([][]T, batch)
	start := 0
	end := chunk
	for i := 0; i < batch; i++ {
		if end > total {
			end = total
		}

		newList[i] = list[start:end]
		start += chunk
		end += chunk
	}

	return newList
}
