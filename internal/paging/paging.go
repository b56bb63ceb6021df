// Package paging turns offset/limit APIs into lazy sequences.
package paging

import (
	"context"
	"errors"
	"iter"
)

// DefaultPageSize matches the maximum page size PagerDuty accepts.
const DefaultPageSize = 100

// PageFunc fetches one page starting at offset.
type PageFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// Seq yields every item returned by fetch, requesting pages of pageSize with
// increasing offsets until a page comes back shorter than pageSize. A fetch
// error is yielded once and ends the sequence. Each range over the result
// issues its own requests.
func Seq[T any](ctx context.Context, pageSize int, fetch PageFunc[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		if pageSize <= 0 {
			yield(zero, errors.New("paging: page size must be positive"))
			return
		}
		offset := 0
		for {
			if err := ctx.Err(); err != nil {
				yield(zero, err)
				return
			}
			page, err := fetch(ctx, offset, pageSize)
			if err != nil {
				yield(zero, err)
				return
			}
			for _, item := range page {
				if !yield(item, nil) {
					return
				}
			}
			if len(page) < pageSize {
				return
			}
			offset += len(page)
		}
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
