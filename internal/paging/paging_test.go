package paging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct{ offset, limit int }

func source(total int, calls *[]call) PageFunc[int] {
	return func(_ context.Context, offset, limit int) ([]int, error) {
		*calls = append(*calls, call{offset, limit})
		var page []int
		for i := offset; i < total && i < offset+limit; i++ {
			page = append(page, i)
		}
		return page, nil
	}
}

func TestSeq_StopsOnShortPage(t *testing.T) {
	var calls []call

	got, err := Collect(Seq(context.Background(), 100, source(250, &calls)))

	require.NoError(t, err)
	assert.Len(t, got, 250)
	assert.Equal(t, 0, got[0])
	assert.Equal(t, 249, got[249])
	assert.Equal(t, []call{{0, 100}, {100, 100}, {200, 100}}, calls)
}

func TestSeq_ExactMultipleFetchesEmptyPage(t *testing.T) {
	var calls []call

	got, err := Collect(Seq(context.Background(), 100, source(200, &calls)))

	require.NoError(t, err)
	assert.Len(t, got, 200)
	assert.Equal(t, []call{{0, 100}, {100, 100}, {200, 100}}, calls)
}

func TestSeq_Empty(t *testing.T) {
	var calls []call

	got, err := Collect(Seq(context.Background(), DefaultPageSize, source(0, &calls)))

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Len(t, calls, 1)
}

func TestSeq_ErrorEndsSequence(t *testing.T) {
	boom := errors.New("boom")
	pages := 0
	fetch := func(_ context.Context, offset, limit int) ([]int, error) {
		pages++
		if offset > 0 {
			return nil, boom
		}
		return make([]int, limit), nil
	}

	got, err := Collect(Seq(context.Background(), 10, fetch))

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, got)
	assert.Equal(t, 2, pages)
}

func TestSeq_EarlyBreakStopsFetching(t *testing.T) {
	var calls []call

	n := 0
	for _, err := range Seq(context.Background(), 10, source(1000, &calls)) {
		require.NoError(t, err)
		n++
		if n == 15 {
			break
		}
	}

	assert.Len(t, calls, 2)
}

func TestSeq_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls []call

	_, err := Collect(Seq(ctx, 10, source(5, &calls)))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, calls)
}

func TestSeq_InvalidPageSize(t *testing.T) {
	var calls []call

	_, err := Collect(Seq(context.Background(), 0, source(5, &calls)))

	assert.Error(t, err)
	assert.Empty(t, calls)
}
