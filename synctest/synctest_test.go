package synctest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrialReportsFirstFailure(t *testing.T) {
	err := Trial(10, func(trial int) error {
		if trial == 3 {
			return errors.New("boom")
		}
		return nil
	})
	assert.ErrorContains(t, err, "trial 3")
}

func TestTrialAllPass(t *testing.T) {
	var calls atomic.Int64
	err := Trial(50, func(trial int) error {
		calls.Add(1)
		return nil
	})
	assert.NoError(t, err)
	assert.EqualValues(t, 50, calls.Load())
}

func TestWorkersFanOutAndJoin(t *testing.T) {
	var sum atomic.Int64
	err := Workers(context.Background(), 20, func(ctx context.Context, id int) error {
		sum.Add(int64(id))
		return nil
	})
	assert.NoError(t, err)
	assert.EqualValues(t, 190, sum.Load())
}

func TestWorkersPropagatesError(t *testing.T) {
	err := Workers(context.Background(), 5, func(ctx context.Context, id int) error {
		if id == 2 {
			return errors.New("worker failed")
		}
		return nil
	})
	assert.ErrorContains(t, err, "worker failed")
}

func TestSum(t *testing.T) {
	assert.Equal(t, 6, Sum([]int{1, 2, 3}))
	assert.Equal(t, int64(0), Sum([]int64{}))
	assert.Equal(t, uint32(10), Sum([]uint32{4, 6}))
}

func TestAllocTrackerBalance(t *testing.T) {
	var tracker AllocTracker
	tracker.Alloc()
	tracker.Alloc()
	tracker.Free()

	assert.False(t, tracker.Balanced())
	assert.EqualValues(t, 1, tracker.Outstanding())

	tracker.Free()
	assert.True(t, tracker.Balanced())
	assert.EqualValues(t, 0, tracker.Outstanding())
}
