package systems

import (
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobSystemRejectsBadSizes(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestJobSystemRunAll(t *testing.T) {
	js, err := NewJobSystem(4, 2)
	require.NoError(t, err)
	defer js.Shutdown()

	var sum atomic.Int64
	jobs := make([]func() error, 100)
	for i := range jobs {
		n := int64(i)
		jobs[i] = func() error {
			sum.Add(n)
			return nil
		}
	}
	require.NoError(t, js.RunAll(jobs...))
	assert.Equal(t, int64(99*100/2), sum.Load())
}

func TestJobSystemRunAllCombinesFailures(t *testing.T) {
	js, err := NewJobSystem(2, 0)
	require.NoError(t, err)
	defer js.Shutdown()

	first := errors.New("first")
	second := errors.New("second")
	err = js.RunAll(
		func() error { return first },
		func() error { return nil },
		func() error { return second },
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, first) || errors.Is(err, second))
}

func TestJobSystemSubmitCallbacks(t *testing.T) {
	js, err := NewJobSystem(1, 1)
	require.NoError(t, err)

	var completed, failed atomic.Int32
	js.Submit(JobTask{Run: func() error { return nil }, OnComplete: func() { completed.Add(1) }})
	js.Submit(JobTask{Run: func() error { return errors.New("boom") }, OnFailure: func(error) { failed.Add(1) }})
	require.NoError(t, js.Shutdown())

	assert.Equal(t, int32(1), completed.Load())
	assert.Equal(t, int32(1), failed.Load())
}
