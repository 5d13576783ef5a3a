package executor

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_OrderPreserving(t *testing.T) {
	pool := NewWorkerPool(4)

	inputs := make([]interface{}, 100)
	for i := range inputs {
		inputs[i] = i
	}

	results, err := pool.ExecuteParallel(NewContext(nil), inputs, func(ctx Context, input interface{}) (interface{}, error) {
		return input.(int) * 2, nil
	})
	require.NoError(t, err)
	require.Len(t, results, 100)
	for i, result := range results {
		assert.Equal(t, i*2, result)
	}
}

func TestWorkerPool_ErrorHandling(t *testing.T) {
	pool := NewWorkerPool(4)

	inputs := make([]interface{}, 10)
	for i := range inputs {
		inputs[i] = i
	}

	_, err := pool.ExecuteParallel(NewContext(nil), inputs, func(ctx Context, input interface{}) (interface{}, error) {
		if input.(int) == 5 {
			return nil, fmt.Errorf("intentional error at %d", input)
		}
		return input, nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 5")
	assert.Contains(t, err.Error(), "intentional error")
}

func TestWorkerPool_RespectsLimit(t *testing.T) {
	pool := NewWorkerPool(2)

	var active, peak atomic.Int32
	inputs := make([]interface{}, 20)
	_, err := pool.ExecuteParallel(NewContext(nil), inputs, func(ctx Context, input interface{}) (interface{}, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		active.Add(-1)
		return nil, nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestWorkerPool_Defaults(t *testing.T) {
	assert.Equal(t, runtime.NumCPU(), NewWorkerPool(0).GetWorkerCount())

	results, err := NewWorkerPool(1).ExecuteParallel(NewContext(nil), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
