package stats

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshot(t *testing.T) {
	s := NewSnapshot(10, 3, 1)
	assert.InDelta(t, 0.75, s.ApprovalRate, 1e-9)

	assert.Zero(t, NewSnapshot(4, 0, 0).ApprovalRate)
}

func TestMemoryRecorderConcurrent(t *testing.T) {
	r := NewMemoryRecorder()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.RecordGenerated(ctx)
			_ = r.RecordApproved(ctx)
		}()
	}
	wg.Wait()
	require.NoError(t, r.RecordDenied(ctx))

	s, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), s.Generated)
	assert.Equal(t, int64(50), s.Approved)
	assert.Equal(t, int64(1), s.Denied)
}
