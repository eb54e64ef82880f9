package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakePinger struct {
	err   error
	calls int
}

func (f *fakePinger) Ping(_ context.Context) error {
	f.calls++
	return f.err
}

func TestCheckAllHealthy(t *testing.T) {
	m := NewMonitor(&fakePinger{}, &fakePinger{}, &fakePinger{})

	status := m.Check(context.Background())
	assert.True(t, status.RetrievalAvailable)
	assert.True(t, status.VectorStoreAvailable)
	assert.True(t, status.GraphAvailable)
}

func TestCheckOneFailureIsIsolated(t *testing.T) {
	retrieval := &fakePinger{}
	vector := &fakePinger{err: errors.New("connection refused")}
	graph := &fakePinger{}
	m := NewMonitor(retrieval, vector, graph)

	status := m.Check(context.Background())
	assert.True(t, status.RetrievalAvailable)
	assert.False(t, status.VectorStoreAvailable)
	assert.True(t, status.GraphAvailable)

	assert.Equal(t, 1, retrieval.calls)
	assert.Equal(t, 1, graph.calls)
}

func TestCheckNilPingerReportsUnavailable(t *testing.T) {
	m := NewMonitor(&fakePinger{}, nil, nil)

	status := m.Check(context.Background())
	assert.True(t, status.RetrievalAvailable)
	assert.False(t, status.VectorStoreAvailable)
	assert.False(t, status.GraphAvailable)
}

func TestCheckAllDown(t *testing.T) {
	down := errors.New("timeout")
	m := NewMonitor(&fakePinger{err: down}, &fakePinger{err: down}, &fakePinger{err: down})

	status := m.Check(context.Background())
	assert.False(t, status.RetrievalAvailable)
	assert.False(t, status.VectorStoreAvailable)
	assert.False(t, status.GraphAvailable)
}
