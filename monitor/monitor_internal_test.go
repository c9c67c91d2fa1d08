package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peerd-dev/peerd/sysinfo"
)

type collectorMock struct {
	calls int
	err   error
}

func (c *collectorMock) Collect() (sysinfo.Sample, error) {
	if c.err != nil {
		return sysinfo.Sample{}, c.err
	}
	c.calls++
	return sysinfo.Sample{Timestamp: time.Unix(0, int64(c.calls))}, nil
}

type appenderMock struct {
	put    []sysinfo.Sample
	trims  []int
	putErr error
}

func (a *appenderMock) Put(sample sysinfo.Sample) error {
	if a.putErr != nil {
		return a.putErr
	}
	a.put = append(a.put, sample)
	return nil
}

func (a *appenderMock) Trim(keep int) error {
	a.trims = append(a.trims, keep)
	return nil
}

func TestCollectAndStore(t *testing.T) {
	c := &collectorMock{}
	a := &appenderMock{}
	m := NewMonitor(c, a, time.Second, 3)
	m.collectAndStore()
	require.Len(t, a.put, 1)
	assert.Equal(t, time.Unix(0, 1), a.put[0].Timestamp)
	assert.Equal(t, []int{3}, a.trims)
}

func TestCollectFailure(t *testing.T) {
	c := &collectorMock{err: errors.New("collect failed")}
	a := &appenderMock{}
	m := NewMonitor(c, a, time.Second, 3)
	m.collectAndStore()
	assert.Empty(t, a.put)
	assert.Empty(t, a.trims)
}

func TestStoreFailure(t *testing.T) {
	c := &collectorMock{}
	a := &appenderMock{putErr: errors.New("store failed")}
	m := NewMonitor(c, a, time.Second, 3)
	m.collectAndStore()
	assert.Empty(t, a.trims)
}

func TestZeroRetention(t *testing.T) {
	c := &collectorMock{}
	a := &appenderMock{}
	m := NewMonitor(c, a, time.Second, 0)
	m.collectAndStore()
	require.Len(t, a.put, 1)
	assert.Empty(t, a.trims)
}

func TestRunShutdown(t *testing.T) {
	c := &collectorMock{}
	a := &appenderMock{}
	m := NewMonitor(c, a, 5*time.Millisecond, 3)
	ctx, cancel := context.WithCancel(context.Background())
	m.Run(ctx)
	time.Sleep(100 * time.Millisecond)
	cancel()
	m.Shutdown()
	assert.NotEmpty(t, a.put)
}
