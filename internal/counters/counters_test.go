package counters

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource map[Kind]int

func (s fixedSource) Count(ctx context.Context, kind Kind) (int, error) {
	n, ok := s[kind]
	if !ok {
		return 0, ErrUnsupported
	}
	return n, nil
}

func TestPollReplacesSnapshot(t *testing.T) {
	src := fixedSource{PendingOrders: 3, UnreadNotifications: 1}
	p := NewPoller(src, time.Minute, nil, PendingOrders, UnreadNotifications)

	snap, ok := p.Poll(context.Background())
	require.True(t, ok)
	assert.Equal(t, 3, snap.Get(PendingOrders))
	assert.Equal(t, 1, snap.Get(UnreadNotifications))

	src[PendingOrders] = 5
	delete(src, UnreadNotifications)
	snap, ok = p.Poll(context.Background())
	require.True(t, ok)
	assert.Equal(t, 5, snap.Get(PendingOrders))
	assert.Equal(t, 1, snap.Get(UnreadNotifications), "failed kind keeps previous value")
	assert.Equal(t, snap, p.Snapshot())
}

func TestPollFailureWithoutPreviousIsAbsent(t *testing.T) {
	src := SourceFunc(func(ctx context.Context, kind Kind) (int, error) {
		return 0, errors.New("down")
	})
	p := NewPoller(src, time.Minute, nil, PendingOrders)
	snap, ok := p.Poll(context.Background())
	require.True(t, ok)
	assert.Equal(t, 0, snap.Get(PendingOrders))
	_, present := snap[PendingOrders]
	assert.False(t, present)
}

func TestStalePollIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var calls atomic.Int32
	src := SourceFunc(func(ctx context.Context, kind Kind) (int, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
			return 1, nil
		}
		return 7, nil
	})
	p := NewPoller(src, time.Minute, nil, PendingOrders)

	var wg sync.WaitGroup
	var slowOK bool
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, slowOK = p.Poll(context.Background())
	}()
	<-entered

	_, ok := p.Poll(context.Background())
	require.True(t, ok)

	close(release)
	wg.Wait()
	assert.False(t, slowOK)
	assert.Equal(t, 7, p.Snapshot().Get(PendingOrders))
}

func TestStopDiscardsInFlightPoll(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	src := SourceFunc(func(ctx context.Context, kind Kind) (int, error) {
		close(entered)
		<-release
		return 4, nil
	})
	p := NewPoller(src, time.Minute, nil, PendingOrders)

	done := make(chan bool)
	go func() {
		_, ok := p.Poll(context.Background())
		done <- ok
	}()
	<-entered
	p.Stop()
	close(release)
	assert.False(t, <-done)
	assert.Empty(t, p.Snapshot())

	_, ok := p.Poll(context.Background())
	assert.False(t, ok)
}

func TestRunPollsUntilCancelled(t *testing.T) {
	var calls atomic.Int32
	src := SourceFunc(func(ctx context.Context, kind Kind) (int, error) {
		return int(calls.Add(1)), nil
	})
	p := NewPoller(src, 5*time.Millisecond, nil, PendingOrders)

	ctx, cancel := context.WithCancel(context.Background())
	published := make(chan Snapshot, 16)
	finished := make(chan struct{})
	go func() {
		p.Run(ctx, func(s Snapshot) {
			select {
			case published <- s:
			default:
			}
		})
		close(finished)
	}()

	first := <-published
	assert.Equal(t, 1, first.Get(PendingOrders))
	second := <-published
	assert.Greater(t, second.Get(PendingOrders), 1)

	cancel()
	<-finished
	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
}
