package signal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBroker_PublishSubscribe(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	b := NewBroker[int]()
	ch := b.Subscribe(ctx)

	b.Publish(1)
	b.Publish(2)

	require.Equal(t, 1, <-ch)
	require.Equal(t, 2, <-ch)

	last, ok := b.Latest()
	require.True(t, ok)
	require.Equal(t, 2, last)
}

func TestBroker_LateSubscriberSeesLatest(t *testing.T) {
	t.Parallel()

	b := NewBroker[string]()
	b.Publish("old")
	b.Publish("current")

	ch := b.Subscribe(t.Context())
	require.Equal(t, "current", <-ch)
}

func TestBroker_SubscribeAfterShutdown(t *testing.T) {
	t.Parallel()

	b := NewBroker[int]()
	b.Shutdown()

	ch := b.Subscribe(t.Context())
	_, open := <-ch
	require.False(t, open)
}

func TestBroker_UnsubscribeOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	b := NewBroker[int]()
	ch := b.Subscribe(ctx)
	cancel()

	for range ch {
	}
	// Publishing after the subscriber is gone must not panic.
	b.Publish(42)
}

func TestDistinct_SuppressesConsecutiveDuplicates(t *testing.T) {
	t.Parallel()

	in := NewBroker[float64]()
	out := Distinct(t.Context(), in)
	ch := out.Subscribe(t.Context())

	for _, v := range []float64{0, 0, 120, 120, 120, 0} {
		in.Publish(v)
	}

	require.Equal(t, 0.0, <-ch)
	require.Equal(t, 120.0, <-ch)
	require.Equal(t, 0.0, <-ch)

	select {
	case v := <-ch:
		t.Fatalf("unexpected extra value %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDebouncer_ZeroDelayIsSynchronous(t *testing.T) {
	t.Parallel()

	var d Debouncer[int]
	v, now := d.Push(7, 0)
	require.True(t, now)
	require.Equal(t, 7, v)
	require.Nil(t, d.C())
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	t.Parallel()

	// Pushes arriving faster than the delay must hold the emission back
	// until the burst goes quiet.
	var d Debouncer[int]
	const delay = 40 * time.Millisecond
	_, now := d.Push(1, delay)
	require.False(t, now)
	time.Sleep(15 * time.Millisecond)
	_, now = d.Push(2, delay)
	require.False(t, now)
	time.Sleep(15 * time.Millisecond)
	last := time.Now()
	_, now = d.Push(3, delay)
	require.False(t, now)

	<-d.C()
	require.GreaterOrEqual(t, time.Since(last), delay)
	v, ok := d.Fire()
	require.True(t, ok)
	require.Equal(t, 3, v)
	require.Nil(t, d.C())
}

func TestDebouncer_PushRestartsQuietPeriod(t *testing.T) {
	t.Parallel()

	var d Debouncer[int]
	d.Push(1, 40*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	// The second push must reschedule the emission, not ride out the
	// first push's timer.
	last := time.Now()
	d.Push(2, 40*time.Millisecond)

	select {
	case <-d.C():
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never fired")
	}
	require.GreaterOrEqual(t, time.Since(last), 40*time.Millisecond)

	v, ok := d.Fire()
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestDebouncer_ZeroDelayCancelsPending(t *testing.T) {
	t.Parallel()

	var d Debouncer[int]
	d.Push(1, 10*time.Millisecond)
	v, now := d.Push(2, 0)
	require.True(t, now)
	require.Equal(t, 2, v)

	_, ok := d.Fire()
	require.False(t, ok)
}
