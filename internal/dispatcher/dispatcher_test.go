package dispatcher

import (
	"bidwar/internal/metrics"
	"bidwar/internal/models"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func rankEvent(handle string) models.Event {
	return models.Event{Kind: models.EventRankChanged, Handle: handle}
}

func TestDispatcher_OrderedDelivery(t *testing.T) {
	t.Parallel()
	d := New(128, nil)
	defer d.Close()

	subA := d.Subscribe(context.Background(), "proj1")
	subB := d.Subscribe(context.Background(), "proj1")
	other := d.Subscribe(context.Background(), "proj2")
	require.Equal(t, 2, d.Subscribers("proj1"))

	for i := 0; i < 100; i++ {
		published := d.Publish("proj1", rankEvent(fmt.Sprint(i)))
		require.Equal(t, int64(i+1), published.Sequence)
		require.Equal(t, "proj1", published.ProjectID)
	}
	d.Publish("proj2", rankEvent("x"))

	for _, sub := range []*Subscription{subA, subB} {
		for i := 0; i < 100; i++ {
			evt := <-sub.C
			require.Equal(t, int64(i+1), evt.Sequence)
			require.Equal(t, fmt.Sprint(i), evt.Handle)
		}
	}

	// topics keep independent sequences
	evt := <-other.C
	require.Equal(t, int64(1), evt.Sequence)
	require.Equal(t, "proj2", evt.ProjectID)
}

func TestDispatcher_ConcurrentPublishKeepsOrder(t *testing.T) {
	t.Parallel()
	d := New(1000, nil)
	defer d.Close()
	sub := d.Subscribe(context.Background(), "proj1")

	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				d.Publish("proj1", rankEvent(fmt.Sprintf("%d-%d", w, i)))
			}
		}(w)
	}
	wg.Wait()

	var last int64
	for i := 0; i < 500; i++ {
		evt := <-sub.C
		require.Greater(t, evt.Sequence, last)
		last = evt.Sequence
	}
	require.Equal(t, int64(500), last)
}

func TestDispatcher_SlowSubscriberDrops(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	d := New(2, m)
	defer d.Close()

	slow := d.Subscribe(context.Background(), "proj1")
	for i := 0; i < 5; i++ {
		d.Publish("proj1", rankEvent(fmt.Sprint(i)))
	}

	require.Equal(t, int64(1), (<-slow.C).Sequence)
	require.Equal(t, int64(2), (<-slow.C).Sequence)
	select {
	case evt := <-slow.C:
		t.Fatalf("unexpected event %d", evt.Sequence)
	default:
	}

	require.Equal(t, 2.0, counterValue(t, registry, "bidwar_events_published_total"))
	require.Equal(t, 3.0, counterValue(t, registry, "bidwar_events_dropped_total"))

	// the subscriber catches up with later events
	d.Publish("proj1", rankEvent("late"))
	require.Equal(t, int64(6), (<-slow.C).Sequence)
}

func TestSubscription_Close(t *testing.T) {
	t.Parallel()
	d := New(4, nil)
	defer d.Close()

	sub := d.Subscribe(context.Background(), "proj1")
	sub.Close()
	sub.Close()
	_, ok := <-sub.C
	require.False(t, ok)
	require.Zero(t, d.Subscribers("proj1"))

	// publishing after a subscriber left is harmless
	d.Publish("proj1", rankEvent("x"))
}

func TestSubscription_ContextCancel(t *testing.T) {
	t.Parallel()
	d := New(4, nil)
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub := d.Subscribe(ctx, "proj1")
	cancel()

	require.Eventually(t, func() bool { return d.Subscribers("proj1") == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-sub.C
	require.False(t, ok)
}

func TestDispatcher_CloseProject(t *testing.T) {
	t.Parallel()
	d := New(4, nil)
	defer d.Close()

	sub := d.Subscribe(context.Background(), "proj1")
	d.Publish("proj1", models.Event{Kind: models.EventAwarded, Handle: "BIDDER-1"})
	d.CloseProject("proj1")

	evt, ok := <-sub.C
	require.True(t, ok)
	require.Equal(t, models.EventAwarded, evt.Kind)
	_, ok = <-sub.C
	require.False(t, ok)

	sub.Close()

	late := d.Subscribe(context.Background(), "proj1")
	_, ok = <-late.C
	require.False(t, ok)

	discarded := d.Publish("proj1", rankEvent("x"))
	require.Zero(t, discarded.Sequence)
}

func TestDispatcher_Release(t *testing.T) {
	t.Parallel()
	d := New(4, nil)
	defer d.Close()

	sub := d.Subscribe(context.Background(), "proj1")
	d.Subscribe(context.Background(), "proj2")
	require.Equal(t, 2, d.Topics())

	d.Publish("proj1", models.Event{Kind: models.EventAwarded, Handle: "BIDDER-1"})
	d.Release("proj1")
	require.Equal(t, 1, d.Topics())
	require.Zero(t, d.Subscribers("proj1"))

	evt, ok := <-sub.C
	require.True(t, ok)
	require.Equal(t, models.EventAwarded, evt.Kind)
	_, ok = <-sub.C
	require.False(t, ok)

	ended := d.Ended("proj1")
	require.NotZero(t, ended.ID)
	_, ok = <-ended.C
	require.False(t, ok)
	ended.Close()
	require.Equal(t, 1, d.Topics(), "an ended subscription holds no topic")
}

// counterValue reads a registered counter by name
func counterValue(t *testing.T, registry *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			require.Len(t, f.GetMetric(), 1)
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("counter %s not registered", name)
	return 0
}
