package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

func public(id int64) *domain.Bookmark {
	return &domain.Bookmark{ID: id, Title: "b", URL: "https://example.com", Public: true}
}

func drain(sub *Subscription) []ChangeEvent {
	var out []ChangeEvent
	for {
		ev, ok := sub.TryNext()
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

func TestBus_DeliversInPublishOrder(t *testing.T) {
	bus := NewBus(DefaultCapacity, logger.NewNop())
	sub := bus.Subscribe(nil)
	defer sub.Close()

	bus.Publish(NewCreated(public(10)))
	bus.Publish(NewUpdated(public(10)))
	bus.Publish(NewDeleted(10))

	got := drain(sub)
	require.Len(t, got, 3)
	assert.Equal(t, KindCreated, got[0].Kind)
	assert.Equal(t, KindUpdated, got[1].Kind)
	assert.Equal(t, KindDeleted, got[2].Kind)
	assert.Equal(t, int64(10), got[2].BookmarkID)
	assert.Nil(t, got[2].Bookmark)
}

func TestBus_LateJoinSeesOnlyLaterEvents(t *testing.T) {
	bus := NewBus(DefaultCapacity, nil)
	bus.Publish(NewCreated(public(1)))

	sub := bus.Subscribe(nil)
	defer sub.Close()
	assert.Equal(t, 0, sub.Len())

	bus.Publish(NewCreated(public(2)))
	got := drain(sub)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].BookmarkID)
}

func TestBus_OverflowDropsOldest(t *testing.T) {
	bus := NewBus(256, logger.NewNop())
	sub := bus.Subscribe(nil)
	defer sub.Close()

	for i := int64(1); i <= 300; i++ {
		bus.Publish(NewCreated(public(i)))
	}

	assert.Equal(t, 256, sub.Len())
	assert.Equal(t, uint64(44), sub.Dropped())

	got := drain(sub)
	require.Len(t, got, 256)
	for i, ev := range got {
		assert.Equal(t, int64(45+i), ev.BookmarkID)
	}
}

func TestBus_SlowSubscriberDoesNotAffectOthers(t *testing.T) {
	bus := NewBus(4, nil)
	slow := bus.Subscribe(nil)
	defer slow.Close()
	fast := bus.Subscribe(nil)
	defer fast.Close()

	var seen []int64
	for i := int64(1); i <= 10; i++ {
		bus.Publish(NewCreated(public(i)))
		ev, ok := fast.TryNext()
		require.True(t, ok)
		seen = append(seen, ev.BookmarkID)
	}

	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, seen)
	assert.Equal(t, uint64(0), fast.Dropped())
	assert.Equal(t, uint64(6), slow.Dropped())
}

func TestBus_KindFilter(t *testing.T) {
	bus := NewBus(DefaultCapacity, nil)
	k := KindDeleted
	sub := bus.Subscribe(&k)
	defer sub.Close()

	bus.Publish(NewCreated(public(1)))
	bus.Publish(NewDeleted(1))
	bus.Publish(NewUpdated(public(2)))

	got := drain(sub)
	require.Len(t, got, 1)
	assert.Equal(t, KindDeleted, got[0].Kind)
}

func TestBus_UnsubscribeIsImmediateAndIdempotent(t *testing.T) {
	bus := NewBus(DefaultCapacity, nil)
	sub := bus.Subscribe(nil)
	require.Equal(t, 1, bus.SubscriberCount())

	bus.Publish(NewCreated(public(1)))
	bus.Unsubscribe(sub)
	bus.Unsubscribe(sub)
	sub.Close()

	assert.Equal(t, 0, bus.SubscriberCount())
	assert.Equal(t, 0, sub.Len())

	bus.Publish(NewCreated(public(2)))
	_, err := sub.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSubscription_NextWakesOnPublish(t *testing.T) {
	bus := NewBus(DefaultCapacity, nil)
	sub := bus.Subscribe(nil)
	defer sub.Close()

	got := make(chan ChangeEvent, 1)
	go func() {
		ev, err := sub.Next(context.Background())
		if err == nil {
			got <- ev
		}
	}()

	time.Sleep(10 * time.Millisecond)
	bus.Publish(NewCreated(public(7)))

	select {
	case ev := <-got:
		assert.Equal(t, int64(7), ev.BookmarkID)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestSubscription_NextHonoursContext(t *testing.T) {
	bus := NewBus(DefaultCapacity, nil)
	sub := bus.Subscribe(nil)
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := sub.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubscription_CloseUnblocksNext(t *testing.T) {
	bus := NewBus(DefaultCapacity, nil)
	sub := bus.Subscribe(nil)

	errs := make(chan error, 1)
	go func() {
		_, err := sub.Next(context.Background())
		errs <- err
	}()

	time.Sleep(10 * time.Millisecond)
	sub.Close()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Next did not return after Close")
	}
}

func TestBus_CloseDetachesEveryone(t *testing.T) {
	bus := NewBus(DefaultCapacity, nil)
	a := bus.Subscribe(nil)
	b := bus.Subscribe(nil)

	bus.Close()

	assert.Equal(t, 0, bus.SubscriberCount())
	_, err := a.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	_, err = b.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBus_SubscribeAfterClose(t *testing.T) {
	bus := NewBus(DefaultCapacity, nil)
	bus.Close()
	bus.Close()

	sub := bus.Subscribe(nil)
	bus.Publish(NewCreated(public(1)))

	assert.Equal(t, 0, bus.SubscriberCount())
	_, err := sub.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewBus_CapacityFallback(t *testing.T) {
	bus := NewBus(0, nil)
	sub := bus.Subscribe(nil)
	defer sub.Close()
	assert.Equal(t, DefaultCapacity, sub.Cap())
}

func TestBus_SnapshotIsIsolatedFromCaller(t *testing.T) {
	bus := NewBus(DefaultCapacity, nil)
	sub := bus.Subscribe(nil)
	defer sub.Close()

	b := public(1)
	bus.Publish(NewCreated(b))
	b.Title = "changed after publish"

	ev, ok := sub.TryNext()
	require.True(t, ok)
	assert.Equal(t, "b", ev.Bookmark.Title)
}

func TestBus_ConcurrentPublishSubscribe(t *testing.T) {
	bus := NewBus(DefaultCapacity, nil)

	observers := make([]*Subscription, 4)
	for i := range observers {
		observers[i] = bus.Subscribe(nil)
		defer observers[i].Close()
	}

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				bus.Publish(NewCreated(public(int64(p*100 + i))))
			}
		}(p)
	}
	for c := 0; c < 8; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				sub := bus.Subscribe(nil)
				sub.Close()
			}
		}()
	}
	wg.Wait()

	// Serialised publishes: every observer holds the same sequence.
	reference := drain(observers[0])
	require.Len(t, reference, 200)
	for _, sub := range observers[1:] {
		got := drain(sub)
		require.Len(t, got, len(reference))
		for i := range got {
			assert.Equal(t, reference[i].BookmarkID, got[i].BookmarkID)
		}
	}
	assert.Equal(t, len(observers), bus.SubscriberCount())
}

func TestKind_String(t *testing.T) {
	cases := map[Kind]string{
		KindCreated: "created",
		KindUpdated: "updated",
		KindDeleted: "deleted",
		Kind(0):     "kind(0)",
	}
	for k, want := range cases {
		assert.Equal(t, want, k.String())
	}

	// Kinds and their stream constructors live side by side.
	bus := NewBus(DefaultCapacity, nil)
	defer bus.Close()
	created := Created(bus, nil)
	defer created.Close()
	bus.Publish(ChangeEvent{Kind: KindCreated, Bookmark: public(1), BookmarkID: 1})
	got, err := created.Next(ctxTimeout(t))
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
}
