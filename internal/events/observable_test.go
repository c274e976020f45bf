package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewObservable(t *testing.T) {
	obs := NewObservable[string](false)
	require.NotNil(t, obs)
	assert.Equal(t, 0, obs.SubscriberCount())
	assert.False(t, obs.replayLast)

	obs2 := NewObservable[int](true)
	require.NotNil(t, obs2)
	assert.True(t, obs2.replayLast)
}

func TestObservable_Subscribe_Publish_Basic(t *testing.T) {
	obs := NewObservable[string](false)

	received := make([]string, 0)
	var mu sync.Mutex

	cancel := obs.Subscribe(func(value string) {
		mu.Lock()
		received = append(received, value)
		mu.Unlock()
	})

	assert.Equal(t, 1, obs.SubscriberCount())

	obs.Publish("one")
	obs.Publish("two")

	mu.Lock()
	assert.Equal(t, []string{"one", "two"}, received)
	mu.Unlock()

	cancel()
	assert.Equal(t, 0, obs.SubscriberCount())

	obs.Publish("three")
	mu.Lock()
	// Still two values since the subscription was cancelled
	assert.Equal(t, 2, len(received))
	mu.Unlock()
}

func TestObservable_MultipleSubscribers(t *testing.T) {
	obs := NewObservable[int](false)

	received1 := make([]int, 0)
	received2 := make([]int, 0)
	var mu sync.Mutex

	cancel1 := obs.Subscribe(func(value int) {
		mu.Lock()
		received1 = append(received1, value)
		mu.Unlock()
	})
	cancel2 := obs.Subscribe(func(value int) {
		mu.Lock()
		received2 = append(received2, value)
		mu.Unlock()
	})

	assert.Equal(t, 2, obs.SubscriberCount())

	obs.Publish(42)
	obs.Publish(100)

	mu.Lock()
	assert.Equal(t, []int{42, 100}, received1)
	assert.Equal(t, []int{42, 100}, received2)
	mu.Unlock()

	cancel1()
	cancel2()
	assert.Equal(t, 0, obs.SubscriberCount())
}

func TestObservable_ReplayLast_NoPublishYet(t *testing.T) {
	obs := NewObservable[string](true)

	received := make([]string, 0)
	var mu sync.Mutex

	cancel := obs.Subscribe(func(value string) {
		mu.Lock()
		received = append(received, value)
		mu.Unlock()
	})

	mu.Lock()
	assert.Equal(t, 0, len(received))
	mu.Unlock()

	cancel()
}

func TestObservable_ReplayLast_AfterPublish(t *testing.T) {
	obs := NewObservable[string](true)

	obs.Publish("early")

	received := make([]string, 0)
	var mu sync.Mutex
	cancel := obs.Subscribe(func(value string) {
		mu.Lock()
		received = append(received, value)
		mu.Unlock()
	})
	defer cancel()

	// New subscriber receives the last published value immediately
	mu.Lock()
	assert.Equal(t, []string{"early"}, received)
	mu.Unlock()

	obs.Publish("later")
	mu.Lock()
	assert.Equal(t, []string{"early", "later"}, received)
	mu.Unlock()
}

func TestObservable_ReplayLast_OnlyMostRecent(t *testing.T) {
	obs := NewObservable[int](true)

	obs.Publish(1)
	obs.Publish(2)
	obs.Publish(3)

	var got []int
	cancel := obs.Subscribe(func(value int) {
		got = append(got, value)
	})
	defer cancel()

	assert.Equal(t, []int{3}, got)
}

func TestObservable_SubscribeNilPanics(t *testing.T) {
	obs := NewObservable[string](false)
	assert.Panics(t, func() {
		obs.Subscribe(nil)
	})
}

func TestObservable_ConcurrentPublish(t *testing.T) {
	obs := NewObservable[int](false)

	var mu sync.Mutex
	count := 0
	cancel := obs.Subscribe(func(int) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			obs.Publish(v)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	assert.Equal(t, 10, count)
	mu.Unlock()
}
