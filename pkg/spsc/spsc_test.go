package spsc

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultCapacity(t *testing.T) {
	rx, tx := New[int](0)
	assert.Equal(t, DefaultCapacity, rx.Cap())
	assert.Equal(t, DefaultCapacity, tx.Cap())

	rx, tx = New[int](-3)
	assert.Equal(t, DefaultCapacity, rx.Cap())

	rx, tx = New[int](4)
	assert.Equal(t, 4, rx.Cap())
	assert.Equal(t, 4, tx.Cap())
	assert.True(t, rx.IsOpen())
	assert.True(t, tx.IsOpen())
}

func TestExampleScenario(t *testing.T) {
	rx, tx := New[int](4)

	for i := 1; i <= 4; i++ {
		assert.True(t, tx.TrySend(i), "try_send(%d)", i)
	}
	assert.False(t, tx.TrySend(5))

	assert.Equal(t, 1, rx.Receive())
	assert.True(t, tx.TrySend(5))

	for want := 2; want <= 5; want++ {
		assert.Equal(t, want, rx.Receive())
	}
}

func TestSyncSingleWriter(t *testing.T) {
	rx, tx := New[int](0)
	tx.Send(10)
	tx.Send(20)
	tx.Send(30)

	assert.Equal(t, 10, rx.Receive())
	assert.Equal(t, 20, rx.Receive())
	assert.Equal(t, 30, rx.Receive())

	_, ok := rx.TryReceive()
	assert.False(t, ok)
	tx.Send(40)
	assert.Equal(t, 40, rx.Receive())

	assert.True(t, tx.IsOpen())
	assert.True(t, rx.IsOpen())

	func() {
		moved := rx.Move()
		assert.True(t, moved.IsOpen())
	}()

	// rx is detached; the moved handle went out of scope and its cleanup
	// closes the channel once collected.
	assert.False(t, rx.IsOpen())
	assert.Eventually(t, func() bool {
		runtime.GC()
		return !tx.IsOpen()
	}, 5*time.Second, 10*time.Millisecond)
}

func TestFIFOOrder(t *testing.T) {
	rx, tx := New[string](8)

	values := []string{"a", "b", "c", "d", "e"}
	for _, v := range values {
		tx.Send(v)
	}
	for _, want := range values {
		got, ok := rx.TryReceive()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	// interleaved sends and receives across many wraps
	next := 0
	for i := 0; i < 100; i++ {
		require.True(t, tx.TrySend(string(rune('A'+i%26))))
		if i%3 == 2 {
			for rx.Len() > 0 {
				got, ok := rx.TryReceive()
				require.True(t, ok)
				assert.Equal(t, string(rune('A'+next%26)), got)
				next++
			}
		}
	}
}

func TestTryReceive_EmptyDoesNotBlock(t *testing.T) {
	rx, _ := New[int](4)

	done := make(chan bool)
	go func() {
		_, ok := rx.TryReceive()
		done <- ok
	}()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("TryReceive blocked on an empty channel")
	}
}

func TestTrySend_FullLeavesBufferIntact(t *testing.T) {
	rx, tx := New[int](3)

	for i := 0; i < 3; i++ {
		require.True(t, tx.TrySend(i))
	}
	assert.False(t, tx.TrySend(99))
	assert.False(t, tx.TrySend(100))
	assert.Equal(t, 3, tx.Len())

	for want := 0; want < 3; want++ {
		got, ok := rx.TryReceive()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := rx.TryReceive()
	assert.False(t, ok)
	runtime.KeepAlive(tx)
}

func TestCapacityRoundTrip_Wraps(t *testing.T) {
	const capacity = 5
	rx, tx := New[int](capacity)

	for round := 0; round < 4; round++ {
		for i := 0; i < capacity; i++ {
			require.True(t, tx.TrySend(round*capacity+i))
		}
		require.False(t, tx.TrySend(-1))
		for i := 0; i < capacity; i++ {
			assert.Equal(t, round*capacity+i, rx.Receive())
		}
	}

	// one receive frees exactly one slot
	for i := 0; i < capacity; i++ {
		require.True(t, tx.TrySend(i))
	}
	assert.Equal(t, 0, rx.Receive())
	assert.True(t, tx.TrySend(capacity))
	assert.False(t, tx.TrySend(capacity+1))
	for want := 1; want <= capacity; want++ {
		assert.Equal(t, want, rx.Receive())
	}
}

func TestTrySendAndReceive(t *testing.T) {
	rx, tx := New[int](0)

	_, ok := rx.TryReceive()
	assert.False(t, ok)
	assert.True(t, tx.TrySend(10))
	v, ok := rx.TryReceive()
	assert.True(t, ok)
	assert.Equal(t, 10, v)
	assert.True(t, rx.IsOpen())
	assert.True(t, tx.IsOpen())

	rx.Close()

	// repeated closes from either side are no-ops
	tx.Close()
	rx.Close()

	assert.False(t, tx.IsOpen())
	assert.False(t, rx.IsOpen())
	assert.False(t, tx.TrySend(10))
	_, ok = rx.TryReceive()
	assert.False(t, ok)
}

func TestClose_VisibleFromPeer(t *testing.T) {
	t.Run("receiver closes", func(t *testing.T) {
		rx, tx := New[int](2)
		rx.Close()
		assert.False(t, tx.IsOpen())
	})

	t.Run("sender closes", func(t *testing.T) {
		rx, tx := New[int](2)
		tx.Close()
		assert.False(t, rx.IsOpen())
	})

	t.Run("sender dropped", func(t *testing.T) {
		rx, _ := New[int](2)
		assert.Eventually(t, func() bool {
			runtime.GC()
			return !rx.IsOpen()
		}, 5*time.Second, 10*time.Millisecond)
	})
}

func TestClose_KeepsBufferedValues(t *testing.T) {
	rx, tx := New[int](4)
	tx.Send(1)
	tx.Send(2)
	tx.Close()

	// TryReceive reports closed, but the blocking Receive does not look at
	// the flag and still drains.
	_, ok := rx.TryReceive()
	assert.False(t, ok)
	assert.Equal(t, 1, rx.Receive())
	assert.Equal(t, 2, rx.Receive())
}

func TestMove_SourceIsInert(t *testing.T) {
	rx, tx := New[int](4)

	moved := rx.Move()
	assert.False(t, rx.IsOpen())
	assert.Equal(t, 0, rx.Cap())

	rx.Close()
	assert.True(t, tx.IsOpen())
	assert.True(t, moved.IsOpen())

	require.True(t, tx.TrySend(7))
	_, ok := rx.TryReceive()
	assert.False(t, ok)
	assert.Equal(t, 7, moved.Receive())

	assert.PanicsWithValue(t, ErrDetached, func() { rx.Receive() })

	again := rx.Move()
	assert.False(t, again.IsOpen())

	txMoved := tx.Move()
	assert.False(t, tx.TrySend(1))
	assert.PanicsWithValue(t, ErrDetached, func() { tx.Send(1) })
	tx.Close()
	assert.True(t, txMoved.IsOpen())

	// collecting a detached source must not close the channel
	rx, tx = nil, nil
	for i := 0; i < 3; i++ {
		runtime.GC()
	}
	time.Sleep(20 * time.Millisecond)
	assert.True(t, moved.IsOpen())
	assert.True(t, txMoved.IsOpen())
}

func TestConcurrentProducerConsumer(t *testing.T) {
	const sampleSize = 1000
	rx, tx := New[int](4)

	got := make([]int, 0, sampleSize)
	var wg sync.WaitGroup
	wg.Add(2)

	go func(rx *Receiver[int]) {
		defer wg.Done()
		for i := 0; i < sampleSize; i++ {
			got = append(got, rx.Receive())
		}
	}(rx.Move())

	go func(tx *Sender[int]) {
		defer wg.Done()
		for i := 0; i < sampleSize; i++ {
			tx.Send(i)
		}
	}(tx.Move())

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("producer/consumer deadlocked")
	}

	require.Len(t, got, sampleSize)
	for i, v := range got {
		if v != i {
			t.Fatalf("position %d: got %d", i, v)
		}
	}
}

func TestThreadSingleWriter(t *testing.T) {
	const sampleSize = 1000
	rx, tx := New[int](0)

	go func(tx *Sender[int]) {
		for i := 0; i < sampleSize; i++ {
			tx.Send(i)
		}
	}(tx.Move())

	for want := 0; want < sampleSize; want++ {
		require.Equal(t, want, rx.Receive())
	}
}

func TestConcurrentTryOperations(t *testing.T) {
	const sampleSize = 5000
	rx, tx := New[int](4)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < sampleSize; {
			if tx.TrySend(i) {
				i++
				continue
			}
			runtime.Gosched()
		}
	}()

	for want := 0; want < sampleSize; {
		v, ok := rx.TryReceive()
		if !ok {
			runtime.Gosched()
			continue
		}
		require.Equal(t, want, v)
		want++
	}
	wg.Wait()

	stats := rx.Stats()
	assert.Equal(t, uint64(sampleSize), stats.Sent)
	assert.Equal(t, uint64(sampleSize), stats.Received)
	assert.Equal(t, 0, rx.Len())
}

func TestStats(t *testing.T) {
	rx, tx := New[int](2)
	tx.Send(1)
	tx.Send(2)
	assert.False(t, tx.TrySend(3))
	rx.Receive()

	s := tx.Stats()
	assert.Equal(t, uint64(2), s.Sent)
	assert.Equal(t, uint64(1), s.Received)
	assert.Equal(t, uint64(1), s.Rejected)
	assert.True(t, s.Open)
	assert.Equal(t, 1, rx.Len())
	assert.Equal(t, 1, tx.Len())

	rx.Close()
	assert.False(t, tx.Stats().Open)

	rx.Move()
	assert.Equal(t, Stats{}, rx.Stats())
}
