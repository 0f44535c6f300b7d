package tracker

import (
	"sync"
	"testing"

	"tims/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(h *events.Hub) *[]bool {
	var mu sync.Mutex
	seen := []bool{}
	h.Busy().Subscribe(func(b bool) {
		mu.Lock()
		seen = append(seen, b)
		mu.Unlock()
	})
	return &seen
}

func TestNStartsNFinishesPublishTwice(t *testing.T) {
	for _, n := range []int{1, 2, 5, 20} {
		h := events.NewHub()
		seen := record(h)
		tr := New(h.Busy())

		for i := 0; i < n; i++ {
			tr.Started()
		}
		require.Equal(t, []bool{true}, *seen)
		require.True(t, tr.Busy())

		for i := 0; i < n; i++ {
			tr.Finished()
		}
		assert.Equal(t, []bool{true, false}, *seen, "n=%d", n)
		assert.Zero(t, tr.Count())
	}
}

func TestFinishedWithoutStartedClampsAtZero(t *testing.T) {
	h := events.NewHub()
	seen := record(h)
	tr := New(h.Busy())

	tr.Finished()
	tr.Finished()
	assert.Zero(t, tr.Count())
	assert.Empty(t, *seen)

	// later requests still signal
	tr.Started()
	tr.Finished()
	tr.Finished()
	assert.Equal(t, []bool{true, false}, *seen)
}

func TestOverlappingRequests(t *testing.T) {
	h := events.NewHub()
	seen := record(h)
	tr := New(h.Busy())

	tr.Started() // first read
	tr.Started() // second read
	assert.Equal(t, []bool{true}, *seen)

	tr.Finished() // either one resolves
	assert.Equal(t, []bool{true}, *seen)
	assert.Equal(t, 1, tr.Count())

	tr.Finished()
	assert.Equal(t, []bool{true, false}, *seen)
}

func TestInitialPending(t *testing.T) {
	h := events.NewHub()
	seen := record(h)
	tr := New(h.Busy(), WithInitial(1))

	assert.True(t, tr.Busy())
	tr.Started()
	tr.Finished()
	assert.Empty(t, *seen)

	tr.Finished()
	assert.Equal(t, []bool{false}, *seen)
	assert.Zero(t, tr.Count())
}

func TestConcurrentStartFinishEndsIdle(t *testing.T) {
	h := events.NewHub()
	seen := record(h)
	tr := New(h.Busy())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Started()
			tr.Finished()
		}()
	}
	wg.Wait()

	assert.Zero(t, tr.Count())
	got := *seen
	if len(got) > 0 {
		assert.False(t, got[len(got)-1])
		for i := 1; i < len(got); i++ {
			assert.NotEqual(t, got[i-1], got[i], "busy states must alternate")
		}
	}
}
