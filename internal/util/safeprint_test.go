package util

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusIsErasedByNextPrint(t *testing.T) {
	var buf bytes.Buffer
	p := NewSafePrinter(&buf)

	p.Status("working")
	p.Println("done")
	assert.Equal(t, "\r\x1b[Kworking\r\x1b[Kdone\n", buf.String())

	buf.Reset()
	p.Println("plain")
	assert.Equal(t, "plain\n", buf.String(), "no status pending, nothing to erase")
}

func TestSuspendHoldsBlocks(t *testing.T) {
	var buf bytes.Buffer
	p := NewSafePrinter(&buf)

	p.Suspend()
	assert.True(t, p.IsSuspended())
	p.Println("hidden")
	p.Status("hidden")
	p.PrintBlock("held-1")
	p.PrintBlock("held-2\n")
	assert.Empty(t, buf.String())

	p.Resume()
	assert.Equal(t, "held-1\nheld-2\n", buf.String())

	buf.Reset()
	p.PrintBlock("a\nb")
	assert.Equal(t, "a\nb\n", buf.String(), "held blocks are flushed once")
}

func TestConcurrentPrintsDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	p := NewSafePrinter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.PrintBlock("line-one\nline-two")
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, bytes.Count(buf.Bytes(), []byte("line-one\nline-two\n")))
}

func TestRestoreGlobal(t *testing.T) {
	calls := 0
	SetGlobalRestore(func() error { calls++; return nil })
	assert.NoError(t, RestoreGlobal())
	assert.NoError(t, RestoreGlobal())
	assert.Equal(t, 1, calls)
}
