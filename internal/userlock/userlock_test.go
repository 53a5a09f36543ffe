package userlock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocks_SerializesSameChat(t *testing.T) {
	l := New()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock(7)
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Zero(t, l.Len())
}

func TestLocks_IndependentChats(t *testing.T) {
	l := New()
	unlockA := l.Lock(1)
	done := make(chan struct{})
	go func() {
		unlockB := l.Lock(2)
		unlockB()
		close(done)
	}()
	<-done
	assert.Equal(t, 1, l.Len())
	unlockA()
	assert.Zero(t, l.Len())
}
