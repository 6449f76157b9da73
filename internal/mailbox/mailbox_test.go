package mailbox_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cgrimes21/dyewars/internal/mailbox"
)

func TestPushDrainFIFO(t *testing.T) {
	ob := mailbox.New[int](4)
	ob.Push(1)
	ob.Push(2)
	ob.Push(3)

	got := ob.Drain()
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, 0, ob.Len())
	assert.Nil(t, ob.Drain())
}

func TestCloseRejectsFurtherPushes(t *testing.T) {
	ob := mailbox.New[string](2)
	ob.Push("a")
	ob.Close()
	ob.Push("b")

	got := ob.Drain()
	assert.Equal(t, []string{"a"}, got)
	assert.True(t, ob.Closed())
}

func TestConcurrentProducersSingleConsumer(t *testing.T) {
	ob := mailbox.New[int](0)
	var wg sync.WaitGroup
	const producers = 8
	const perProducer = 100

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				ob.Push(i)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, ob.Len())
	assert.Len(t, ob.Drain(), producers*perProducer)
}
