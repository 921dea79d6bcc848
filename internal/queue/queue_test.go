package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_PublishConsume(t *testing.T) {
	log := zerolog.Nop()
	q := NewMemory(4, &log)
	defer q.Close()

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	require.NoError(t, q.Consume(func(b []byte) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, string(b))
		if len(got) == 2 {
			close(done)
		}
		return nil
	}))

	require.NoError(t, q.Publish(context.Background(), []byte("a")))
	require.NoError(t, q.Publish(context.Background(), []byte("b")))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("messages were not consumed")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestMemory_RejectsWhenFull(t *testing.T) {
	log := zerolog.Nop()
	q := NewMemory(1, &log)
	defer q.Close()

	require.NoError(t, q.Publish(context.Background(), []byte("a")))
	assert.ErrorIs(t, q.Publish(context.Background(), []byte("b")), ErrQueueFull)
	assert.Equal(t, 1, q.Len())
}

func TestMemory_RejectsAfterClose(t *testing.T) {
	log := zerolog.Nop()
	q := NewMemory(1, &log)
	q.Close()

	assert.ErrorIs(t, q.Publish(context.Background(), []byte("a")), ErrQueueClosed)
	assert.ErrorIs(t, q.Consume(func([]byte) error { return nil }), ErrQueueClosed)
}
