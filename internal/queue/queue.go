package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Queue carries sync tasks from the request path to the sync worker.
// Implementations: *Memory and *rabbit.Client.
type Queue interface {
	Publish(ctx context.Context, message []byte) error
	Consume(handler func([]byte) error) error
	Close()
}

// Memory is a bounded in-process queue. Publish never blocks: when the buffer
// is full the message is rejected with ErrQueueFull.
type Memory struct {
	ch        chan []byte
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	log       *zerolog.Logger
}

func NewMemory(size int, log *zerolog.Logger) *Memory {
	if size <= 0 {
		size = 1
	}
	return &Memory{
		ch:   make(chan []byte, size),
		done: make(chan struct{}),
		log:  log,
	}
}

func (m *Memory) Publish(ctx context.Context, message []byte) error {
	select {
	case <-m.done:
		return ErrQueueClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case m.ch <- message:
		return nil
	default:
		return ErrQueueFull
	}
}

func (m *Memory) Consume(handler func([]byte) error) error {
	select {
	case <-m.done:
		return ErrQueueClosed
	default:
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-m.done:
				return
			case msg := <-m.ch:
				if err := handler(msg); err != nil {
					m.log.Warn().Err(err).Msg("failed to process queued message, dropping it")
				}
			}
		}
	}()

	m.log.Info().Int("capacity", cap(m.ch)).Msg("Started consuming from in-process queue")
	return nil
}

// Len reports how many messages are waiting.
func (m *Memory) Len() int {
	return len(m.ch)
}

func (m *Memory) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()
	m.log.Info().Msg("In-process queue closed")
}
