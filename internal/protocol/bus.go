package protocol

import (
	"context"
	"fmt"
	"sync"
)

// ErrNoListener is reported by Publish when nothing subscribes to the channel.
var ErrNoListener = fmt.Errorf("no listener on channel")

// Bus is an in-process Transport for tests and single-binary embedding. Each
// subscriber gets its own goroutine-served queue, so delivery never blocks
// the publisher and the two contexts stay asynchronous even in one process.
type Bus struct {
	mu   sync.Mutex
	subs map[string][]*busSub
}

type busSub struct {
	fn     func(data []byte)
	frames chan []byte
	done   chan struct{}
}

// NewBus creates an empty in-process bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]*busSub)}
}

// Publish delivers the frame to every subscriber of the channel.
func (b *Bus) Publish(ctx context.Context, channel string, data []byte) error {
	b.mu.Lock()
	subs := append([]*busSub(nil), b.subs[channel]...)
	b.mu.Unlock()

	if len(subs) == 0 {
		return fmt.Errorf("%w: %s", ErrNoListener, channel)
	}

	for _, sub := range subs {
		select {
		case sub.frames <- data:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe attaches a callback to the channel until the returned function is
// called. Frames are delivered in order from a dedicated goroutine.
func (b *Bus) Subscribe(ctx context.Context, channel string, fn func(data []byte)) (func(), error) {
	sub := &busSub{
		fn:     fn,
		frames: make(chan []byte, 64),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], sub)
	b.mu.Unlock()

	go func() {
		for {
			select {
			case frame := <-sub.frames:
				sub.fn(frame)
			case <-sub.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(sub.done)
			b.mu.Lock()
			list := b.subs[channel]
			for i, s := range list {
				if s == sub {
					b.subs[channel] = append(list[:i], list[i+1:]...)
					break
				}
			}
			b.mu.Unlock()
		})
	}
	return unsubscribe, nil
}
