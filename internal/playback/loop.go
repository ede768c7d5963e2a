package playback

import (
	"context"
	"sync"
	"time"
)

const DefaultFPS = 60

// FrameFunc is called once per frame with the frame timestamp. Returning
// false ends the loop.
type FrameFunc func(ts time.Time) bool

// Loop delivers frame timestamps from a ticker goroutine. A Loop can be
// started again after it stopped.
type Loop struct {
	interval time.Duration
	frame    FrameFunc

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

func NewLoop(fps int, frame FrameFunc) *Loop {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Loop{
		interval: time.Second / time.Duration(fps),
		frame:    frame,
	}
}

// Start begins frame delivery. It is a no-op while the loop is running.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.gen++
	l.cancel = cancel
	l.done = done
	go l.run(ctx, l.gen, cancel, done)
}

// Stop cancels the pending frame subscription and returns without waiting.
// A frame already being delivered finishes; no further frame starts.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

// Done returns a channel closed when the current run exits, or nil if the
// loop was never started.
func (l *Loop) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

func (l *Loop) run(ctx context.Context, gen uint64, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	defer l.release(gen, cancel)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ts := <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			if !l.frame(ts) {
				return
			}
		}
	}
}

// release clears the running state if no newer run has started.
func (l *Loop) release(gen uint64, cancel context.CancelFunc) {
	cancel()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen == gen {
		l.cancel = nil
	}
}
