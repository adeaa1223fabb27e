package dispute

import (
	"sync"
	"time"
)

// Reveal types a target string out one rune per tick, passing each prefix to
// write. It can be cancelled, or materialized so the full text is written at
// once. write is called with the reveal's lock held and never concurrently.
type Reveal struct {
	target []rune
	write  func(string)

	mu    sync.Mutex
	shown int
	done  bool

	stopOnce sync.Once
	stop     chan struct{}
	finished chan struct{}
}

// NewReveal starts revealing target. A non-positive interval writes the full
// text immediately.
func NewReveal(target string, interval time.Duration, write func(string)) *Reveal {
	if write == nil {
		write = func(string) {}
	}
	r := &Reveal{
		target:   []rune(target),
		write:    write,
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	if interval <= 0 || len(r.target) == 0 {
		r.mu.Lock()
		r.finish()
		r.mu.Unlock()
		close(r.finished)
		return r
	}
	go r.run(interval)
	return r
}

func (r *Reveal) run(interval time.Duration) {
	defer close(r.finished)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			if r.done {
				r.mu.Unlock()
				return
			}
			r.shown++
			if r.shown >= len(r.target) {
				r.finish()
				r.mu.Unlock()
				return
			}
			r.write(string(r.target[:r.shown]))
			r.mu.Unlock()
		}
	}
}

// finish writes the full target; callers hold mu
func (r *Reveal) finish() {
	r.shown = len(r.target)
	r.done = true
	r.write(string(r.target))
}

// Materialize writes the full target now, if it is not written yet, and
// stops the animation. It returns once the reveal goroutine has exited.
func (r *Reveal) Materialize() string {
	r.mu.Lock()
	if !r.done {
		r.finish()
	}
	r.mu.Unlock()
	r.halt()
	return string(r.target)
}

// Cancel stops the animation, leaving whatever prefix was written last
func (r *Reveal) Cancel() {
	r.mu.Lock()
	r.done = true
	r.mu.Unlock()
	r.halt()
}

func (r *Reveal) halt() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.finished
}

// Done reports whether the reveal has finished, been materialized or cancelled
func (r *Reveal) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Shown returns the currently revealed prefix
func (r *Reveal) Shown() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.target[:r.shown])
}

// Target returns the full text being revealed
func (r *Reveal) Target() string {
	return string(r.target)
}

// Wait blocks until the reveal goroutine exits
func (r *Reveal) Wait() {
	<-r.finished
}
