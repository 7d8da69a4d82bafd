package store

import "sync"

// Watch runs fn now and again after changes on any source. Bursts are
// coalesced: fn never runs concurrently with itself, and a change that
// arrives while fn runs causes exactly one more run. After stop returns no
// new run starts.
func Watch(fn func(), sources ...Source) (stop func()) {
	w := &watcher{fn: fn}
	unsubs := make([]func(), 0, len(sources))
	for _, src := range sources {
		unsubs = append(unsubs, src.OnChange(w.trigger))
	}
	w.trigger()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			w.stopped = true
			w.mu.Unlock()
			for _, unsub := range unsubs {
				unsub()
			}
		})
	}
}

type watcher struct {
	fn func()

	mu      sync.Mutex
	running bool
	dirty   bool
	stopped bool
}

func (w *watcher) trigger() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	if w.running {
		w.dirty = true
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	for {
		w.fn()

		w.mu.Lock()
		if !w.dirty || w.stopped {
			w.running = false
			w.dirty = false
			w.mu.Unlock()
			return
		}
		w.dirty = false
		w.mu.Unlock()
	}
}
