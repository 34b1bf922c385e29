package analysis

import "sync"

// progress counts finished files across both sides.
type progress struct {
	mu       sync.Mutex
	finished int
	total    int
	cb       ProgressCallback
}

func newProgress(total int, cb ProgressCallback) *progress {
	return &progress{total: total, cb: cb}
}

func (p *progress) done() {
	if p.cb == nil {
		return
	}
	p.mu.Lock()
	p.finished++
	finished := p.finished
	p.mu.Unlock()
	p.cb(finished, p.total)
}
