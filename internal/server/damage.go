package server

import (
	"image"
	"sync"
)

// damageQueue collects screen rectangles awaiting redraw. Any thread may
// append; the render thread drains it once per pass.
type damageQueue struct {
	mu    sync.Mutex
	rects []image.Rectangle
}

func (q *damageQueue) add(r image.Rectangle) {
	if r.Empty() {
		return
	}
	q.mu.Lock()
	q.rects = append(q.rects, r)
	q.mu.Unlock()
}

func (q *damageQueue) drain() []image.Rectangle {
	q.mu.Lock()
	rects := q.rects
	q.rects = nil
	q.mu.Unlock()
	return rects
}
