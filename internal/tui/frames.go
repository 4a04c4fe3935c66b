package tui

// FrameQueue is the frame source for the TUI. Bubble Tea's Update goroutine
// is the UI thread: FrameMsg flushes the queue there, and callbacks armed
// during a flush wait for the next FrameMsg.
type FrameQueue struct {
	queued []func()
	frames int
}

// NewFrameQueue creates an empty queue
func NewFrameQueue() *FrameQueue {
	return &FrameQueue{}
}

// RequestFrame arms fn for the next frame
func (q *FrameQueue) RequestFrame(fn func()) {
	q.queued = append(q.queued, fn)
}

// Flush runs the callbacks queued before this frame and returns how many ran
func (q *FrameQueue) Flush() int {
	batch := q.queued
	q.queued = nil
	for _, fn := range batch {
		fn()
	}
	q.frames++
	return len(batch)
}

// Pending returns the number of callbacks waiting for the next frame
func (q *FrameQueue) Pending() int { return len(q.queued) }

// Frames counts flushes
func (q *FrameQueue) Frames() int { return q.frames }
