package ui

// clipQueue holds the clips of an opened clip list. A single clip is a queue
// of one.
type clipQueue struct {
	paths   []string
	current int
}

func newClipQueue(paths []string, current int) clipQueue {
	if current < 0 || current >= len(paths) {
		current = 0
	}
	return clipQueue{paths: paths, current: current}
}

// Current returns the selected clip, or "" when the queue is empty.
func (q clipQueue) Current() string {
	if q.current < 0 || q.current >= len(q.paths) {
		return ""
	}
	return q.paths[q.current]
}

// Advance moves to the next clip. Returns false if already at the end.
func (q *clipQueue) Advance() bool {
	if q.current+1 >= len(q.paths) {
		return false
	}
	q.current++
	return true
}

// Previous moves to the previous clip. Returns false if already at the start.
func (q *clipQueue) Previous() bool {
	if q.current <= 0 {
		return false
	}
	q.current--
	return true
}

func (q clipQueue) Len() int { return len(q.paths) }

func (q clipQueue) Position() int { return q.current + 1 }
