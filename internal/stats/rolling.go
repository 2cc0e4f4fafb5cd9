package stats

import "sync"

// Rolling is a fixed-capacity FIFO window of float64 samples. Appending past
// capacity evicts the oldest sample. Safe for concurrent use.
type Rolling struct {
	mu        sync.Mutex
	values    []float64
	capacity  int
	emptyMean float64
}

// NewRolling returns a window holding at most capacity samples. emptyMean is
// the value Mean reports while the window has no samples, so downstream
// consumers never divide by zero or special-case a cold start.
func NewRolling(capacity int, emptyMean float64) *Rolling {
	if capacity < 1 {
		capacity = 1
	}
	return &Rolling{
		values:    make([]float64, 0, capacity),
		capacity:  capacity,
		emptyMean: emptyMean,
	}
}

// Append pushes a sample, evicting the oldest when full.
func (r *Rolling) Append(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == r.capacity {
		copy(r.values, r.values[1:])
		r.values = r.values[:len(r.values)-1]
	}
	r.values = append(r.values, v)
}

// Mean returns the arithmetic mean of the current window, or the configured
// empty-window default when no samples have been appended.
func (r *Rolling) Mean() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		return r.emptyMean
	}
	var sum float64
	for _, v := range r.values {
		sum += v
	}
	return sum / float64(len(r.values))
}

// Len returns the number of samples currently held.
func (r *Rolling) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

// Values returns a copy of the window contents, oldest first.
func (r *Rolling) Values() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, len(r.values))
	copy(out, r.values)
	return out
}

// Reset discards all samples.
func (r *Rolling) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = r.values[:0]
}
