package occupancy

// Smoother keeps a fixed-capacity history of recent raw decisions per
// stall and emits a majority vote. State lives only for the lifetime of a
// running detect task; a restarted task starts from empty buffers.
type Smoother struct {
	capacity int
	history  map[int][]bool
}

// NewSmoother creates a smoother with the given per-stall buffer capacity.
// A capacity below 1 is treated as 1, which disables smoothing.
func NewSmoother(capacity int) *Smoother {
	if capacity < 1 {
		capacity = 1
	}
	return &Smoother{
		capacity: capacity,
		history:  make(map[int][]bool),
	}
}

// Push appends a raw decision for the stall and returns the smoothed value:
// true when at least half of the *current* buffer contents are true. Right
// after a restart the buffer holds fewer than capacity entries and the
// majority is computed against the current length, so a single true push
// into an empty buffer already smooths to true.
func (s *Smoother) Push(stallID int, raw bool) bool {
	buf := append(s.history[stallID], raw)
	if len(buf) > s.capacity {
		buf = buf[len(buf)-s.capacity:]
	}
	s.history[stallID] = buf

	trueCount := 0
	for _, v := range buf {
		if v {
			trueCount++
		}
	}
	return trueCount*2 >= len(buf)
}

// Smooth applies Push to every stall in the raw result and returns the
// smoothed per-stall map.
func (s *Smoother) Smooth(raw map[int]bool) map[int]bool {
	out := make(map[int]bool, len(raw))
	for id, v := range raw {
		out[id] = s.Push(id, v)
	}
	return out
}

// Reset clears all per-stall history.
func (s *Smoother) Reset() {
	s.history = make(map[int][]bool)
}
