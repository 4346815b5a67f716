// Package filter provides sample smoothing for noisy sensor readings.
package filter

// WindowSize is the number of samples a RunningMedian keeps.
const WindowSize = 5

// RunningMedian is a median over the last WindowSize samples.
// The zero value is ready to use. The window is primed with the first
// sample rather than zeros, so until WindowSize samples are added the
// medians differ from those of a zero-initialized window.
type RunningMedian struct {
	ring   [WindowSize]float64
	sorted [WindowSize]float64
	next   int
	primed bool
}

// Add pushes a sample, evicting the oldest one. The first sample fills the
// whole window so the median is meaningful immediately.
func (m *RunningMedian) Add(v float64) {
	if !m.primed {
		for i := range m.ring {
			m.ring[i] = v
			m.sorted[i] = v
		}
		m.primed = true
		return
	}
	old := m.ring[m.next]
	m.ring[m.next] = v
	m.next = (m.next + 1) % WindowSize

	// remove old from sorted, then insert v.
	pos := 0
	for pos < WindowSize-1 && m.sorted[pos] != old {
		pos++
	}
	copy(m.sorted[pos:], m.sorted[pos+1:])
	pos = WindowSize - 1
	for pos > 0 && m.sorted[pos-1] > v {
		m.sorted[pos] = m.sorted[pos-1]
		pos--
	}
	m.sorted[pos] = v
}

// Median returns the current median, 0 before any sample.
func (m *RunningMedian) Median() float64 {
	return m.sorted[WindowSize/2]
}

// Primed tells if any sample has been added.
func (m *RunningMedian) Primed() bool {
	return m.primed
}

// Reset clears all samples.
func (m *RunningMedian) Reset() {
	*m = RunningMedian{}
}

// Window returns the samples, oldest first.
func (m *RunningMedian) Window() []float64 {
	w := make([]float64, 0, WindowSize)
	w = append(w, m.ring[m.next:]...)
	return append(w, m.ring[:m.next]...)
}

// Sorted returns the samples in ascending order.
func (m *RunningMedian) Sorted() []float64 {
	s := m.sorted
	return s[:]
}
