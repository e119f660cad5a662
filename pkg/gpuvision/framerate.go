package gpuvision

import "time"

// framerateAlpha weights the previous average in the moving FPS estimate.
const framerateAlpha = 0.9

// FramerateCounter tracks frames per second with an exponentially weighted
// moving average.
type FramerateCounter struct {
	now        func() time.Time
	last       time.Time
	averageFPS float64
}

// NewFramerateCounter starts a counter at 1 FPS using the wall clock.
func NewFramerateCounter() *FramerateCounter {
	return newFramerateCounter(time.Now)
}

func newFramerateCounter(now func() time.Time) *FramerateCounter {
	return &FramerateCounter{now: now, last: now(), averageFPS: 1}
}

// Update records a frame and returns the new average.
func (f *FramerateCounter) Update() float64 {
	t := f.now()
	elapsed := t.Sub(f.last)
	f.last = t
	if elapsed <= 0 {
		return f.averageFPS
	}
	f.averageFPS = framerateAlpha*f.averageFPS + (1-framerateAlpha)*(float64(time.Second)/float64(elapsed))
	return f.averageFPS
}

// AverageFPS returns the current average without recording a frame.
func (f *FramerateCounter) AverageFPS() float64 { return f.averageFPS }
