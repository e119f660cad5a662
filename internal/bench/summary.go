// Package bench summarizes per-frame processing latency.
package bench

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Summary describes a set of frame durations.
type Summary struct {
	Frames int
	Mean   time.Duration
	StdDev time.Duration
	P50    time.Duration
	P95    time.Duration
	Min    time.Duration
	Max    time.Duration
}

// FPS is the throughput implied by the mean latency.
func (s Summary) FPS() float64 {
	if s.Mean <= 0 {
		return 0
	}
	return float64(time.Second) / float64(s.Mean)
}

func (s Summary) String() string {
	return fmt.Sprintf("frames=%d mean=%v sd=%v p50=%v p95=%v min=%v max=%v (%.1f fps)",
		s.Frames, s.Mean, s.StdDev, s.P50, s.P95, s.Min, s.Max, s.FPS())
}

// Summarize computes latency statistics. An empty input yields a zero Summary.
func Summarize(durations []time.Duration) Summary {
	if len(durations) == 0 {
		return Summary{}
	}
	xs := make([]float64, len(durations))
	for i, d := range durations {
		xs[i] = float64(d)
	}
	sort.Float64s(xs)

	mean, sd := stat.MeanStdDev(xs, nil)
	if len(xs) < 2 {
		sd = 0
	}
	return Summary{
		Frames: len(xs),
		Mean:   time.Duration(mean),
		StdDev: time.Duration(sd),
		P50:    time.Duration(stat.Quantile(0.5, stat.Empirical, xs, nil)),
		P95:    time.Duration(stat.Quantile(0.95, stat.Empirical, xs, nil)),
		Min:    time.Duration(xs[0]),
		Max:    time.Duration(xs[len(xs)-1]),
	}
}
