package registry

import (
	"fmt"
	"math"
	"time"
)

// Status summarizes the visible set.
type Status struct {
	AgentsCount int
	// SystemStability is the mean stability of visible agents, rounded to two
	// decimals.
	SystemStability float64
	Uptime          time.Duration
}

// Status computes a snapshot over the visible set.
func (r *Registry) Status() Status {
	visible := r.ListVisible()
	var sum float64
	for _, rec := range visible {
		sum += rec.Stability
	}
	avg := 0.0
	if len(visible) > 0 {
		avg = math.Round(sum/float64(len(visible))*100) / 100
	}
	return Status{
		AgentsCount:     len(visible),
		SystemStability: avg,
		Uptime:          r.now().Sub(r.startedAt),
	}
}

// FormatUptime renders d as "<hours>h <minutes>m".
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
