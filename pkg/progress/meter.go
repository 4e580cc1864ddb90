// Package progress accumulates bytes completed against a fixed total and
// renders periodic rate/ETA summaries through the process logger, so the
// output stays readable when redirected to a file.
package progress

import (
	"sync"
	"time"
)

// smoothing weight for new rate samples; higher reacts faster, lower is
// steadier across uneven object sizes.
const rateSmoothing = 0.2

// Stats is a point-in-time snapshot of transfer progress.
type Stats struct {
	Done    int64
	Total   int64
	Rate    float64 // bytes per second
	ETA     time.Duration
	Percent float64
}

// Meter tracks completed bytes against a fixed total and keeps a smoothed
// transfer rate. It is the only mutable state shared between workers; every
// update goes through Add under the meter's lock.
type Meter struct {
	mu       sync.Mutex
	total    int64
	done     int64
	lastAt   time.Time
	lastDone int64
	rate     float64
	clock    func() time.Time
}

// NewMeter returns a meter expecting total bytes of work.
func NewMeter(total int64) *Meter {
	return newMeterAt(total, time.Now)
}

func newMeterAt(total int64, clock func() time.Time) *Meter {
	return &Meter{
		total:  total,
		lastAt: clock(),
		clock:  clock,
	}
}

// Add records n more bytes as completed and folds the implied instantaneous
// rate into the running estimate. Calls that land within the same clock tick
// accumulate and are attributed to the next measurable window.
func (m *Meter) Add(n int64) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.done += n
	now := m.clock()
	window := now.Sub(m.lastAt).Seconds()
	if window <= 0 {
		return
	}

	sample := float64(m.done-m.lastDone) / window
	if m.rate == 0 {
		m.rate = sample
	} else {
		m.rate = rateSmoothing*sample + (1-rateSmoothing)*m.rate
	}
	m.lastAt = now
	m.lastDone = m.done
}

// Snapshot returns the current progress stats.
func (m *Meter) Snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{
		Done:  m.done,
		Total: m.total,
		Rate:  m.rate,
	}
	if m.total > 0 {
		stats.Percent = float64(m.done) / float64(m.total) * 100
	}
	if m.rate > 0 && m.done < m.total {
		stats.ETA = time.Duration(float64(m.total-m.done)/m.rate) * time.Second
	}
	return stats
}
