package progress

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is how often the reporter renders a progress line.
const DefaultInterval = 5 * time.Second

// Reporter periodically renders meter snapshots through the logger.
type Reporter struct {
	meter    *Meter
	logger   *zap.Logger
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewReporter creates a reporter for the given meter. interval <= 0 uses
// DefaultInterval.
func NewReporter(meter *Meter, logger *zap.Logger, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reporter{
		meter:    meter,
		logger:   logger,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the reporting loop.
func (r *Reporter) Start() {
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				r.report()
			}
		}
	}()
}

// Stop ends the loop and emits one final progress line.
func (r *Reporter) Stop() {
	close(r.stop)
	<-r.done
	r.report()
}

func (r *Reporter) report() {
	stats := r.meter.Snapshot()
	r.logger.Info("progress",
		zap.String("done", FormatBytes(stats.Done)),
		zap.String("total", FormatBytes(stats.Total)),
		zap.String("percent", fmt.Sprintf("%.1f%%", stats.Percent)),
		zap.String("rate", FormatBytes(int64(stats.Rate))+"/s"),
		zap.Duration("eta", stats.ETA),
	)
}

// FormatBytes formats bytes in human readable form.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
