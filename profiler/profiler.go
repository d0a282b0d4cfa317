// Package profiler - frame timing for the monitor loop.
//
// The profiler is driven by the loop itself: nothing runs in the background,
// and a report is emitted from Tick once the report interval has elapsed. It
// is not safe for concurrent use.
package profiler

import (
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"
)

// Options configures a Profiler.
type Options struct {
	// ReportInterval is how often Tick emits a report. Zero disables reports.
	ReportInterval time.Duration
	// MaxSamples bounds the rolling window of each tracker (default: 600).
	MaxSamples int
	// Logger receives reports (default: slog.Default()).
	Logger *slog.Logger
	// Now is the clock (default: time.Now).
	Now func() time.Time
}

// Profiler tracks per-operation timings, custom metrics and frame throughput.
type Profiler struct {
	opts       Options
	startTime  time.Time
	lastReport time.Time

	frames       int64
	inZoneFrames int64

	metrics    map[string]*MetricTracker
	operations map[string]*TimeTracker
}

// MetricTracker tracks a rolling window of a custom metric.
type MetricTracker struct {
	values []float64
	sum    float64
	min    float64
	max    float64
	count  int64
}

// TimeTracker tracks a rolling window of operation durations.
type TimeTracker struct {
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// Timing summarizes a TimeTracker.
type Timing struct {
	Avg, Min, Max time.Duration
	Count         int64
}

// Summary summarizes a MetricTracker.
type Summary struct {
	Avg, Min, Max float64
	Samples       int
}

// Stats is a snapshot of the profiler.
type Stats struct {
	Uptime       time.Duration
	Frames       int64
	InZoneFrames int64
	FPS          float64
	Operations   map[string]Timing
	Metrics      map[string]Summary
}

// New returns a Profiler whose clock starts now.
func New(opts Options) *Profiler {
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = 600
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	now := opts.Now()
	return &Profiler{
		opts:       opts,
		startTime:  now,
		lastReport: now,
		metrics:    make(map[string]*MetricTracker),
		operations: make(map[string]*TimeTracker),
	}
}

// StartOperation begins timing an operation and returns the function that
// ends it.
func (p *Profiler) StartOperation(name string) func() {
	start := p.opts.Now()
	return func() {
		p.recordOperationTime(name, p.opts.Now().Sub(start))
	}
}

func (p *Profiler) recordOperationTime(name string, d time.Duration) {
	tracker, ok := p.operations[name]
	if !ok {
		tracker = &TimeTracker{minTime: d, maxTime: d}
		p.operations[name] = tracker
	}

	tracker.durations = append(tracker.durations, d)
	tracker.totalTime += d
	if len(tracker.durations) > p.opts.MaxSamples {
		tracker.totalTime -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}
	tracker.count++

	if d < tracker.minTime {
		tracker.minTime = d
	}
	if d > tracker.maxTime {
		tracker.maxTime = d
	}
}

// RecordMetric records one sample of a custom metric.
func (p *Profiler) RecordMetric(name string, value float64) {
	tracker, ok := p.metrics[name]
	if !ok {
		tracker = &MetricTracker{min: value, max: value}
		p.metrics[name] = tracker
	}

	tracker.values = append(tracker.values, value)
	tracker.sum += value
	if len(tracker.values) > p.opts.MaxSamples {
		tracker.sum -= tracker.values[0]
		tracker.values = tracker.values[1:]
	}
	tracker.count++

	if value < tracker.min {
		tracker.min = value
	}
	if value > tracker.max {
		tracker.max = value
	}
}

// Frame counts one processed frame.
func (p *Profiler) Frame(inZone bool) {
	p.frames++
	if inZone {
		p.inZoneFrames++
	}
}

// Tick emits a report when the report interval has elapsed since the last
// one, and reports whether it did.
func (p *Profiler) Tick() bool {
	if p.opts.ReportInterval <= 0 {
		return false
	}
	now := p.opts.Now()
	if now.Sub(p.lastReport) < p.opts.ReportInterval {
		return false
	}
	p.lastReport = now
	p.Report()
	return true
}

// Stats returns a snapshot of the current statistics.
func (p *Profiler) Stats() Stats {
	uptime := p.opts.Now().Sub(p.startTime)
	s := Stats{
		Uptime:       uptime,
		Frames:       p.frames,
		InZoneFrames: p.inZoneFrames,
		Operations:   make(map[string]Timing, len(p.operations)),
		Metrics:      make(map[string]Summary, len(p.metrics)),
	}
	if uptime > 0 {
		s.FPS = float64(p.frames) / uptime.Seconds()
	}
	for name, t := range p.operations {
		if len(t.durations) == 0 {
			continue
		}
		s.Operations[name] = Timing{
			Avg:   t.totalTime / time.Duration(len(t.durations)),
			Min:   t.minTime,
			Max:   t.maxTime,
			Count: t.count,
		}
	}
	for name, m := range p.metrics {
		if len(m.values) == 0 {
			continue
		}
		s.Metrics[name] = Summary{
			Avg:     m.sum / float64(len(m.values)),
			Min:     m.min,
			Max:     m.max,
			Samples: len(m.values),
		}
	}
	return s
}

// Report logs the current statistics.
func (p *Profiler) Report() {
	s := p.Stats()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	attrs := []any{
		slog.Duration("uptime", s.Uptime.Truncate(time.Millisecond)),
		slog.Int64("frames", s.Frames),
		slog.Int64("in_zone_frames", s.InZoneFrames),
		slog.String("fps", fmt.Sprintf("%.1f", s.FPS)),
		slog.String("heap_alloc", formatBytes(mem.HeapAlloc)),
	}
	for _, name := range sortedKeys(s.Operations) {
		t := s.Operations[name]
		attrs = append(attrs, slog.Group(name,
			slog.Duration("avg", t.Avg.Truncate(time.Microsecond)),
			slog.Duration("min", t.Min.Truncate(time.Microsecond)),
			slog.Duration("max", t.Max.Truncate(time.Microsecond)),
			slog.Int64("count", t.Count),
		))
	}
	for _, name := range sortedKeys(s.Metrics) {
		m := s.Metrics[name]
		attrs = append(attrs, slog.Group(name,
			slog.String("avg", fmt.Sprintf("%.2f", m.Avg)),
			slog.Float64("min", m.Min),
			slog.Float64("max", m.Max),
		))
	}

	p.opts.Logger.Info("profiler report", attrs...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatBytes formats byte counts in human-readable format.
func formatBytes(bytes uint64) string {
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
