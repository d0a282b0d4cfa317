// Package monitor runs the frame loop that ties capture, detection, zone
// classification, display and event logging together.
//
// A Monitor is a two-state machine. It is Running from the first frame the
// source yields until the source ends, a Quit command arrives or the context
// is canceled; after that it is Stopped and processes no more frames.
//
// Each Step fully completes before the next begins:
//
//	acquire -> detect -> classify -> render -> log -> poll commands
//
// Rendering and logging failures are reported through slog and never stop the
// loop.
package monitor

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/nvr-ai/litterbox/capture"
	"github.com/nvr-ai/litterbox/config"
	"github.com/nvr-ai/litterbox/events"
	"github.com/nvr-ai/litterbox/images"
	"github.com/nvr-ai/litterbox/overlay"
	"github.com/nvr-ai/litterbox/profiler"
	"github.com/nvr-ai/litterbox/zone"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrNoFrames is returned by Run when the source ends before its first frame.
var ErrNoFrames = errors.New("source produced no frames")

// State is the loop state.
type State int

const (
	// Running means frames are being processed.
	Running State = iota
	// Stopped is terminal.
	Stopped
)

func (s State) String() string {
	if s == Stopped {
		return "stopped"
	}
	return "running"
}

// Detector turns frames into foreground masks. *images.MotionSegmenter is the
// production implementation.
type Detector interface {
	// Apply updates the background model with frame and returns the cleaned
	// mask. The mask is owned by the detector.
	Apply(frame gocv.Mat) (gocv.Mat, error)
	// Reset discards the background model.
	Reset() error
}

// Display shows frames and reports key presses.
type Display interface {
	Show(frame, mask gocv.Mat)
	// Poll returns the pressed key or overlay.NoKey without blocking for more
	// than a few milliseconds.
	Poll() int
}

// Snapshotter saves the frame that triggered an event.
type Snapshotter interface {
	Save(e events.Event, frame gocv.Mat) (string, error)
}

// Frame is the outcome of one processed frame.
type Frame struct {
	// Index counts frames from zero since the monitor started.
	Index int
	// Zone is the pixel-space zone the frame was classified against.
	Zone zone.Rect
	// Result holds the regions and their zone membership.
	Result zone.Result
}

// Options wires a Monitor. Source and Detector are required.
type Options struct {
	Source   capture.Source
	Detector Detector

	// MinContourArea is the exclusive lower bound on region area.
	MinContourArea float64
	// Zone is scaled to the size of the first frame.
	Zone config.LitterBoxConfig

	Display   Display
	Events    events.Logger
	Snapshots Snapshotter
	Profiler  *profiler.Profiler
	// Commands is polled without blocking once per frame.
	Commands <-chan Command
	// OnFrame is called after every processed frame.
	OnFrame func(Frame)

	Logger *slog.Logger
	Now    func() time.Time
}

// Monitor owns the loop state. It is not safe for concurrent use.
type Monitor struct {
	opts Options
	log  *slog.Logger

	state      State
	frame      gocv.Mat
	frames     int
	zone       zone.Rect
	classifier *zone.Classifier
	visits     VisitTracker
}

// New returns a Monitor ready to Run. Call Close when done.
func New(opts Options) *Monitor {
	if opts.Display == nil {
		opts.Display = overlay.Headless()
	}
	if opts.Events == nil {
		opts.Events = events.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Profiler == nil {
		opts.Profiler = profiler.New(profiler.Options{Logger: opts.Logger, Now: opts.Now})
	}

	return &Monitor{
		opts:   opts,
		log:    opts.Logger,
		state:  Running,
		frame:  gocv.NewMat(),
		visits: VisitTracker{MinUsage: opts.Zone.MinUsageTime},
	}
}

// State returns the current loop state.
func (m *Monitor) State() State {
	return m.state
}

// Frames returns how many frames have been processed.
func (m *Monitor) Frames() int {
	return m.frames
}

// Zone returns the pixel-space zone. It is zero until the first frame.
func (m *Monitor) Zone() zone.Rect {
	return m.zone
}

// Run steps until the monitor stops. It returns ErrNoFrames when the source
// ends before yielding a frame and nil on every other stop.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info("monitor started", "source", m.opts.Source.String())
	for m.Step(ctx) == Running {
	}
	if m.frames == 0 {
		return errors.Wrap(ErrNoFrames, m.opts.Source.String())
	}
	return nil
}

// Step processes one frame and returns the resulting state.
func (m *Monitor) Step(ctx context.Context) State {
	if m.state == Stopped {
		return Stopped
	}
	if ctx.Err() != nil {
		m.stop("context done")
		return m.state
	}

	stopTiming := m.opts.Profiler.StartOperation("frame")

	if err := m.opts.Source.Read(&m.frame); err != nil {
		stopTiming()
		if errors.Is(err, capture.ErrEndOfStream) {
			m.stop("end of stream")
		} else {
			m.log.Warn("frame acquisition failed", "source", m.opts.Source.String(), "error", err)
			m.stop("acquisition failed")
		}
		return m.state
	}

	if m.classifier == nil {
		size := image.Pt(m.frame.Cols(), m.frame.Rows())
		m.zone = m.opts.Zone.Rect(size)
		m.classifier = zone.NewClassifier(m.opts.MinContourArea, m.zone)
		m.log.Info("zone configured", "zone", m.zone.String(), "frame", images.DescribeSize(size))
	}

	var res zone.Result
	mask, err := m.opts.Detector.Apply(m.frame)
	if err != nil {
		m.log.Warn("motion detection failed", "frame", m.frames, "error", err)
	} else {
		res = m.classifier.Classify(mask)
		overlay.Draw(&m.frame, m.zone, res)
		m.record(res)
		m.show(mask)
	}

	stopTiming()
	m.opts.Profiler.Frame(res.AnyInZone)
	m.opts.Profiler.RecordMetric("regions", float64(len(res.Regions)))
	m.opts.Profiler.Tick()

	if m.opts.OnFrame != nil {
		m.opts.OnFrame(Frame{Index: m.frames, Zone: m.zone, Result: res})
	}
	m.frames++

	quit, reset := m.poll()
	if quit {
		m.stop("quit requested")
		return m.state
	}
	if reset {
		m.reset()
	}
	return m.state
}

// record emits zone events for res.
func (m *Monitor) record(res zone.Result) {
	now := m.opts.Now()
	t := m.visits.Update(res.AnyInZone, now)

	if t.Entered {
		e := events.New(events.EnteredZone, now)
		e.Regions = res.InZone()
		m.emit(e)
		m.snapshot(e)
	}
	if m.visits.Counts(t) {
		e := events.New(events.Visit, now)
		e.Duration = t.Duration
		m.emit(e)
	}
}

// emit hands e to the event logger. Failures are logged and dropped.
func (m *Monitor) emit(e events.Event) {
	if err := m.opts.Events.Log(e); err != nil {
		m.log.Warn("event not recorded", "kind", e.Kind, "id", e.ID, "error", err)
		return
	}
	m.log.Info("event", "kind", e.Kind, "id", e.ID, "regions", e.Regions, "duration", e.Duration)
}

func (m *Monitor) snapshot(e events.Event) {
	if m.opts.Snapshots == nil {
		return
	}
	path, err := m.opts.Snapshots.Save(e, m.frame)
	if err != nil {
		m.log.Warn("snapshot failed", "id", e.ID, "error", err)
		return
	}
	m.log.Debug("snapshot saved", "id", e.ID, "path", path)
}

// show renders to the display. A panicking display is reported and the frame
// loop carries on.
func (m *Monitor) show(mask gocv.Mat) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn("display failed", "frame", m.frames, "panic", r)
		}
	}()
	m.opts.Display.Show(m.frame, mask)
}

// poll drains pending commands from the display and the command channel.
func (m *Monitor) poll() (quit, reset bool) {
	apply := func(c Command) {
		switch c {
		case Quit:
			quit = true
		case Reset:
			reset = true
		}
	}

	apply(KeyCommand(m.opts.Display.Poll()))

drain:
	for m.opts.Commands != nil {
		select {
		case c, ok := <-m.opts.Commands:
			if !ok {
				m.opts.Commands = nil
				break drain
			}
			apply(c)
		default:
			break drain
		}
	}
	return quit, reset
}

func (m *Monitor) reset() {
	if err := m.opts.Detector.Reset(); err != nil {
		m.log.Error("background model reset failed", "error", err)
		return
	}
	m.visits.Discard()
	m.log.Info("background model reset", "frame", m.frames)
	m.emit(events.New(events.Reset, m.opts.Now()))
}

func (m *Monitor) stop(reason string) {
	if m.state == Stopped {
		return
	}
	now := m.opts.Now()
	if t := m.visits.Finish(now); m.visits.Counts(t) {
		e := events.New(events.Visit, now)
		e.Duration = t.Duration
		m.emit(e)
	}
	m.state = Stopped
	m.log.Info("monitor stopped", "reason", reason, "frames", m.frames)
}

// Close releases the frame buffer. The source, detector and display belong
// to the caller.
func (m *Monitor) Close() error {
	return m.frame.Close()
}
