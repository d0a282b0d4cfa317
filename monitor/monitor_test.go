package monitor

import (
	"bytes"
	"context"
	"image"
	"log/slog"
	"testing"
	"time"

	"github.com/nvr-ai/litterbox/capture"
	"github.com/nvr-ai/litterbox/config"
	"github.com/nvr-ai/litterbox/events"
	"github.com/nvr-ai/litterbox/images"
	"github.com/nvr-ai/litterbox/overlay"
	"github.com/nvr-ai/litterbox/zone"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

const (
	scenarioFrames = 25
	firstSquare    = 10
	lastSquare     = 15
)

var (
	insideSquare  = image.Rect(40, 40, 60, 60)
	outsideSquare = image.Rect(0, 0, 20, 20)
	scenarioZone  = config.LitterBoxConfig{
		X1Percent:    0.3,
		Y1Percent:    0.3,
		X2Percent:    0.7,
		Y2Percent:    0.7,
		MinUsageTime: 5 * time.Second,
	}
)

type fakeClock struct{ t time.Time }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 9, 7, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

type recorder struct {
	events []events.Event
	err    error
	calls  int
}

func (r *recorder) Log(e events.Event) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) kinds() []events.Kind {
	out := make([]events.Kind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

type scenario struct {
	frames []Frame
	events *recorder
	zone   zone.Rect
}

// runScenario plays 25 black 100x100 frames with a white 20x20 square on
// frames 10 to 15 through the production detector and classifier.
func runScenario(t *testing.T, square image.Rectangle, logger *recorder) scenario {
	t.Helper()

	detector := images.NewMotionSegmenter(config.Default().Detection.Segmenter())
	defer detector.Close()

	clock := newClock()
	var frames []Frame
	m := New(Options{
		Source:         capture.NewSynthetic(100, 100, scenarioFrames, capture.SquareBetween(square, firstSquare, lastSquare)),
		Detector:       detector,
		MinContourArea: 100,
		Zone:           scenarioZone,
		Events:         logger,
		Logger:         quietLogger(),
		Now:            clock.Now,
		OnFrame: func(f Frame) {
			frames = append(frames, f)
			clock.t = clock.t.Add(time.Second)
		},
	})
	defer m.Close()

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, Stopped, m.State())
	assert.Equal(t, scenarioFrames, m.Frames())
	return scenario{frames: frames, events: logger, zone: m.Zone()}
}

func TestSquareInsideZone(t *testing.T) {
	logger := &recorder{}
	s := runScenario(t, insideSquare, logger)

	assert.Equal(t, zone.Rect{X1: 30, Y1: 30, X2: 70, Y2: 70}, s.zone)
	require.Len(t, s.frames, scenarioFrames)
	for _, f := range s.frames {
		want := f.Index >= firstSquare && f.Index <= lastSquare
		assert.Equal(t, want, f.Result.AnyInZone, "frame %d", f.Index)
	}

	require.Equal(t, []events.Kind{events.EnteredZone, events.Visit}, logger.kinds())
	assert.Equal(t, 1, logger.events[0].Regions)
	assert.Equal(t, 6*time.Second, logger.events[1].Duration)
}

func TestSquareOutsideZone(t *testing.T) {
	logger := &recorder{}
	s := runScenario(t, outsideSquare, logger)

	require.Len(t, s.frames, scenarioFrames)
	for _, f := range s.frames {
		assert.False(t, f.Result.AnyInZone, "frame %d", f.Index)
		want := 0
		if f.Index >= firstSquare && f.Index <= lastSquare {
			want = 1
		}
		assert.Len(t, f.Result.Regions, want, "frame %d", f.Index)
	}
	assert.Empty(t, logger.events)
}

func TestRepeatedRunsAreIdentical(t *testing.T) {
	first := runScenario(t, insideSquare, &recorder{})
	second := runScenario(t, insideSquare, &recorder{})

	require.Len(t, second.frames, len(first.frames))
	for i := range first.frames {
		a, b := first.frames[i].Result, second.frames[i].Result
		assert.Equal(t, a.AnyInZone, b.AnyInZone, "frame %d", i)
		require.Len(t, b.Regions, len(a.Regions), "frame %d", i)
		for j := range a.Regions {
			assert.Equal(t, a.Regions[j].Box, b.Regions[j].Box, "frame %d region %d", i, j)
			assert.Equal(t, a.Regions[j].InZone, b.Regions[j].InZone, "frame %d region %d", i, j)
		}
	}
}

func TestEventLoggingFailureDoesNotStopLoop(t *testing.T) {
	logger := &recorder{err: errors.New("disk full")}
	s := runScenario(t, insideSquare, logger)

	assert.Len(t, s.frames, scenarioFrames)
	assert.Equal(t, 2, logger.calls, "entry and visit were both attempted")
}

// stubDetector returns an empty mask and counts resets.
type stubDetector struct {
	mask   gocv.Mat
	resets int
	err    error
}

func newStubDetector() *stubDetector {
	return &stubDetector{mask: gocv.Zeros(100, 100, gocv.MatTypeCV8UC1)}
}

func (d *stubDetector) Apply(gocv.Mat) (gocv.Mat, error) {
	return d.mask, d.err
}

func (d *stubDetector) Reset() error {
	d.resets++
	return nil
}

func (d *stubDetector) Close() error {
	return d.mask.Close()
}

type scriptedDisplay struct {
	keys  []int
	polls int
	shown int
	panic bool
}

func (d *scriptedDisplay) Show(gocv.Mat, gocv.Mat) {
	d.shown++
	if d.panic {
		panic("window gone")
	}
}

func (d *scriptedDisplay) Poll() int {
	defer func() { d.polls++ }()
	if d.polls < len(d.keys) {
		return d.keys[d.polls]
	}
	return overlay.NoKey
}

func newStubMonitor(t *testing.T, frames int, opts Options) (*Monitor, *stubDetector) {
	t.Helper()
	detector := newStubDetector()
	t.Cleanup(func() { detector.Close() })

	opts.Source = capture.NewSynthetic(100, 100, frames, nil)
	opts.Detector = detector
	opts.Zone = scenarioZone
	opts.Logger = quietLogger()
	m := New(opts)
	t.Cleanup(func() { m.Close() })
	return m, detector
}

func TestQuitCommandStopsAfterCurrentFrame(t *testing.T) {
	commands := make(chan Command, 1)
	commands <- Quit
	m, _ := newStubMonitor(t, 10, Options{Commands: commands})

	assert.Equal(t, Stopped, m.Step(context.Background()))
	assert.Equal(t, 1, m.Frames())
	assert.Equal(t, Stopped, m.Step(context.Background()), "stopped is terminal")
	assert.Equal(t, 1, m.Frames())
}

func TestQuitKey(t *testing.T) {
	display := &scriptedDisplay{keys: []int{overlay.NoKey, 'r', 'q'}}
	m, detector := newStubMonitor(t, 10, Options{Display: display})

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, 3, m.Frames())
	assert.Equal(t, 1, detector.resets)
	assert.Equal(t, 3, display.shown)
}

func TestResetCommandKeepsRunning(t *testing.T) {
	commands := make(chan Command, 2)
	logger := &recorder{}
	m, detector := newStubMonitor(t, 10, Options{Commands: commands, Events: logger})

	assert.Equal(t, Running, m.Step(context.Background()))
	commands <- Reset
	assert.Equal(t, Running, m.Step(context.Background()))
	assert.Equal(t, 1, detector.resets)
	assert.Equal(t, []events.Kind{events.Reset}, logger.kinds())

	close(commands)
	assert.Equal(t, Running, m.Step(context.Background()), "closed command channel is ignored")
}

func TestEndOfStreamStops(t *testing.T) {
	m, _ := newStubMonitor(t, 3, Options{})
	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, Stopped, m.State())
	assert.Equal(t, 3, m.Frames())
}

func TestEmptySource(t *testing.T) {
	m, _ := newStubMonitor(t, 0, Options{})
	assert.ErrorIs(t, m.Run(context.Background()), ErrNoFrames)
}

func TestCanceledContextStops(t *testing.T) {
	m, _ := newStubMonitor(t, 10, Options{})
	ctx, cancel := context.WithCancel(context.Background())

	assert.Equal(t, Running, m.Step(ctx))
	cancel()
	assert.Equal(t, Stopped, m.Step(ctx))
	assert.Equal(t, 1, m.Frames())
}

func TestDisplayPanicIsIsolated(t *testing.T) {
	display := &scriptedDisplay{panic: true}
	m, _ := newStubMonitor(t, 4, Options{Display: display})

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, 4, m.Frames())
	assert.Equal(t, 4, display.shown)
}

func TestDetectorErrorSkipsFrame(t *testing.T) {
	var results []zone.Result
	m, detector := newStubMonitor(t, 3, Options{OnFrame: func(f Frame) { results = append(results, f.Result) }})
	detector.err = errors.New("size mismatch")

	require.NoError(t, m.Run(context.Background()))
	assert.Len(t, results, 3)
	for _, r := range results {
		assert.Empty(t, r.Regions)
	}
}

type failingSnapshots struct{ calls int }

func (f *failingSnapshots) Save(events.Event, gocv.Mat) (string, error) {
	f.calls++
	return "", errors.New("read-only file system")
}

func TestSnapshotFailureIsIsolated(t *testing.T) {
	detector := images.NewMotionSegmenter(config.Default().Detection.Segmenter())
	defer detector.Close()

	snaps := &failingSnapshots{}
	logger := &recorder{}
	m := New(Options{
		Source:         capture.NewSynthetic(100, 100, scenarioFrames, capture.SquareBetween(insideSquare, firstSquare, lastSquare)),
		Detector:       detector,
		MinContourArea: 100,
		Zone:           scenarioZone,
		Events:         logger,
		Snapshots:      snaps,
		Logger:         quietLogger(),
	})
	defer m.Close()

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, scenarioFrames, m.Frames())
	assert.Equal(t, 1, snaps.calls)
	assert.Contains(t, logger.kinds(), events.EnteredZone)
}
