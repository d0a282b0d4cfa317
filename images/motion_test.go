package images

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func testSegmenterConfig(warmup int) SegmenterConfig {
	cfg := DefaultSegmenterConfig()
	cfg.WarmupFrames = warmup
	return cfg
}

// feed applies n copies of frame and returns the checksum of the last mask.
func feed(t *testing.T, seg *MotionSegmenter, frame gocv.Mat, n int) []string {
	t.Helper()
	sums := make([]string, 0, n)
	for i := 0; i < n; i++ {
		mask, err := seg.Apply(frame)
		require.NoError(t, err)
		sums = append(sums, ComputeMatChecksum(mask))
	}
	return sums
}

func TestMotionSegmenterMaskShape(t *testing.T) {
	gen := NewFrameGenerator(64, 48)
	frame := gen.Frame()
	defer frame.Close()

	seg := NewMotionSegmenter(testSegmenterConfig(0))
	defer seg.Close()

	mask, err := seg.Apply(frame)
	require.NoError(t, err)
	assert.Equal(t, 48, mask.Rows())
	assert.Equal(t, 64, mask.Cols())
	assert.Equal(t, gocv.MatTypeCV8UC1, mask.Type())
	assert.Equal(t, 1, seg.Frames())
}

func TestMotionSegmenterRejectsEmptyFrame(t *testing.T) {
	seg := NewMotionSegmenter(testSegmenterConfig(0))
	defer seg.Close()

	empty := gocv.NewMat()
	defer empty.Close()

	_, err := seg.Apply(empty)
	require.Error(t, err)
	assert.Equal(t, 0, seg.Frames())
}

func TestMotionSegmenterWarmup(t *testing.T) {
	gen := NewFrameGenerator(100, 100)
	frame := gen.Frame(image.Rect(40, 40, 60, 60))
	defer frame.Close()

	seg := NewMotionSegmenter(testSegmenterConfig(3))
	defer seg.Close()

	for i := 1; i <= 3; i++ {
		mask, err := seg.Apply(frame)
		require.NoError(t, err)
		assert.True(t, seg.Warming())
		assert.Zero(t, gocv.CountNonZero(mask), "frame %d should be suppressed", i)
	}

	_, err := seg.Apply(frame)
	require.NoError(t, err)
	assert.False(t, seg.Warming())

	require.NoError(t, seg.Reset())
	assert.True(t, seg.Warming())
	assert.Equal(t, 0, seg.Frames())
}

func TestMotionSegmenterOpeningRemovesSpecks(t *testing.T) {
	gen := NewFrameGenerator(100, 100)
	background := gen.Frame()
	defer background.Close()
	motion := gen.Frame(image.Rect(10, 10, 11, 11), image.Rect(40, 40, 60, 60))
	defer motion.Close()

	seg := NewMotionSegmenter(testSegmenterConfig(0))
	defer seg.Close()

	feed(t, seg, background, 8)

	mask, err := seg.Apply(motion)
	require.NoError(t, err)

	assert.Equal(t, uint8(0), mask.GetUCharAt(10, 10), "isolated pixel should be opened away")
	assert.Equal(t, uint8(255), mask.GetUCharAt(50, 50), "square should survive")
}

func TestMotionSegmenterDilationGrowsRegions(t *testing.T) {
	gen := NewFrameGenerator(100, 100)
	background := gen.Frame()
	defer background.Close()
	motion := gen.Frame(image.Rect(40, 40, 60, 60))
	defer motion.Close()

	counts := map[int]int{}
	for _, iterations := range []int{0, 3} {
		cfg := testSegmenterConfig(0)
		cfg.DilationIterations = iterations

		seg := NewMotionSegmenter(cfg)
		feed(t, seg, background, 8)
		mask, err := seg.Apply(motion)
		require.NoError(t, err)
		counts[iterations] = gocv.CountNonZero(mask)
		seg.Close()
	}

	assert.Positive(t, counts[0])
	assert.Greater(t, counts[3], counts[0])
}

func TestMotionSegmenterResetDiscardsHistory(t *testing.T) {
	gen := NewFrameGenerator(100, 100)
	pattern := gen.Frame(image.Rect(0, 0, 100, 100))
	defer pattern.Close()
	probe := gen.Frame(image.Rect(40, 40, 60, 60))
	defer probe.Close()

	cold := NewMotionSegmenter(testSegmenterConfig(0))
	defer cold.Close()
	coldSums := feed(t, cold, probe, 5)

	trained := NewMotionSegmenter(testSegmenterConfig(0))
	defer trained.Close()
	feed(t, trained, pattern, 10)
	trainedSums := feed(t, trained, probe, 1)
	assert.NotEqual(t, coldSums[0], trainedSums[0], "a trained model should see the probe differently")

	reset := NewMotionSegmenter(testSegmenterConfig(0))
	defer reset.Close()
	feed(t, reset, pattern, 10)
	require.NoError(t, reset.Reset())
	resetSums := feed(t, reset, probe, 5)

	assert.Equal(t, coldSums, resetSums)
}

func TestMotionSegmenterDeterministic(t *testing.T) {
	gen := NewFrameGenerator(100, 100)

	run := func() []string {
		seg := NewMotionSegmenter(testSegmenterConfig(2))
		defer seg.Close()

		frame := gocv.NewMat()
		defer frame.Close()

		var sums []string
		for i := 0; i < 20; i++ {
			var squares []image.Rectangle
			if i >= 10 && i <= 15 {
				squares = append(squares, image.Rect(40, 40, 60, 60))
			}
			gen.Draw(&frame, squares...)
			mask, err := seg.Apply(frame)
			require.NoError(t, err)
			sums = append(sums, ComputeMatChecksum(mask))
		}
		return sums
	}

	assert.Equal(t, run(), run())
}
