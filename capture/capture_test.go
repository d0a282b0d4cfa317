package capture

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/litterbox/images"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestSyntheticSequence(t *testing.T) {
	square := image.Rect(40, 40, 60, 60)
	src := NewSynthetic(100, 100, 4, SquareBetween(square, 1, 2))
	defer src.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	var centers []uint8
	for {
		err := src.Read(&frame)
		if errors.Is(err, ErrEndOfStream) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, 100, frame.Rows())
		assert.Equal(t, 100, frame.Cols())
		assert.Equal(t, gocv.MatTypeCV8UC3, frame.Type())
		centers = append(centers, frame.GetUCharAt(50, 50*3))
	}

	assert.Equal(t, []uint8{0, 255, 255, 0}, centers)
	assert.ErrorIs(t, src.Read(&frame), ErrEndOfStream, "exhausted source stays exhausted")
}

func TestListImageFilesOrdersByFrameNumber(t *testing.T) {
	dir := t.TempDir()
	gen := images.NewFrameGenerator(32, 24)

	for _, name := range []string{"frame-10.png", "frame-2.png", "frame-1.png"} {
		m := gen.Frame()
		require.True(t, gocv.IMWrite(filepath.Join(dir, name), m))
		m.Close()
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	files, err := ListImageFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{files[0].Frame, files[1].Frame, files[2].Frame})
}

func TestListImageFilesRejectsUnnumbered(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cat.jpg"), []byte("x"), 0o644))

	_, err := ListImageFiles(dir)
	require.Error(t, err)
}

func TestDirectoryReplay(t *testing.T) {
	dir := t.TempDir()
	gen := images.NewFrameGenerator(32, 24)

	for i, sq := range [][]image.Rectangle{nil, {image.Rect(8, 8, 16, 16)}} {
		m := gen.Frame(sq...)
		require.True(t, gocv.IMWrite(filepath.Join(dir, "frame-"+string(rune('0'+i))+".png"), m))
		m.Close()
	}

	src, err := OpenDirectory(dir)
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, 2, src.Len())

	frame := gocv.NewMat()
	defer frame.Close()

	require.NoError(t, src.Read(&frame))
	assert.Equal(t, uint8(0), frame.GetUCharAt(10, 10*3))
	require.NoError(t, src.Read(&frame))
	assert.Equal(t, uint8(255), frame.GetUCharAt(10, 10*3))
	assert.ErrorIs(t, src.Read(&frame), ErrEndOfStream)
}

func TestOpenDirectoryErrors(t *testing.T) {
	_, err := OpenDirectory(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrDeviceUnavailable)

	_, err = OpenDirectory(t.TempDir())
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
}

func TestOpenFileMissing(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing.mp4"), DeviceOptions{})
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
}
