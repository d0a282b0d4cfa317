// Package images - This file contains the motion detection functionality
// using OpenCV (via gocv).
//
// The MotionSegmenter struct encapsulates the foreground extraction pipeline:
//  1. Background subtraction using KNN.
//  2. Morphological opening to drop isolated specks.
//  3. Dilation to reconnect fragmented regions.
//
// Pipeline Overview:
//
// ┌──────────────┐
// │ Input Frame  │
// └──────┬───────┘
// ┌────────────────────────────┐
// │ Background Subtraction     │
// │       (KNN)                │
// └──────┬─────────────────────┘
// ┌────────────────────────────┐
// │ Morphology (open)          │
// └──────┬─────────────────────┘
// ┌────────────────────────────┐
// │ Morphology (dilate x N)    │
// └──────┬─────────────────────┘
// ┌────────────────────────────┐
// │ Foreground Mask            │
// └────────────────────────────┘
//
// Usage:
//
//	seg := images.NewMotionSegmenter(images.DefaultSegmenterConfig())
//	defer seg.Close()
//
//	for {
//	    frame := getNextFrame()
//	    mask, err := seg.Apply(frame)
//	    ...
//	}
//
// Note: You must call Close() when finished to release native resources.
package images

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// SegmenterConfig parameterizes the background model and mask cleanup.
type SegmenterConfig struct {
	// History is the number of recent frames the KNN model learns from.
	History int
	// DistThreshold is the squared distance between a pixel and its samples
	// above which the pixel is foreground.
	DistThreshold float32
	// DetectShadows marks shadow pixels with a mid-gray value instead of white.
	DetectShadows bool
	// KernelSize is the diameter of the elliptical structuring element.
	KernelSize int
	// DilationIterations is the number of dilation passes after opening.
	DilationIterations int
	// WarmupFrames is how many frames after construction or Reset produce an
	// empty mask while the model learns. A fresh KNN model reports nearly
	// every pixel as foreground until it holds enough samples.
	WarmupFrames int
}

// DefaultSegmenterConfig returns the parameters used by the default config file.
func DefaultSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		History:            500,
		DistThreshold:      400,
		DetectShadows:      true,
		KernelSize:         3,
		DilationIterations: 2,
		WarmupFrames:       5,
	}
}

// MotionSegmenter turns frames into cleaned foreground masks.
//
// This struct is stateful: the background model accumulates every frame passed
// to Apply, so the mask for frame N depends on frames 1..N-1. It is not safe
// for concurrent use; the owning loop is the only caller.
type MotionSegmenter struct {
	Delta                gocv.Mat                     // Raw foreground mask from background subtraction.
	Mask                 gocv.Mat                     // Mask after opening and dilation.
	Kernel               gocv.Mat                     // Elliptical structuring element.
	BackgroundSubtractor gocv.BackgroundSubtractorKNN // Persistent background model.

	config SegmenterConfig
	frames int
}

// NewMotionSegmenter constructs a MotionSegmenter with a fresh background model.
//
// Always call Close() to release memory.
func NewMotionSegmenter(config SegmenterConfig) *MotionSegmenter {
	if config.KernelSize < 1 {
		config.KernelSize = 1
	}
	if config.DilationIterations < 0 {
		config.DilationIterations = 0
	}
	if config.WarmupFrames < 0 {
		config.WarmupFrames = 0
	}

	return &MotionSegmenter{
		Delta:                gocv.NewMat(),
		Mask:                 gocv.NewMat(),
		Kernel:               gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(config.KernelSize, config.KernelSize)),
		BackgroundSubtractor: newSubtractor(config),
		config:               config,
	}
}

func newSubtractor(config SegmenterConfig) gocv.BackgroundSubtractorKNN {
	return gocv.NewBackgroundSubtractorKNNWithParams(config.History, float64(config.DistThreshold), config.DetectShadows)
}

// Config returns the parameters the segmenter was built with.
func (m *MotionSegmenter) Config() SegmenterConfig {
	return m.config
}

// Frames returns how many frames the current background model has seen.
func (m *MotionSegmenter) Frames() int {
	return m.frames
}

// Warming reports whether the model is still inside its warm-up window.
func (m *MotionSegmenter) Warming() bool {
	return m.frames <= m.config.WarmupFrames
}

// SubtractBackground updates the background model with frame and writes the
// raw foreground mask into Delta.
func (m *MotionSegmenter) SubtractBackground(frame gocv.Mat) error {
	if err := m.BackgroundSubtractor.Apply(frame, &m.Delta); err != nil {
		return err
	}
	m.frames++
	return nil
}

// Open removes foreground specks smaller than the structuring element.
func (m *MotionSegmenter) Open() error {
	return gocv.MorphologyEx(m.Delta, &m.Mask, gocv.MorphOpen, m.Kernel)
}

// FillGaps dilates the opened mask DilationIterations times.
func (m *MotionSegmenter) FillGaps() error {
	for i := 0; i < m.config.DilationIterations; i++ {
		if err := gocv.Dilate(m.Mask, &m.Mask, m.Kernel); err != nil {
			return err
		}
	}
	return nil
}

// Apply runs the full pipeline on frame and returns the cleaned mask.
//
// The returned Mat is owned by the segmenter and overwritten by the next call;
// clone it to keep it.
func (m *MotionSegmenter) Apply(frame gocv.Mat) (gocv.Mat, error) {
	if frame.Empty() {
		return m.Mask, fmt.Errorf("empty frame")
	}
	if err := m.SubtractBackground(frame); err != nil {
		return m.Mask, fmt.Errorf("background subtraction: %w", err)
	}
	if m.Warming() {
		m.Delta.CopyTo(&m.Mask)
		m.Mask.SetTo(gocv.NewScalar(0, 0, 0, 0))
		return m.Mask, nil
	}
	if err := m.Open(); err != nil {
		return m.Mask, fmt.Errorf("morphological open: %w", err)
	}
	if err := m.FillGaps(); err != nil {
		return m.Mask, fmt.Errorf("dilate: %w", err)
	}
	return m.Mask, nil
}

// Reset discards the background model and starts a new one with the same
// parameters. Use it after lighting changes or drift.
func (m *MotionSegmenter) Reset() error {
	if err := m.BackgroundSubtractor.Close(); err != nil {
		return err
	}
	m.BackgroundSubtractor = newSubtractor(m.config)
	m.frames = 0
	return nil
}

// Close releases all OpenCV native resources used by the segmenter.
func (m *MotionSegmenter) Close() error {
	m.Delta.Close()
	m.Mask.Close()
	m.Kernel.Close()
	return m.BackgroundSubtractor.Close()
}
