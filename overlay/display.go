package overlay

import (
	"gocv.io/x/gocv"
)

const (
	// PreviewTitle is the title of the annotated frame window.
	PreviewTitle = "Litter Box Monitor"
	// MaskTitle is the title of the foreground mask window.
	MaskTitle = "Motion Mask"
)

// NoKey is returned by Display.Poll when no key was pressed.
const NoKey = -1

// Display shows annotated frames and, optionally, the motion mask.
//
// A Display with no windows is valid: Show does nothing and Poll returns NoKey
// without waiting.
type Display struct {
	preview *gocv.Window
	mask    *gocv.Window
}

// NewDisplay opens the preview window when preview is set and the mask window
// when both preview and mask are set.
func NewDisplay(preview, mask bool) *Display {
	d := &Display{}
	if !preview {
		return d
	}
	d.preview = gocv.NewWindow(PreviewTitle)
	if mask {
		d.mask = gocv.NewWindow(MaskTitle)
	}
	return d
}

// Headless returns a Display with no windows.
func Headless() *Display {
	return &Display{}
}

// Enabled reports whether any window is open.
func (d *Display) Enabled() bool {
	return d.preview != nil
}

// Show renders frame and mask into their windows.
func (d *Display) Show(frame, mask gocv.Mat) {
	if d.preview != nil && !frame.Empty() {
		d.preview.IMShow(frame)
	}
	if d.mask != nil && !mask.Empty() {
		d.mask.IMShow(mask)
	}
}

// Poll waits at most one millisecond for a key press and returns its low
// byte, or NoKey.
func (d *Display) Poll() int {
	if d.preview == nil {
		return NoKey
	}
	key := d.preview.WaitKey(1)
	if key < 0 {
		return NoKey
	}
	return key & 0xFF
}

// Close closes any open windows.
func (d *Display) Close() error {
	var err error
	if d.mask != nil {
		err = d.mask.Close()
		d.mask = nil
	}
	if d.preview != nil {
		if cerr := d.preview.Close(); err == nil {
			err = cerr
		}
		d.preview = nil
	}
	return err
}
