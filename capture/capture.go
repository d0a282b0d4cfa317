// Package capture - frame sources for the monitor loop.
//
// A Source yields frames in order into a caller-owned Mat and reports
// ErrEndOfStream once no more frames can be produced. Sources are not safe
// for concurrent use.
package capture

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

var (
	// ErrEndOfStream is returned by Read when the source is exhausted or the
	// device stopped producing frames.
	ErrEndOfStream = errors.New("end of stream")
	// ErrDeviceUnavailable is returned when a capture device or file cannot
	// be opened.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
)

// Source produces an ordered sequence of frames.
type Source interface {
	// Read decodes the next frame into dst. It returns ErrEndOfStream when
	// there are no more frames.
	Read(dst *gocv.Mat) error
	// Close releases the underlying device.
	Close() error
	// String names the source for logs.
	String() string
}
