package capture

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DefaultRetryDelay is the pause between consecutive failed reads.
const DefaultRetryDelay = 100 * time.Millisecond

// Device reads frames from a camera or a video file through OpenCV.
type Device struct {
	capture    *gocv.VideoCapture
	name       string
	retries    int
	retryDelay time.Duration
	log        *slog.Logger
}

// DeviceOptions tunes how read failures are handled.
type DeviceOptions struct {
	// Retries is how many consecutive failed reads are tolerated before the
	// stream is reported as ended. Zero ends the stream on the first failure.
	Retries int
	// RetryDelay is the pause between attempts. Defaults to DefaultRetryDelay.
	RetryDelay time.Duration
	// Logger receives retry warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// OpenDevice opens the video capture device with the given index.
func OpenDevice(deviceID int, opts DeviceOptions) (*Device, error) {
	return open(deviceID, fmt.Sprintf("device %d", deviceID), opts)
}

// OpenFile opens a video file.
func OpenFile(path string, opts DeviceOptions) (*Device, error) {
	return open(path, path, opts)
}

func open(target interface{}, name string, opts DeviceOptions) (*Device, error) {
	vc, err := gocv.OpenVideoCapture(target)
	if err != nil {
		return nil, errors.Wrapf(ErrDeviceUnavailable, "%s: %v", name, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, errors.Wrapf(ErrDeviceUnavailable, "%s: not opened", name)
	}

	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}

	return &Device{
		capture:    vc,
		name:       name,
		retries:    opts.Retries,
		retryDelay: opts.RetryDelay,
		log:        opts.Logger,
	}, nil
}

// Read grabs the next frame. Failed or empty reads are retried up to the
// configured number of times before ErrEndOfStream is returned.
func (d *Device) Read(dst *gocv.Mat) error {
	for attempt := 0; ; attempt++ {
		if ok := d.capture.Read(dst); ok && !dst.Empty() {
			return nil
		}
		if attempt >= d.retries {
			return ErrEndOfStream
		}
		d.log.Warn("frame read failed, retrying",
			"source", d.name, "attempt", attempt+1, "retries", d.retries)
		time.Sleep(d.retryDelay)
	}
}

// Close releases the capture device.
func (d *Device) Close() error {
	return d.capture.Close()
}

func (d *Device) String() string {
	return d.name
}
