package events

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// SnapshotFormat is the encoding of saved snapshots.
type SnapshotFormat string

const (
	JPEG SnapshotFormat = "jpeg"
	PNG  SnapshotFormat = "png"
	WebP SnapshotFormat = "webp"
)

// ErrUnknownFormat is returned for a SnapshotFormat other than JPEG, PNG or
// WebP.
var ErrUnknownFormat = errors.New("unknown snapshot format")

// Ext returns the file extension for f, without the dot.
func (f SnapshotFormat) Ext() string {
	if f == JPEG {
		return "jpg"
	}
	return string(f)
}

func (f SnapshotFormat) encode(w io.Writer, img image.Image) error {
	switch f {
	case JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 85})
	case PNG:
		return png.Encode(w, img)
	case WebP:
		return webp.Encode(w, img, &webp.Options{Quality: 80})
	default:
		return errors.Wrapf(ErrUnknownFormat, "%q", string(f))
	}
}

// ParseSnapshotFormat validates a format name. An empty name means JPEG.
func ParseSnapshotFormat(name string) (SnapshotFormat, error) {
	switch f := SnapshotFormat(name); f {
	case "":
		return JPEG, nil
	case JPEG, PNG, WebP:
		return f, nil
	default:
		return "", errors.Wrapf(ErrUnknownFormat, "%q", name)
	}
}

// SnapshotWriter saves a thumbnail of the frame that triggered an event.
type SnapshotWriter struct {
	Dir    string
	Width  uint
	Format SnapshotFormat
}

// NewSnapshotWriter creates dir if needed.
func NewSnapshotWriter(dir string, width uint, format SnapshotFormat) (*SnapshotWriter, error) {
	if width == 0 {
		return nil, errors.New("snapshot width must be positive")
	}
	format, err := ParseSnapshotFormat(string(format))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create snapshot dir %s", dir)
	}
	return &SnapshotWriter{Dir: dir, Width: width, Format: format}, nil
}

// Path is where the snapshot for e is written.
func (s *SnapshotWriter) Path(e Event) string {
	name := fmt.Sprintf("%s-%s-%s.%s", e.Time.Format("20060102-150405"), e.Kind, e.ID, s.Format.Ext())
	return filepath.Join(s.Dir, name)
}

// Save writes frame, scaled to Width with its aspect ratio kept. Frames
// narrower than Width are written at their own size.
func (s *SnapshotWriter) Save(e Event, frame gocv.Mat) (string, error) {
	if frame.Empty() {
		return "", errors.New("snapshot of empty frame")
	}

	img, err := frame.ToImage()
	if err != nil {
		return "", errors.Wrap(err, "convert frame")
	}
	if uint(img.Bounds().Dx()) > s.Width {
		img = resize.Resize(s.Width, 0, img, resize.Lanczos3)
	}

	path := s.Path(e)
	out, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "create snapshot %s", path)
	}
	if err := s.Format.encode(out, img); err != nil {
		out.Close()
		return "", errors.Wrapf(err, "encode snapshot %s", path)
	}
	return path, errors.Wrapf(out.Close(), "close snapshot %s", path)
}
