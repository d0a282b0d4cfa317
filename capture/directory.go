package capture

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ImageFile is one frame of a recorded sequence.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Frame is the frame number parsed from the file name.
	Frame int
}

// ListImageFiles returns the frame images in dir ordered by frame number.
//
// Files must be named frame-<N>.<ext> with ext one of jpg, jpeg, png or bmp.
// Other extensions and sub directories are ignored.
func ListImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(ErrDeviceUnavailable, "frames %s: %v", dir, err)
	}

	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := filepath.Ext(entry.Name())
		switch strings.ToLower(ext) {
		case ".jpg", ".jpeg", ".png", ".bmp":
			name := strings.TrimSuffix(entry.Name(), ext)
			frame, err := strconv.Atoi(strings.TrimPrefix(name, "frame-"))
			if err != nil {
				return nil, errors.Wrapf(err, "frame number of %s", entry.Name())
			}
			files = append(files, ImageFile{
				Path:  filepath.Join(dir, entry.Name()),
				Frame: frame,
			})
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Frame < files[j].Frame
	})

	return files, nil
}

// Directory replays a recorded frame sequence from disk. Images are decoded
// lazily, one per Read.
type Directory struct {
	dir   string
	files []ImageFile
	next  int
}

// OpenDirectory lists the frames in dir. An empty directory is an error.
func OpenDirectory(dir string) (*Directory, error) {
	files, err := ListImageFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Wrapf(ErrDeviceUnavailable, "frames %s: no images", dir)
	}
	return &Directory{dir: dir, files: files}, nil
}

// Read decodes the next image. Unreadable images end the stream.
func (d *Directory) Read(dst *gocv.Mat) error {
	if d.next >= len(d.files) {
		return ErrEndOfStream
	}
	file := d.files[d.next]
	d.next++

	img := gocv.IMRead(file.Path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return errors.Wrapf(ErrEndOfStream, "decode %s", file.Path)
	}
	defer img.Close()

	img.CopyTo(dst)
	return nil
}

// Len returns the number of frames in the sequence.
func (d *Directory) Len() int {
	return len(d.files)
}

// Close is a no-op; images are released after each Read.
func (d *Directory) Close() error {
	return nil
}

func (d *Directory) String() string {
	return "frames " + d.dir
}
