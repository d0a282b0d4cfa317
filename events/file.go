package events

import (
	"io/fs"
	"os"

	"github.com/pkg/errors"
)

var (
	// ErrPermissionDenied is returned when the log file cannot be opened for
	// writing because of its permissions.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrMissingDirectory is returned when the log file's directory does not
	// exist.
	ErrMissingDirectory = errors.New("missing directory")
	// ErrWrite wraps any other I/O failure.
	ErrWrite = errors.New("write failed")
)

// FileLogger appends one line per event to a plain text file.
//
// The file is opened for every append so that it can be rotated or removed
// while the monitor runs.
type FileLogger struct {
	Path string
}

// NewFileLogger returns a FileLogger for path. The file is created on the
// first append.
func NewFileLogger(path string) *FileLogger {
	return &FileLogger{Path: path}
}

// Log appends e to the file. Errors are categorized as ErrPermissionDenied,
// ErrMissingDirectory or ErrWrite.
func (f *FileLogger) Log(e Event) error {
	file, err := os.OpenFile(f.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return f.categorize(err)
	}

	if _, err := file.WriteString(e.String() + "\n"); err != nil {
		file.Close()
		return f.categorize(err)
	}
	if err := file.Close(); err != nil {
		return f.categorize(err)
	}
	return nil
}

func (f *FileLogger) categorize(err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return errors.Wrapf(ErrPermissionDenied, "event log %s", f.Path)
	case errors.Is(err, fs.ErrNotExist):
		return errors.Wrapf(ErrMissingDirectory, "event log %s", f.Path)
	default:
		return errors.Wrapf(ErrWrite, "event log %s: %v", f.Path, err)
	}
}
