package events

import "errors"

// Multi fans each event out to every logger. All loggers are attempted even
// when one fails; the failures are joined.
type Multi []Logger

// Log records e in every logger.
func (m Multi) Log(e Event) error {
	var errs []error
	for _, l := range m {
		if err := l.Log(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every logger that holds resources.
func (m Multi) Close() error {
	var errs []error
	for _, l := range m {
		if c, ok := l.(Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
