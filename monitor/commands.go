package monitor

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// Command is an operator request polled once per frame.
type Command int

const (
	// None means nothing was requested.
	None Command = iota
	// Quit stops the loop after the current frame.
	Quit
	// Reset reinitializes the background model.
	Reset
)

func (c Command) String() string {
	switch c {
	case Quit:
		return "quit"
	case Reset:
		return "reset"
	default:
		return "none"
	}
}

// KeyCommand maps a key code from the preview window to a command.
func KeyCommand(key int) Command {
	switch key {
	case 'q', 'Q':
		return Quit
	case 'r', 'R':
		return Reset
	default:
		return None
	}
}

// ParseCommand maps a line of operator input to a command.
func ParseCommand(line string) Command {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "q", "quit", "exit":
		return Quit
	case "r", "reset":
		return Reset
	default:
		return None
	}
}

// ReadCommands scans r line by line and sends every recognized command on the
// returned channel. The channel is closed when r is exhausted or ctx is done.
//
// The reader runs on its own goroutine; the monitor only ever sees commands
// through the channel.
func ReadCommands(ctx context.Context, r io.Reader) <-chan Command {
	out := make(chan Command, 8)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			cmd := ParseCommand(scanner.Text())
			if cmd == None {
				continue
			}
			select {
			case out <- cmd:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
