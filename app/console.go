package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kilianp07/motorpanel/core/events"
	"github.com/kilianp07/motorpanel/core/model"
	coremqtt "github.com/kilianp07/motorpanel/core/mqtt"
)

// Commander dispatches operator intents.
type Commander interface {
	Dispatch(intent model.Intent, value int) error
}

// StateReader exposes the session state.
type StateReader interface {
	State() model.ConnectionState
}

const consoleHelp = `commands:
  off | left | middle | right   preset positions
  custom N | N                  send N (0-100)
  status                        show the connection state
  quit                          leave the panel`

// Console is a line-oriented operator panel. Input lines and session events
// are handled by the single goroutine running Run, so output never
// interleaves.
type Console struct {
	in    io.Reader
	out   io.Writer
	cmd   Commander
	state StateReader
}

func NewConsole(in io.Reader, out io.Writer, cmd Commander, state StateReader) *Console {
	return &Console{in: in, out: out, cmd: cmd, state: state}
}

// Run processes input until quit, end of input or ctx is done. evs may be nil.
func (c *Console) Run(ctx context.Context, evs <-chan events.Event) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	c.printf("motor panel, state %s. Type help for commands.\n", c.state.State())
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			if c.handle(line) {
				return nil
			}
		case ev, ok := <-evs:
			if !ok {
				evs = nil
				continue
			}
			c.printEvent(ev)
		}
	}
}

// handle executes one input line and reports whether the operator quit.
func (c *Console) handle(line string) bool {
	line = strings.TrimSpace(strings.ToLower(line))
	switch line {
	case "":
		return false
	case "quit", "exit":
		return true
	case "help", "?":
		c.printf("%s\n", consoleHelp)
		return false
	case "status":
		c.printf("state: %s\n", c.state.State())
		return false
	}
	intent, value, err := model.ParseIntent(line)
	if err != nil {
		c.printf("error: %v\n", err)
		return false
	}
	switch err := c.cmd.Dispatch(intent, value); {
	case err == nil:
		c.printf("sent %s (%d)\n", intent, value)
	case errors.Is(err, coremqtt.ErrNotConnected):
		c.printf("error: not connected (state %s)\n", c.state.State())
	default:
		c.printf("error: %v\n", err)
	}
	return false
}

func (c *Console) printEvent(ev events.Event) {
	switch ev.Kind {
	case events.KindState:
		if ev.Reason != "" {
			c.printf("[session] %s: %s\n", ev.State, ev.Reason)
			return
		}
		c.printf("[session] %s\n", ev.State)
	case events.KindFeedback:
		if ev.Feedback == nil {
			return
		}
		if ev.Feedback.Position >= 0 {
			c.printf("[device] position %d\n", ev.Feedback.Position)
		} else if ev.Feedback.Online {
			c.printf("[device] online\n")
		} else {
			c.printf("[device] offline\n")
		}
	}
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}
