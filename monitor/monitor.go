// Package monitor is the host side of the tuner's serial console: it opens the port, sends
// commands and follows the trace lines the tuner prints.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/calvinmclean/autotune/trace"
)

// DefaultBaudRate matches the tuner firmware
const DefaultBaudRate = 115200

// readTimeout lets Follow notice a cancelled context while the tuner is quiet
const readTimeout = 100 * time.Millisecond

// maxLineLength bounds a line that never ends, as when the port runs at the wrong baud rate.
// Longer input is passed to onLine in pieces of this size.
const maxLineLength = 256

// Open opens the tuner's serial port with 8N1 framing
func Open(name string, baud int) (serial.Port, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("error opening serial port %q: %w", name, err)
	}

	err = port.SetReadTimeout(readTimeout)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("error setting read timeout: %w", err)
	}
	return port, nil
}

// Ports lists the serial ports on this machine
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("error listing serial ports: %w", err)
	}
	return ports, nil
}

// Send writes console commands to the tuner
func Send(w io.Writer, commands string) error {
	_, err := io.WriteString(w, commands)
	if err != nil {
		return fmt.Errorf("error writing serial: %w", err)
	}
	return nil
}

// Follow reads lines from r until ctx is done or r is exhausted. Trace lines are parsed and
// passed to onRecord; every other non-empty line goes to onLine, which may be nil. Lines longer
// than maxLineLength are never parsed.
// A reader with a read timeout may return no data; Follow keeps waiting.
func Follow(ctx context.Context, r io.Reader, onRecord func(trace.Record), onLine func(string)) error {
	handle := func(line string) {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			return
		}

		record, err := trace.Parse(line)
		switch {
		case err == nil:
			onRecord(record)
		case onLine != nil && errors.Is(err, trace.ErrNotRecord):
			onLine(line)
		case onLine != nil:
			onLine(line + " (" + err.Error() + ")")
		}
	}

	buf := make([]byte, 256)
	var line []byte
	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			if b != '\n' {
				line = append(line, b)
				if len(line) == maxLineLength {
					if onLine != nil {
						onLine(string(line))
					}
					line = line[:0]
				}
				continue
			}
			handle(string(line))
			line = line[:0]
		}

		if errors.Is(err, io.EOF) {
			handle(string(line))
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading serial: %w", err)
		}
	}
}
