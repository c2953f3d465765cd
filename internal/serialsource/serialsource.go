// Package serialsource implements a DetectionSource that reads
// line-oriented detections from a live serial port, mirroring the
// teacher's radar/serial.go port wrapper and the comma-separated
// line parsing from its handleEvent.
package serialsource

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.bug.st/serial"

	"github.com/yeltrix/radartrack/internal/model"
)

// ErrMalformedInput is returned when a line cannot be parsed into a
// detection; the caller aborts ingestion of that record only.
var ErrMalformedInput = errors.New("serialsource: malformed input line")

// Source reads "uptime,range,azimuth,elevation" lines from a serial
// port and yields them as detections.
type Source struct {
	port    serial.Port
	scanner *bufio.Scanner
}

// Open opens portName at the given baud rate and returns a Source
// reading from it.
func Open(portName string, baudRate int) (*Source, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("serialsource: open %s: %w", portName, err)
	}
	return &Source{port: port, scanner: bufio.NewScanner(port)}, nil
}

// Close closes the underlying serial port.
func (s *Source) Close() error {
	return s.port.Close()
}

// Next reads and parses the next line. It returns ok=false once the
// port's stream ends (EOF), and ErrMalformedInput wrapped with the
// offending line if a line doesn't parse.
func (s *Source) Next() (model.Detection, bool, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return model.Detection{}, false, fmt.Errorf("serialsource: read: %w", err)
		}
		return model.Detection{}, false, nil
	}
	d, err := parseLine(s.scanner.Text())
	if err != nil {
		return model.Detection{}, false, err
	}
	return d, true, nil
}

func parseLine(line string) (model.Detection, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 4 {
		return model.Detection{}, fmt.Errorf("%w: %q: expected 4 comma-separated fields, got %d", ErrMalformedInput, line, len(fields))
	}

	t, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return model.Detection{}, fmt.Errorf("%w: %q: uptime: %v", ErrMalformedInput, line, err)
	}
	r, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return model.Detection{}, fmt.Errorf("%w: %q: range: %v", ErrMalformedInput, line, err)
	}
	az, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return model.Detection{}, fmt.Errorf("%w: %q: azimuth: %v", ErrMalformedInput, line, err)
	}
	el, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	if err != nil {
		return model.Detection{}, fmt.Errorf("%w: %q: elevation: %v", ErrMalformedInput, line, err)
	}

	return model.Detection{R: r, Az: az, El: el, T: t}, nil
}
