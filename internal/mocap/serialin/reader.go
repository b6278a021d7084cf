// Package serialin reads newline-delimited landmark payloads from a serial
// device.
package serialin

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"

	"github.com/banshee-data/mocap.render/internal/mocap/ingest"
	"github.com/banshee-data/mocap.render/internal/mocap/network"
	"github.com/banshee-data/mocap.render/internal/monitoring"
)

// MaxLine bounds a single payload line.
const MaxLine = 1 << 20

// ErrLineTooLong reports a line longer than MaxLine. The line is consumed
// and dropped; reading continues with the next one.
var ErrLineTooLong = errors.New("serial line exceeds MaxLine")

// SerialPorter is the part of a serial port the reader needs.
type SerialPorter interface {
	io.Reader
	io.Closer
}

// Reader dispatches every line read from a port as one payload.
type Reader struct {
	port    SerialPorter
	handler ingest.Handler
	stats   *network.Stats

	closeOnce sync.Once
	closeErr  error
}

// NewReader wraps an open port. A nil stats allocates fresh counters.
func NewReader(port SerialPorter, handler ingest.Handler, stats *network.Stats) *Reader {
	if stats == nil {
		stats = network.NewStats()
	}
	return &Reader{port: port, handler: handler, stats: stats}
}

// Open opens the device at path with opts.
func Open(path string, opts PortOptions, handler ingest.Handler, stats *network.Stats) (*Reader, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	monitoring.Logf("[Serial] opened %s at %d baud", path, mode.BaudRate)
	return NewReader(port, handler, stats), nil
}

// Stats returns the reader's counters.
func (r *Reader) Stats() *network.Stats { return r.stats }

// readLine returns the next line and its size in bytes, terminator
// included. A final line without a newline is still returned. A line over
// max is read through to its newline but not kept.
func readLine(br *bufio.Reader, max int) ([]byte, int, error) {
	var line []byte
	n := 0
	for {
		chunk, err := br.ReadSlice('\n')
		n += len(chunk)
		if len(line) <= max {
			line = append(line, chunk...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !(errors.Is(err, io.EOF) && n > 0) {
			return nil, n, err
		}
		break
	}
	if n > max+1 || (n == max+1 && !bytes.HasSuffix(line, []byte("\n"))) {
		return nil, n, ErrLineTooLong
	}
	return bytes.TrimRight(line, "\r\n"), n, nil
}

type readResult struct {
	line []byte
	size int
	err  error
}

// Run reads lines until ctx is cancelled, the port reaches EOF, or a read
// fails. Blank lines are skipped. A line that fails to dispatch or exceeds
// MaxLine is logged, counted as dropped, and skipped.
func (r *Reader) Run(ctx context.Context) error {
	br := bufio.NewReaderSize(r.port, 64*1024)
	results := make(chan readResult)

	// Reads block; keep them off the select loop.
	go func() {
		defer close(results)
		for {
			line, n, err := readLine(br, MaxLine)
			if errors.Is(err, io.EOF) {
				return
			}
			select {
			case results <- readResult{line: bytes.TrimSpace(line), size: n, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil && !errors.Is(err, ErrLineTooLong) {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-results:
			if !ok {
				return nil
			}
			if errors.Is(res.err, ErrLineTooLong) {
				r.stats.Add(ingest.EventTypeUnknown, res.size, res.err)
				monitoring.Logf("[Serial] dropping %d byte line: %v", res.size, res.err)
				continue
			}
			if res.err != nil {
				return fmt.Errorf("serial read: %w", res.err)
			}
			if len(res.line) == 0 {
				continue
			}
			kind, err := r.handler.HandlePayload(res.line)
			r.stats.Add(kind, len(res.line), err)
			if err != nil {
				monitoring.Logf("[Serial] dropping %s payload: %v", kind, err)
			}
		}
	}
}

// Close closes the port, unblocking Run.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() { r.closeErr = r.port.Close() })
	return r.closeErr
}
