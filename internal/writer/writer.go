package writer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type WriteMode int

const (
	ModeAppend WriteMode = iota
	ModeReplace
)

type MapperFunc[T any] func(T) []string

type HeaderFunc[T any] func() []string

type writeRequest[T any] struct {
	rows   []T
	path   string
	mode   WriteMode
	result chan error
}

// CSVWriter funnels every write through one goroutine so concurrent callers
// never interleave rows. A header is written whenever a file starts empty.
type CSVWriter[T any] struct {
	requests  chan writeRequest[T]
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	mapper    MapperFunc[T]
	header    HeaderFunc[T]
}

var ErrClosed = errors.New("csv writer is closed")

func NewCSVWriter[T any](mapper MapperFunc[T], header HeaderFunc[T]) *CSVWriter[T] {
	w := &CSVWriter[T]{
		requests: make(chan writeRequest[T], 16),
		done:     make(chan struct{}),
		mapper:   mapper,
		header:   header,
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *CSVWriter[T]) run() {
	defer w.wg.Done()
	for {
		select {
		case req := <-w.requests:
			req.result <- w.writeRows(req.rows, req.path, req.mode)
		case <-w.done:
			return
		}
	}
}

// Write appends rows to path, or replaces its contents in ModeReplace, and
// blocks until the rows are on disk.
func (w *CSVWriter[T]) Write(path string, mode WriteMode, rows ...T) error {
	req := writeRequest[T]{rows: rows, path: path, mode: mode, result: make(chan error, 1)}

	select {
	case <-w.done:
		return ErrClosed
	default:
	}

	select {
	case w.requests <- req:
		return <-req.result
	case <-w.done:
		return ErrClosed
	}
}

func (w *CSVWriter[T]) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.wg.Wait()
	})
}

func (w *CSVWriter[T]) writeRows(rows []T, path string, mode WriteMode) (err error) {
	if len(rows) == 0 && mode == ModeAppend {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if mode == ModeReplace {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("opening CSV file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing CSV file: %w", cerr)
		}
	}()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("inspecting CSV file: %w", err)
	}

	cw := csv.NewWriter(file)
	if info.Size() == 0 && len(rows) > 0 {
		if err := cw.Write(w.header()); err != nil {
			return fmt.Errorf("writing CSV header: %w", err)
		}
	}

	for _, row := range rows {
		if err := cw.Write(w.mapper(row)); err != nil {
			return fmt.Errorf("writing CSV record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing CSV: %w", err)
	}
	return nil
}
