package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeComment(line string) error {
	if s == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if !strings.HasSuffix(line, "\r\n") {
		line = strings.TrimSuffix(line, "\n")
		line += "\r\n"
	}
	if _, err := s.buf.WriteString(line); err != nil {
		return err
	}
	return nil
}

func (s *csvStreamer) writeRow(row []string) error {
	if s == nil || s.csv == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.flush()
	}
	return nil
}

func (s *csvStreamer) flush() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	s.pendingLines = 0
	return s.buf.Flush()
}

// StreamCSV writes a table as CSV, flushing periodically so large row sets
// stream instead of buffering whole.
func StreamCSV(w io.Writer, t Table) error {
	s := newCSVStreamer(w)
	if t.Title != "" {
		if err := s.writeComment("# " + t.Title); err != nil {
			return err
		}
	}
	if len(t.Headers) > 0 {
		if err := s.writeRow(t.Headers); err != nil {
			return err
		}
	}
	for _, row := range t.Rows {
		if err := s.writeRow(row); err != nil {
			return err
		}
	}
	return s.flush()
}
