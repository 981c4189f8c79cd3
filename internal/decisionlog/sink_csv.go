package decisionlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// csvHeader is the fixed column layout for decision rows.
var csvHeader = []string{"scenario", "mode", "decision"}

// CSVSink appends one row per decision to a CSV file. The header is
// written only when the sink creates the file, so reopening an
// existing log keeps appending rows.
type CSVSink struct {
	path   string
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

func NewCSVSink(path string) (*CSVSink, error) {
	if path == "" {
		return nil, fmt.Errorf("csv path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !os.IsExist(err) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	s := &CSVSink{
		path:   path,
		file:   f,
		writer: csv.NewWriter(f),
	}
	if info.Size() == 0 {
		if err := s.writeRow(csvHeader); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	return s, nil
}

func (s *CSVSink) Name() string { return "file_csv:" + s.path }

func (s *CSVSink) Deliver(_ context.Context, ev *Event) error {
	if ev == nil {
		return nil
	}
	row := []string{string(ev.Scenario.Kind), string(ev.Mode), string(ev.Decision)}
	if err := s.writeRow(row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	return nil
}

func (s *CSVSink) writeRow(row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writer.Write(row); err != nil {
		return err
	}
	s.writer.Flush()
	return s.writer.Error()
}

func (s *CSVSink) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer != nil {
		s.writer.Flush()
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
