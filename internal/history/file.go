package history

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "framesched/pkg/logx"
)

// fileStore is a dependency-free backend: one append-only JSON Lines file.
// Recent() rescans the file; it is meant for operator inspection, not hot
// paths.
type fileStore struct {
	log logx.Logger

	mu   sync.Mutex
	path string
	f    *os.File
	w    *bufio.Writer

	writes int
}

const fileFlushEvery = 16

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("history.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &fileStore{
		log:  log,
		path: path,
		f:    f,
		w:    bufio.NewWriter(f),
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	_ = s.w.Flush()
	err := s.f.Close()
	s.f = nil
	s.w = nil
	return err
}

func (s *fileStore) Append(ctx context.Context, e Entry) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return ErrDisabled
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(append(b, '\n')); err != nil {
		return err
	}
	s.writes++
	if s.writes%fileFlushEvery == 0 {
		return s.w.Flush()
	}
	return nil
}

func (s *fileStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	_ = ctx
	if limit <= 0 {
		limit = 50
	}

	s.mu.Lock()
	if s.f == nil {
		s.mu.Unlock()
		return nil, ErrDisabled
	}
	_ = s.w.Flush()
	path := s.path
	s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Keep a sliding tail of the last `limit` lines.
	tail := make([]Entry, 0, limit)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			// Skip corrupt lines (e.g. torn writes after a crash).
			s.log.Debug("skipping corrupt history line", logx.Err(err))
			continue
		}
		if len(tail) == limit {
			copy(tail, tail[1:])
			tail = tail[:limit-1]
		}
		tail = append(tail, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return tail, nil
}
