package userstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"userfeed/internal/domain"
)

const defaultQueueSize = 128

// Options tunes a Store.
type Options struct {
	// Sync fsyncs the file after every append before signalling completion.
	Sync bool
	// QueueSize bounds the number of appends waiting for the writer.
	QueueSize int
	Logger    *logrus.Logger
}

// Store is an append-only file of users, one JSON object per line.
//
// All appends go through a single writer goroutine, so lines from
// concurrent callers never interleave. Records are never updated or removed.
type Store struct {
	path   string
	sync   bool
	logger *logrus.Logger

	// fileMu is held exclusively while a line is written and shared by readers,
	// so a reader never observes a partially written line.
	fileMu sync.RWMutex

	mu     sync.RWMutex
	closed bool
	reqCh  chan appendRequest
	done   chan struct{}
}

type appendRequest struct {
	line []byte
	done chan error
}

// Open prepares the store file at path, creating it and its parent
// directory when absent, and starts the writer.
func Open(path string, opts Options) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open store file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close store file %s: %w", path, err)
	}

	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	s := &Store{
		path:   path,
		sync:   opts.Sync,
		logger: opts.Logger,
		reqCh:  make(chan appendRequest, opts.QueueSize),
		done:   make(chan struct{}),
	}
	go s.writeLoop()
	return s, nil
}

// Path returns the location of the store file.
func (s *Store) Path() string {
	return s.path
}

// Submit queues user for appending and returns a channel that receives
// exactly one value once the line is on disk: nil or a *StoreError.
func (s *Store) Submit(user domain.User) <-chan error {
	done := make(chan error, 1)

	line, err := json.Marshal(user)
	if err != nil {
		done <- &StoreError{Kind: WriteFailure, Path: s.path, Err: fmt.Errorf("encode user: %w", err)}
		return done
	}
	line = append(line, '\n')

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		done <- &StoreError{Kind: WriteFailure, Path: s.path, Err: ErrStoreClosed}
		return done
	}
	s.reqCh <- appendRequest{line: line, done: done}
	return done
}

// Append writes user as the last line of the store and waits for the write
// to complete. If ctx ends first, Append returns ctx.Err() and the queued
// write still happens.
func (s *Store) Append(ctx context.Context, user domain.User) error {
	select {
	case err := <-s.Submit(user):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// List reads the whole store and returns every record in file order. Blank
// lines are skipped; any line that is not a valid record fails the call.
func (s *Store) List(ctx context.Context) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.fileMu.RLock()
	data, err := os.ReadFile(s.path)
	s.fileMu.RUnlock()
	if err != nil {
		return nil, &StoreError{Kind: ReadFailure, Path: s.path, Err: err}
	}

	users := make([]domain.User, 0, bytes.Count(data, []byte{'\n'}))
	for i, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var user domain.User
		if err := json.Unmarshal(line, &user); err != nil {
			return nil, &StoreError{Kind: ParseFailure, Path: s.path, Line: i + 1, Err: err}
		}
		users = append(users, user)
	}
	return users, nil
}

// Snapshot copies the current store contents to w.
func (s *Store) Snapshot(w io.Writer) (int64, error) {
	s.fileMu.RLock()
	defer s.fileMu.RUnlock()

	f, err := os.Open(s.path)
	if err != nil {
		return 0, &StoreError{Kind: ReadFailure, Path: s.path, Err: err}
	}
	defer f.Close()

	n, err := io.Copy(w, f)
	if err != nil {
		return n, &StoreError{Kind: ReadFailure, Path: s.path, Err: err}
	}
	return n, nil
}

// Close rejects further appends, waits for queued appends to finish and
// stops the writer. Each queued append reports its own result on its
// completion channel. It is safe to call more than once.
func (s *Store) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.reqCh)
	}
	s.mu.Unlock()

	<-s.done
}

func (s *Store) writeLoop() {
	defer close(s.done)
	for req := range s.reqCh {
		req.done <- s.write(req.line)
	}
}

func (s *Store) write(line []byte) error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &StoreError{Kind: WriteFailure, Path: s.path, Err: err}
	}

	n, err := f.Write(line)
	if err != nil {
		_ = f.Close()
		return &StoreError{Kind: WriteFailure, Path: s.path, Err: err}
	}
	if s.sync {
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return &StoreError{Kind: WriteFailure, Path: s.path, Err: err}
		}
	}
	if err := f.Close(); err != nil {
		return &StoreError{Kind: WriteFailure, Path: s.path, Err: err}
	}

	s.logger.WithField("bytes", n).Debug("appended user record")
	return nil
}
