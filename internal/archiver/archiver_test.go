package archiver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userfeed/internal/storage"
)

type memSource struct {
	mu   sync.Mutex
	data []byte
	err  error
}

func (m *memSource) Snapshot(w io.Writer) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	n, err := w.Write(m.data)
	return int64(n), err
}

func (m *memSource) append(s string) {
	m.mu.Lock()
	m.data = append(m.data, s...)
	m.mu.Unlock()
}

type memStorage struct {
	mu      sync.Mutex
	uploads map[string]string
	err     error
}

func (m *memStorage) Upload(ctx context.Context, body io.Reader, opts storage.UploadOptions) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploads == nil {
		m.uploads = map[string]string{}
	}
	m.uploads[opts.Key] = string(data)
	return "s3://" + opts.Bucket + "/" + opts.Key, nil
}

func (m *memStorage) ListObjects(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.ObjectInfo
	for key, body := range m.uploads {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(body))})
		}
	}
	return out, nil
}

func (m *memStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.uploads)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestArchiver(t *testing.T, src Snapshotter, store storage.Service, interval time.Duration) *archiver {
	t.Helper()
	a := New(Config{
		Bucket:   "archive",
		Interval: interval,
		TempDir:  t.TempDir(),
		Logger:   testLogger(),
	}, src, store).(*archiver)
	a.now = func() time.Time { return time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC) }
	return a
}

func TestArchiveNowUploadsSnapshot(t *testing.T) {
	src := &memSource{data: []byte("{\"name\":\"Ann\",\"email\":\"a@x.com\",\"age\":30}\n")}
	store := &memStorage{}
	a := newTestArchiver(t, src, store, time.Hour)

	dest, err := a.ArchiveNow(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dest, "s3://archive/userfeed/users-20261018T093000Z-"))
	assert.True(t, strings.HasSuffix(dest, ".jsonl"))

	objects, err := a.List(context.Background())
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, int64(len(src.data)), objects[0].Size)
}

func TestArchiveNowSkipsUnchangedStore(t *testing.T) {
	src := &memSource{data: []byte("a\n")}
	store := &memStorage{}
	a := newTestArchiver(t, src, store, time.Hour)

	_, err := a.ArchiveNow(context.Background())
	require.NoError(t, err)
	dest, err := a.ArchiveNow(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dest)
	assert.Equal(t, 1, store.count())

	src.append("b\n")
	dest, err = a.ArchiveNow(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, dest)
	assert.Equal(t, 2, store.count())
}

func TestArchiveNowReportsFailures(t *testing.T) {
	snapErr := errors.New("read failure")
	a := newTestArchiver(t, &memSource{err: snapErr}, &memStorage{}, time.Hour)
	_, err := a.ArchiveNow(context.Background())
	assert.ErrorIs(t, err, snapErr)

	upErr := errors.New("access denied")
	a = newTestArchiver(t, &memSource{data: []byte("x\n")}, &memStorage{err: upErr}, time.Hour)
	_, err = a.ArchiveNow(context.Background())
	assert.ErrorIs(t, err, upErr)

	// a failed upload does not count as archived
	a.storage = &memStorage{}
	dest, err := a.ArchiveNow(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, dest)
}

func TestStartRequiresBucket(t *testing.T) {
	a := New(Config{Logger: testLogger()}, &memSource{}, &memStorage{})
	assert.Error(t, a.Start(context.Background()))
}

func TestPeriodicArchiveAndFinalUpload(t *testing.T) {
	src := &memSource{data: []byte("a\n")}
	store := &memStorage{}
	a := newTestArchiver(t, src, store, 10*time.Millisecond)

	require.NoError(t, a.Start(context.Background()))
	require.Eventually(t, func() bool { return store.count() == 1 }, time.Second, 5*time.Millisecond)

	src.append("b\n")
	a.Shutdown()
	assert.GreaterOrEqual(t, store.count(), 2)

	var last bytes.Buffer
	_, _ = src.Snapshot(&last)
	found := false
	for _, body := range store.uploads {
		if body == last.String() {
			found = true
		}
	}
	assert.True(t, found, "final snapshot was not uploaded")
}
