package archiver

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"userfeed/internal/observability"
	"userfeed/internal/storage"
)

const (
	defaultInterval    = time.Hour
	defaultKeyPrefix   = "userfeed"
	finalUploadTimeout = 30 * time.Second
	snapshotType       = "application/x-ndjson"
)

// Archiver periodically copies the record store to object storage.
type Archiver interface {
	Start(ctx context.Context) error
	Shutdown()
	ArchiveNow(ctx context.Context) (string, error)
	List(ctx context.Context) ([]storage.ObjectInfo, error)
}

// Snapshotter produces a point-in-time copy of the record store.
type Snapshotter interface {
	Snapshot(w io.Writer) (int64, error)
}

type Config struct {
	Bucket    string
	KeyPrefix string
	Interval  time.Duration
	TempDir   string
	Logger    *logrus.Logger
}

type archiver struct {
	cfg     Config
	source  Snapshotter
	storage storage.Service
	now     func() time.Time

	wg     sync.WaitGroup
	cancel context.CancelFunc

	// mu serialises uploads and guards lastSize.
	mu       sync.Mutex
	lastSize int64
}

func New(cfg Config, source Snapshotter, store storage.Service) Archiver {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	cfg.KeyPrefix = strings.Trim(cfg.KeyPrefix, "/")
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &archiver{
		cfg:      cfg,
		source:   source,
		storage:  store,
		now:      time.Now,
		lastSize: -1,
	}
}

func (a *archiver) Start(ctx context.Context) error {
	if a.cfg.Bucket == "" {
		return fmt.Errorf("archive bucket is required")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(a.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if _, err := a.ArchiveNow(loopCtx); err != nil {
					a.cfg.Logger.Warnf("archive store: %v", err)
				}
			}
		}
	}()

	a.cfg.Logger.Infof("store archiver started, bucket %s every %s", a.cfg.Bucket, a.cfg.Interval)
	return nil
}

// Shutdown stops the periodic loop and uploads one last snapshot.
func (a *archiver) Shutdown() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), finalUploadTimeout)
	defer cancel()
	if _, err := a.ArchiveNow(ctx); err != nil {
		a.cfg.Logger.Warnf("final archive: %v", err)
	}
	a.cfg.Logger.Info("store archiver stopped")
}

// ArchiveNow uploads a snapshot of the store. It returns an empty location
// without uploading when the store has not grown since the last upload.
func (a *archiver) ArchiveNow(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tmp, err := os.CreateTemp(a.cfg.TempDir, "userfeed-snapshot-*.jsonl")
	if err != nil {
		return "", fmt.Errorf("create snapshot file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	size, err := a.source.Snapshot(tmp)
	if err != nil {
		return "", fmt.Errorf("snapshot store: %w", err)
	}
	if size == a.lastSize {
		a.cfg.Logger.Debug("store unchanged since last archive, skipping")
		return "", nil
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind snapshot: %w", err)
	}

	ts := a.now().UTC()
	key := path.Join(a.cfg.KeyPrefix, fmt.Sprintf("users-%s-%s.jsonl", ts.Format("20060102T150405Z"), uuid.NewString()))
	dest, err := a.storage.Upload(ctx, tmp, storage.UploadOptions{
		Bucket:      a.cfg.Bucket,
		Key:         key,
		ContentType: snapshotType,
	})
	if err != nil {
		return "", err
	}

	a.lastSize = size
	observability.RecordArchiveUploaded(ts)
	a.cfg.Logger.WithField("bytes", size).Infof("store archived to %s", dest)
	return dest, nil
}

func (a *archiver) List(ctx context.Context) ([]storage.ObjectInfo, error) {
	return a.storage.ListObjects(ctx, a.cfg.Bucket, a.cfg.KeyPrefix+"/")
}

var _ Archiver = (*archiver)(nil)
