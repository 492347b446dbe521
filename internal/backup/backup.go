package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"user-manager/internal/storage"
)

// Runner periodically snapshots the database and uploads it to object storage.
type Runner interface {
	Start(ctx context.Context) error
	Shutdown()
}

type Config struct {
	Bucket    string
	KeyPrefix string
	Interval  time.Duration
	Keep      int
	Logger    *logrus.Logger
}

type runner struct {
	cfg     Config
	db      *sql.DB
	storage storage.Service

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewRunner(cfg Config, db *sql.DB, store storage.Service) Runner {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Keep <= 0 {
		cfg.Keep = 5
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	cfg.KeyPrefix = strings.Trim(cfg.KeyPrefix, "/")
	return &runner{
		cfg:     cfg,
		db:      db,
		storage: store,
	}
}

func (r *runner) Start(ctx context.Context) error {
	if r.cfg.Bucket == "" {
		return fmt.Errorf("backup bucket is required")
	}

	r.ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.loop()

	r.cfg.Logger.Infof("backup runner started, interval %s, keeping %d snapshots", r.cfg.Interval, r.cfg.Keep)
	return nil
}

func (r *runner) Shutdown() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.cfg.Logger.Info("backup runner stopped")
}

func (r *runner) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			if err := r.snapshot(r.ctx); err != nil {
				r.cfg.Logger.Warnf("snapshot: %v", err)
			}
		}
	}
}

// snapshot writes a consistent copy of the database via VACUUM INTO, uploads
// it under a timestamped key, and prunes snapshots beyond the retention count.
func (r *runner) snapshot(ctx context.Context) error {
	dir, err := os.MkdirTemp("", "user-manager-backup-")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	local := filepath.Join(dir, "users.db")
	if _, err := r.db.ExecContext(ctx, `VACUUM INTO ?`, local); err != nil {
		return fmt.Errorf("vacuum into snapshot: %w", err)
	}

	key := fmt.Sprintf("users-%s.db", time.Now().UTC().Format("20060102T150405Z"))
	if r.cfg.KeyPrefix != "" {
		key = r.cfg.KeyPrefix + "/" + key
	}

	location, err := r.storage.UploadFile(ctx, local, r.cfg.Bucket, key)
	if err != nil {
		return err
	}
	r.cfg.Logger.Infof("uploaded snapshot to %s", location)

	return r.prune(ctx)
}

func (r *runner) prune(ctx context.Context) error {
	objects, err := r.storage.ListObjects(ctx, r.cfg.Bucket, r.cfg.KeyPrefix)
	if err != nil {
		return err
	}
	if len(objects) <= r.cfg.Keep {
		return nil
	}

	// timestamped keys sort chronologically
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })

	for _, obj := range objects[:len(objects)-r.cfg.Keep] {
		if err := r.storage.DeleteObject(ctx, r.cfg.Bucket, obj.Key); err != nil {
			return err
		}
		r.cfg.Logger.Infof("pruned snapshot %s", obj.Key)
	}
	return nil
}
