package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"user-manager/internal/repository/sqlite"
	"user-manager/internal/storage"
)

type fakeStorage struct {
	objects map[string]int64
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string]int64)}
}

func (f *fakeStorage) UploadFile(ctx context.Context, localPath, bucket, key string) (string, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return "", err
	}
	f.objects[key] = info.Size()
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}

func (f *fakeStorage) ListObjects(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for key, size := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: size})
		}
	}
	return out, nil
}

func (f *fakeStorage) DeleteObject(ctx context.Context, bucket, key string) error {
	delete(f.objects, key)
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSnapshotUploadsDatabaseCopy(t *testing.T) {
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, username TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO users (username) VALUES ('testUsername')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	store := newFakeStorage()
	r := NewRunner(Config{
		Bucket:    "test-bucket",
		KeyPrefix: "backups",
		Logger:    quietLogger(),
	}, db, store).(*runner)

	if err := r.snapshot(context.Background()); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if len(store.objects) != 1 {
		t.Fatalf("object count = %d, want 1", len(store.objects))
	}
	for key, size := range store.objects {
		if !strings.HasPrefix(key, "backups/users-") {
			t.Errorf("key = %q, want backups/users-* prefix", key)
		}
		if size == 0 {
			t.Error("snapshot is empty")
		}
	}
}

func TestPruneKeepsNewestSnapshots(t *testing.T) {
	store := newFakeStorage()
	for _, key := range []string{
		"backups/users-20240101T000000Z.db",
		"backups/users-20240102T000000Z.db",
		"backups/users-20240103T000000Z.db",
		"backups/users-20240104T000000Z.db",
	} {
		store.objects[key] = 1
	}

	r := NewRunner(Config{
		Bucket:    "test-bucket",
		KeyPrefix: "backups",
		Keep:      2,
		Logger:    quietLogger(),
	}, nil, store).(*runner)

	if err := r.prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	if len(store.objects) != 2 {
		t.Fatalf("object count = %d, want 2", len(store.objects))
	}
	for _, key := range []string{
		"backups/users-20240103T000000Z.db",
		"backups/users-20240104T000000Z.db",
	} {
		if _, ok := store.objects[key]; !ok {
			t.Errorf("newest snapshot %q was pruned", key)
		}
	}
}
