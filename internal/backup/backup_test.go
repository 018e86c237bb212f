package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/punchcard/internal/config"
	"github.com/dukerupert/punchcard/internal/database"
	"github.com/dukerupert/punchcard/internal/store"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failPuts int
	putCalls int
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.failPuts > 0 {
		m.failPuts--
		return nil, fmt.Errorf("connection reset")
	}
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, fmt.Errorf("NoSuchKey")
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(data)),
	}, nil
}

func testManager(t *testing.T, client s3Client) (*Manager, *store.BackupStore) {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	bs := store.NewBackupStore(db)
	m := &Manager{
		cfg: config.BackupConfig{
			Bucket:     "test-bucket",
			Passphrase: "test-passphrase",
			Interval:   time.Hour,
		},
		dbPath:  filepath.Join(t.TempDir(), "live.db"),
		db:      db,
		backups: bs,
		client:  client,
		logger:  slog.New(slog.DiscardHandler),
	}
	return m, bs
}

func TestNewManagerDisabledWithoutBucket(t *testing.T) {
	m := NewManager(config.BackupConfig{}, "db.sqlite", nil, nil, slog.New(slog.DiscardHandler))
	if m != nil {
		t.Error("expected nil manager when no bucket configured")
	}
}

func TestRunNowUploadsEncryptedSnapshot(t *testing.T) {
	mock := newMockS3()
	m, bs := testManager(t, mock)

	key, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}
	if !strings.HasPrefix(key, "punchcard/backup-") || !strings.HasSuffix(key, ".db.enc") {
		t.Errorf("unexpected object key %q", key)
	}

	mock.mu.Lock()
	data, ok := mock.objects[key]
	mock.mu.Unlock()
	if !ok {
		t.Fatal("object not uploaded")
	}
	if bytes.Contains(data, []byte("SQLite format 3")) {
		t.Error("uploaded object contains plaintext database header")
	}

	// The uploaded bytes must decrypt back to a valid database file.
	dir := t.TempDir()
	encPath := filepath.Join(dir, "dl.enc")
	decPath := filepath.Join(dir, "dl.db")
	if err := os.WriteFile(encPath, data, 0600); err != nil {
		t.Fatalf("write downloaded object: %v", err)
	}
	if err := DecryptFile(encPath, decPath, "test-passphrase"); err != nil {
		t.Fatalf("decrypt uploaded object: %v", err)
	}
	plain, _ := os.ReadFile(decPath)
	if !bytes.HasPrefix(plain, []byte("SQLite format 3")) {
		t.Error("decrypted snapshot is not a database file")
	}

	records, err := bs.List(10)
	if err != nil {
		t.Fatalf("list backups: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("recorded %d backups, want 1", len(records))
	}
	if records[0].ObjectKey != key {
		t.Errorf("recorded key = %q, want %q", records[0].ObjectKey, key)
	}
	if records[0].SizeBytes != int64(len(data)) {
		t.Errorf("recorded size = %d, want %d", records[0].SizeBytes, len(data))
	}
}

func TestUploadRetriesTransientFailures(t *testing.T) {
	mock := newMockS3()
	mock.failPuts = 1
	m, _ := testManager(t, mock)

	if _, err := m.RunNow(context.Background()); err != nil {
		t.Fatalf("run backup: %v", err)
	}

	mock.mu.Lock()
	calls := mock.putCalls
	mock.mu.Unlock()
	if calls != 2 {
		t.Errorf("put calls = %d, want 2", calls)
	}
}

func TestManagerStopSafety(t *testing.T) {
	m, _ := testManager(t, newMockS3())

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()
	m.Stop()

	// Double stop should not panic
	m.Stop()
}
