// Package backup uploads encrypted database snapshots to S3-compatible
// storage on a fixed interval. Snapshots are taken with VACUUM INTO so the
// live database is never copied mid-write, then encrypted with a key derived
// from the configured passphrase before leaving the host.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/punchcard/internal/config"
	"github.com/dukerupert/punchcard/internal/store"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Manager runs the scheduled backup loop.
type Manager struct {
	cfg     config.BackupConfig
	dbPath  string
	db      *sql.DB
	backups *store.BackupStore
	client  s3Client
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager builds a backup manager. Returns nil when no bucket is
// configured, in which case backups are disabled.
func NewManager(cfg config.BackupConfig, dbPath string, db *sql.DB, bs *store.BackupStore, logger *slog.Logger) *Manager {
	if cfg.Bucket == "" {
		return nil
	}
	return &Manager{
		cfg:     cfg,
		dbPath:  dbPath,
		db:      db,
		backups: bs,
		client:  newS3Client(cfg),
		logger:  logger,
	}
}

func newS3Client(cfg config.BackupConfig) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Start begins the scheduled backup loop.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.RunNow(ctx); err != nil {
					m.logger.Error("scheduled backup failed", "error", err)
				}
			}
		}
	}()
}

// Stop cancels the loop and waits for any in-flight backup to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// RunNow takes a snapshot, encrypts it, and uploads it immediately.
// Returns the object key of the uploaded backup.
func (m *Manager) RunNow(ctx context.Context) (string, error) {
	timestamp := time.Now().UTC().Format("2006-01-02T150405Z")
	objectKey := fmt.Sprintf("punchcard/backup-%s.db.enc", timestamp)

	tmpDir := os.TempDir()
	snapshot := filepath.Join(tmpDir, fmt.Sprintf("punchcard-backup-%s.db", timestamp))
	encFile := snapshot + ".enc"
	defer os.Remove(snapshot)
	defer os.Remove(encFile)

	// VACUUM INTO writes a consistent point-in-time copy without blocking
	// writers on the live connection.
	if _, err := m.db.ExecContext(ctx, "VACUUM INTO ?", snapshot); err != nil {
		return "", fmt.Errorf("snapshot database: %w", err)
	}

	if err := EncryptFile(snapshot, encFile, m.cfg.Passphrase); err != nil {
		return "", fmt.Errorf("encrypt snapshot: %w", err)
	}

	size, err := m.upload(ctx, objectKey, encFile)
	if err != nil {
		return "", err
	}

	if _, err := m.backups.Record(objectKey, size); err != nil {
		return "", fmt.Errorf("record backup: %w", err)
	}

	m.logger.Info("backup uploaded", "object_key", objectKey, "size_bytes", size)
	return objectKey, nil
}

// upload puts the encrypted file to the bucket, retrying transient failures
// with capped exponential backoff.
func (m *Manager) upload(ctx context.Context, objectKey, encFile string) (int64, error) {
	stat, err := os.Stat(encFile)
	if err != nil {
		return 0, fmt.Errorf("stat encrypted file: %w", err)
	}

	backoff := retry.WithMaxRetries(4, retry.NewExponential(time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		f, err := os.Open(encFile)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(m.cfg.Bucket),
			Key:           aws.String(objectKey),
			Body:          f,
			ContentLength: aws.Int64(stat.Size()),
		})
		if err != nil {
			m.logger.Warn("upload attempt failed", "object_key", objectKey, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("upload to s3: %w", err)
	}
	return stat.Size(), nil
}

// Restore downloads a backup object, decrypts it, validates the copy, and
// replaces the database file. The caller must ensure no open connections are
// using the database; the process should be restarted afterwards.
func (m *Manager) Restore(ctx context.Context, objectKey string) error {
	tmpDir := os.TempDir()
	encFile := filepath.Join(tmpDir, "punchcard-restore.db.enc")
	decFile := filepath.Join(tmpDir, "punchcard-restore.db")
	defer os.Remove(encFile)
	defer os.Remove(decFile)

	result, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	out, err := os.Create(encFile)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := out.ReadFrom(result.Body); err != nil {
		out.Close()
		return fmt.Errorf("write downloaded file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := DecryptFile(encFile, decFile, m.cfg.Passphrase); err != nil {
		return fmt.Errorf("decrypt backup: %w", err)
	}

	tmpDB, err := sql.Open("sqlite", decFile)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	var integrity string
	if err := tmpDB.QueryRow("PRAGMA integrity_check").Scan(&integrity); err != nil {
		tmpDB.Close()
		return fmt.Errorf("integrity check: %w", err)
	}
	tmpDB.Close()
	if integrity != "ok" {
		return fmt.Errorf("integrity check failed: %s", integrity)
	}

	if err := copyFile(decFile, m.dbPath); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}

	// Stale WAL and SHM files would shadow the restored copy.
	os.Remove(m.dbPath + "-wal")
	os.Remove(m.dbPath + "-shm")

	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0600)
}
