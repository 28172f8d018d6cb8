package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paulcyi/cloudops-automation-toolkit/internal/domain"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// Backup orchestrates the hash -> upload -> verify pipeline against the
// object store, with bounded retries and exponential backoff.
type Backup struct {
	store      domain.ObjectStore
	verifier   *Verifier
	validator  *MetadataValidator
	history    *History
	compressor domain.Compressor
	notifier   domain.Notifier
	logger     Logger

	prefix     string
	maxRetries int
	compress   bool

	// sleep is swapped out in tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewBackup(
	store domain.ObjectStore,
	verifier *Verifier,
	validator *MetadataValidator,
	history *History,
	compressor domain.Compressor,
	notifier domain.Notifier,
	logger Logger,
	prefix string,
	maxRetries int,
	compress bool,
) *Backup {
	return &Backup{
		store:      store,
		verifier:   verifier,
		validator:  validator,
		history:    history,
		compressor: compressor,
		notifier:   notifier,
		logger:     logger,
		prefix:     prefix,
		maxRetries: maxRetries,
		compress:   compress,
		sleep:      sleepContext,
	}
}

func (uc *Backup) History() *History { return uc.history }

// PerformBackup runs the backup pipeline for filePath. Each attempt
// recomputes the hash from disk, uploads under a fresh key and verifies the
// stored metadata. A verification mismatch retries immediately; local I/O
// errors and transient gateway errors retry after an exponential backoff of
// 2^attempt seconds. Permanent gateway errors, metadata problems and
// missing-hash verification problems are terminal and surface without
// consuming further attempts. After maxRetries attempts the failure surfaces
// as *domain.BackupError.
func (uc *Backup) PerformBackup(ctx context.Context, filePath string, retentionDays int) (domain.BackupRecord, error) {
	start := time.Now()
	uc.logger.Infof("[%s] Starting backup...", filePath)

	attempt := 0
	for {
		attempt++

		record, err := uc.attempt(ctx, filePath, retentionDays)
		if err == nil {
			record.Status = domain.StatusSuccess
			uc.history.Record(record)
			uc.logger.Infof("[%s] Backup completed in %s: %s",
				filePath, time.Since(start).Round(time.Millisecond), record.Key)
			uc.notify(ctx, fmt.Sprintf("Backup succeeded: %s -> %s (%d bytes, %d attempt(s))",
				filePath, record.Key, record.SizeBytes, attempt))
			return record, nil
		}

		var metaErr *domain.MetadataError
		var verifyErr *domain.VerificationError
		if errors.As(err, &metaErr) || errors.As(err, &verifyErr) {
			// Data or configuration problem; retrying cannot help.
			record := uc.recordFailure(filePath, retentionDays)
			uc.logger.Errorf("[%s] Backup aborted: %v", filePath, err)
			uc.notify(ctx, fmt.Sprintf("Backup aborted: %s: %v", filePath, err))
			return record, err
		}

		var opErr *domain.OperationError
		if errors.As(err, &opErr) && !domain.IsTransient(err) {
			// Missing object, bad credentials, AccessDenied: stays broken
			// no matter how often we retry.
			return uc.fail(ctx, filePath, retentionDays, attempt, err)
		}

		if errors.Is(err, errMismatch) {
			uc.logger.Warnf("[%s] Verification failed, attempt %d of %d", filePath, attempt, uc.maxRetries)
			if attempt >= uc.maxRetries {
				return uc.fail(ctx, filePath, retentionDays, attempt, err)
			}
			continue
		}

		uc.logger.Errorf("[%s] Backup attempt %d of %d failed: %v", filePath, attempt, uc.maxRetries, err)
		if attempt >= uc.maxRetries {
			return uc.fail(ctx, filePath, retentionDays, attempt, err)
		}

		backoff := time.Duration(1<<attempt) * time.Second
		if err := uc.sleep(ctx, backoff); err != nil {
			return uc.fail(ctx, filePath, retentionDays, attempt, err)
		}
	}
}

// errMismatch marks a verification mismatch inside the retry loop. It never
// escapes PerformBackup unwrapped.
var errMismatch = errors.New("verification mismatch")

func (uc *Backup) attempt(ctx context.Context, filePath string, retentionDays int) (domain.BackupRecord, error) {
	digest, err := HashFile(filePath)
	if err != nil {
		return domain.BackupRecord{}, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return domain.BackupRecord{}, err
	}

	now := time.Now()
	key := uc.deriveObjectKey(filePath, now)

	record := domain.BackupRecord{
		FilePath:      filePath,
		BackupDate:    now,
		RetentionDays: retentionDays,
		ContentHash:   digest,
		SizeBytes:     info.Size(),
		Status:        domain.StatusPending,
		Bucket:        uc.store.Bucket(),
		Key:           key,
	}

	metadata := record.Metadata()
	if _, err := uc.validator.Validate(metadata); err != nil {
		return domain.BackupRecord{}, err
	}

	versionID, err := uc.upload(ctx, filePath, key, metadata)
	if err != nil {
		return domain.BackupRecord{}, err
	}
	record.VersionID = versionID

	outcome, err := uc.verifier.Verify(ctx, filePath, key)
	if err != nil {
		return domain.BackupRecord{}, err
	}
	if outcome != VerifyMatch {
		return domain.BackupRecord{}, errMismatch
	}

	return record, nil
}

func (uc *Backup) upload(ctx context.Context, filePath, key string, metadata map[string]string) (string, error) {
	sourcePath := filePath

	if uc.compress {
		compressed := filepath.Join(os.TempDir(), filepath.Base(key))
		if err := uc.compressor.Compress(filePath, compressed); err != nil {
			return "", err
		}
		defer os.Remove(compressed)
		sourcePath = compressed
	}

	file, err := os.Open(sourcePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	return uc.store.PutObject(ctx, key, file, metadata)
}

// deriveObjectKey builds a key unique per attempt. The nanosecond component
// keeps rapid retries within the same second from colliding.
func (uc *Backup) deriveObjectKey(filePath string, now time.Time) string {
	key := fmt.Sprintf("%s/%s_%s_%09d",
		uc.prefix, filepath.Base(filePath), now.Format("20060102_150405"), now.Nanosecond())
	if uc.compress {
		key += ".gz"
	}
	return key
}

func (uc *Backup) recordFailure(filePath string, retentionDays int) domain.BackupRecord {
	record := domain.BackupRecord{
		FilePath:      filePath,
		BackupDate:    time.Now(),
		RetentionDays: retentionDays,
		Status:        domain.StatusFailed,
		Bucket:        uc.store.Bucket(),
	}
	if info, err := os.Stat(filePath); err == nil {
		record.SizeBytes = info.Size()
	}
	uc.history.Record(record)
	return record
}

func (uc *Backup) fail(ctx context.Context, filePath string, retentionDays, attempts int, cause error) (domain.BackupRecord, error) {
	record := uc.recordFailure(filePath, retentionDays)
	err := &domain.BackupError{FilePath: filePath, Attempts: attempts, Err: cause}
	uc.logger.Errorf("[%s] Backup failed after %d attempt(s): %v", filePath, attempts, cause)
	uc.notify(ctx, fmt.Sprintf("Backup failed: %s after %d attempt(s): %v", filePath, attempts, cause))
	return record, err
}

func (uc *Backup) notify(ctx context.Context, message string) {
	if uc.notifier == nil {
		return
	}
	if err := uc.notifier.Notify(ctx, message); err != nil {
		uc.logger.Warnf("Failed to send notification: %v", err)
	}
}

type BackupInfo struct {
	domain.ObjectInfo
	Metadata map[string]string
}

// ListBackups lists stored backups under the configured prefix, newest and
// oldest alike, attaching each object's metadata. A failed metadata fetch
// degrades to an empty map rather than failing the listing.
func (uc *Backup) ListBackups(ctx context.Context, maxItems int) ([]BackupInfo, error) {
	objects, err := uc.store.ListObjects(ctx, uc.prefix+"/", maxItems)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		metadata, err := uc.store.HeadObject(ctx, obj.Key)
		if err != nil {
			uc.logger.Warnf("Failed to fetch metadata for %s: %v", obj.Key, err)
			metadata = map[string]string{}
		}
		backups = append(backups, BackupInfo{ObjectInfo: obj, Metadata: metadata})
	}

	return backups, nil
}

// RestoreBackup downloads key to destPath. An existing destination is
// refused unless overwrite is set. Compressed backups are decompressed
// transparently.
func (uc *Backup) RestoreBackup(ctx context.Context, key, destPath string, overwrite bool) error {
	if _, err := os.Stat(destPath); err == nil && !overwrite {
		return fmt.Errorf("destination %s exists and overwrite is false: %w", destPath, os.ErrExist)
	}

	downloadPath := destPath
	if strings.HasSuffix(key, ".gz") {
		downloadPath = filepath.Join(os.TempDir(), filepath.Base(key))
		defer os.Remove(downloadPath)
	}

	if err := uc.store.DownloadObject(ctx, key, downloadPath); err != nil {
		uc.logger.Errorf("Failed to restore backup %s: %v", key, err)
		return fmt.Errorf("restore backup: %w", err)
	}

	if downloadPath != destPath {
		if err := uc.compressor.Decompress(downloadPath, destPath); err != nil {
			return fmt.Errorf("decompress backup: %w", err)
		}
	}

	uc.logger.Infof("Restored backup %s to %s", key, destPath)
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
