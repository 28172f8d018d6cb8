package usecase

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/paulcyi/cloudops-automation-toolkit/internal/domain"
)

var contentHashPattern = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)

// MetadataValidator turns raw object-store metadata into a typed
// BackupRecord, enforcing required fields, retention bounds and value
// formats. Checks run in a fixed order and the first violation wins.
type MetadataValidator struct {
	minRetentionDays int
	maxRetentionDays int
}

func NewMetadataValidator(minRetentionDays, maxRetentionDays int) *MetadataValidator {
	return &MetadataValidator{
		minRetentionDays: minRetentionDays,
		maxRetentionDays: maxRetentionDays,
	}
}

func (v *MetadataValidator) Validate(raw map[string]string) (domain.BackupRecord, error) {
	required := []string{
		domain.MetaFilePath,
		domain.MetaBackupDate,
		domain.MetaRetentionDays,
		domain.MetaContentHash,
	}

	var missing []string
	for _, field := range required {
		if raw[field] == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return domain.BackupRecord{}, &domain.MetadataError{
			Reason: "missing required fields: " + strings.Join(missing, ", "),
		}
	}

	retention, err := strconv.Atoi(raw[domain.MetaRetentionDays])
	if err != nil {
		return domain.BackupRecord{}, &domain.MetadataError{
			Reason: "retention_days is not an integer",
			Err:    err,
		}
	}
	if retention < v.minRetentionDays || retention > v.maxRetentionDays {
		return domain.BackupRecord{}, &domain.MetadataError{
			Reason: fmt.Sprintf("retention_days %d outside [%d, %d]",
				retention, v.minRetentionDays, v.maxRetentionDays),
		}
	}

	backupDate, err := time.Parse(time.RFC3339, raw[domain.MetaBackupDate])
	if err != nil {
		return domain.BackupRecord{}, &domain.MetadataError{
			Reason: "backup_date is not a valid ISO-8601 timestamp",
			Err:    err,
		}
	}

	hash := raw[domain.MetaContentHash]
	if !contentHashPattern.MatchString(hash) {
		return domain.BackupRecord{}, &domain.MetadataError{
			Reason: "content_hash is not a 64-character hex digest",
		}
	}

	record := domain.BackupRecord{
		FilePath:      raw[domain.MetaFilePath],
		BackupDate:    backupDate,
		RetentionDays: retention,
		ContentHash:   hash,
		Status:        domain.StatusPending,
	}

	if sizeStr := raw[domain.MetaSizeBytes]; sizeStr != "" {
		size, err := strconv.ParseInt(sizeStr, 10, 64)
		if err != nil {
			return domain.BackupRecord{}, &domain.MetadataError{
				Reason: "size_bytes is not an integer",
				Err:    err,
			}
		}
		if size < 0 {
			return domain.BackupRecord{}, &domain.MetadataError{
				Reason: "size_bytes is negative",
			}
		}
		record.SizeBytes = size
	}

	return record, nil
}
