package domain

import (
	"strconv"
	"time"
)

type BackupStatus string

const (
	StatusPending BackupStatus = "pending"
	StatusSuccess BackupStatus = "success"
	StatusFailed  BackupStatus = "failed"
)

// Metadata keys stored on uploaded objects.
const (
	MetaFilePath      = "file_path"
	MetaBackupDate    = "backup_date"
	MetaRetentionDays = "retention_days"
	MetaContentHash   = "content_hash"
	MetaSizeBytes     = "size_bytes"
)

// BackupRecord mirrors the metadata stored alongside each uploaded object.
// Once appended to history a record is never mutated; corrections are new
// records.
type BackupRecord struct {
	FilePath      string
	BackupDate    time.Time
	RetentionDays int
	ContentHash   string
	SizeBytes     int64
	Status        BackupStatus

	Bucket    string
	Key       string
	VersionID string
}

// Metadata renders the record as object-store metadata.
func (r BackupRecord) Metadata() map[string]string {
	return map[string]string{
		MetaFilePath:      r.FilePath,
		MetaBackupDate:    r.BackupDate.Format(time.RFC3339),
		MetaRetentionDays: strconv.Itoa(r.RetentionDays),
		MetaContentHash:   r.ContentHash,
		MetaSizeBytes:     strconv.FormatInt(r.SizeBytes, 10),
	}
}

type Statistics struct {
	SuccessRatePercent float64
	TotalBackups       int
	AverageSizeMB      float64
}
