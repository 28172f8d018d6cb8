package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/paulcyi/cloudops-automation-toolkit/internal/adapter/compressor"
	"github.com/paulcyi/cloudops-automation-toolkit/internal/adapter/objectstore"
	"github.com/paulcyi/cloudops-automation-toolkit/internal/domain"
)

func newTestBackup(store *objectstore.Memory, compress bool) (*Backup, *[]time.Duration) {
	var sleeps []time.Duration

	uc := NewBackup(
		store,
		NewVerifier(store, testLogger()),
		NewMetadataValidator(1, 365),
		NewHistory(),
		compressor.NewGzip(),
		nil,
		testLogger(),
		"automated_backup",
		3,
		compress,
	)
	uc.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	return uc, &sleeps
}

func TestPerformBackup(t *testing.T) {
	Convey("Given a Backup executor over an in-memory store", t, func() {
		tempDir, err := os.MkdirTemp("", "backup_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		content := []byte("important payload")
		filePath := filepath.Join(tempDir, "data.txt")
		So(os.WriteFile(filePath, content, 0644), ShouldBeNil)

		expectedDigest, err := HashFile(filePath)
		So(err, ShouldBeNil)

		store := objectstore.NewMemory("backups")
		ctx := context.Background()

		Convey("When upload and verification succeed", func() {
			uc, sleeps := newTestBackup(store, false)

			record, err := uc.PerformBackup(ctx, filePath, 30)

			Convey("It should return a success record with the computed digest", func() {
				So(err, ShouldBeNil)
				So(record.Status, ShouldEqual, domain.StatusSuccess)
				So(record.ContentHash, ShouldEqual, expectedDigest)
				So(record.Bucket, ShouldEqual, "backups")
				So(record.Key, ShouldStartWith, "automated_backup/data.txt_")
				So(record.SizeBytes, ShouldEqual, int64(len(content)))
				So(*sleeps, ShouldBeEmpty)
			})

			Convey("It should upload the file bytes and metadata", func() {
				So(err, ShouldBeNil)

				data, ok := store.ObjectData(record.Key)
				So(ok, ShouldBeTrue)
				So(data, ShouldResemble, content)

				metadata, err := store.HeadObject(ctx, record.Key)
				So(err, ShouldBeNil)
				So(metadata[domain.MetaContentHash], ShouldEqual, expectedDigest)
				So(metadata[domain.MetaFilePath], ShouldEqual, filePath)
			})

			Convey("It should append one success record to history", func() {
				So(err, ShouldBeNil)
				So(uc.History().Len(), ShouldEqual, 1)
				So(uc.History().Entries()[0].Status, ShouldEqual, domain.StatusSuccess)
			})
		})

		Convey("When every upload fails with a transient error", func() {
			store.PutErr = func(key string) error {
				return &domain.OperationError{Op: "put_object", Key: key, Transient: true, Err: errors.New("throttled")}
			}
			uc, sleeps := newTestBackup(store, false)

			_, err := uc.PerformBackup(ctx, filePath, 30)

			Convey("It should retry exactly max_retries times then fail", func() {
				So(err, ShouldNotBeNil)

				var backupErr *domain.BackupError
				So(errors.As(err, &backupErr), ShouldBeTrue)
				So(backupErr.Attempts, ShouldEqual, 3)
				So(store.PutCount(), ShouldEqual, 3)
			})

			Convey("It should back off exponentially between attempts", func() {
				So(err, ShouldNotBeNil)
				So(*sleeps, ShouldResemble, []time.Duration{2 * time.Second, 4 * time.Second})
			})

			Convey("It should record a single failed history entry", func() {
				So(err, ShouldNotBeNil)
				So(uc.History().Len(), ShouldEqual, 1)
				So(uc.History().Entries()[0].Status, ShouldEqual, domain.StatusFailed)
			})
		})

		Convey("When the upload fails with a permanent error", func() {
			store.PutErr = func(key string) error {
				return &domain.OperationError{Op: "put_object", Key: key, Transient: false, Err: errors.New("AccessDenied")}
			}
			uc, sleeps := newTestBackup(store, false)

			_, err := uc.PerformBackup(ctx, filePath, 30)

			Convey("It should fail after a single attempt without backing off", func() {
				So(err, ShouldNotBeNil)

				var backupErr *domain.BackupError
				So(errors.As(err, &backupErr), ShouldBeTrue)
				So(backupErr.Attempts, ShouldEqual, 1)
				So(store.PutCount(), ShouldEqual, 1)
				So(*sleeps, ShouldBeEmpty)
			})

			Convey("It should keep the permanent gateway error in the chain", func() {
				So(err, ShouldNotBeNil)
				So(domain.IsTransient(err), ShouldBeFalse)

				var opErr *domain.OperationError
				So(errors.As(err, &opErr), ShouldBeTrue)
				So(opErr.Transient, ShouldBeFalse)
			})

			Convey("It should record a single failed history entry", func() {
				So(err, ShouldNotBeNil)
				So(uc.History().Len(), ShouldEqual, 1)
				So(uc.History().Entries()[0].Status, ShouldEqual, domain.StatusFailed)
			})
		})

		Convey("When uploads fail twice then succeed", func() {
			failures := 2
			store.PutErr = func(key string) error {
				if failures == 0 {
					return nil
				}
				failures--
				return &domain.OperationError{Op: "put_object", Key: key, Transient: true, Err: errors.New("blip")}
			}
			uc, sleeps := newTestBackup(store, false)

			record, err := uc.PerformBackup(ctx, filePath, 30)

			Convey("The third attempt should succeed", func() {
				So(err, ShouldBeNil)
				So(record.Status, ShouldEqual, domain.StatusSuccess)
				So(store.PutCount(), ShouldEqual, 3)
				So(*sleeps, ShouldResemble, []time.Duration{2 * time.Second, 4 * time.Second})
			})
		})

		Convey("When verification keeps mismatching", func() {
			store.CorruptHash = true
			uc, sleeps := newTestBackup(store, false)

			_, err := uc.PerformBackup(ctx, filePath, 30)

			Convey("It should retry immediately without backoff, then fail", func() {
				So(err, ShouldNotBeNil)

				var backupErr *domain.BackupError
				So(errors.As(err, &backupErr), ShouldBeTrue)
				So(backupErr.Attempts, ShouldEqual, 3)
				So(store.PutCount(), ShouldEqual, 3)
				So(*sleeps, ShouldBeEmpty)
			})
		})

		Convey("When each attempt derives its key", func() {
			store.CorruptHash = true
			uc, _ := newTestBackup(store, false)

			_, err := uc.PerformBackup(ctx, filePath, 30)
			So(err, ShouldNotBeNil)

			Convey("Keys should differ across attempts", func() {
				objects, err := store.ListObjects(ctx, "automated_backup/", 0)
				So(err, ShouldBeNil)
				So(objects, ShouldHaveLength, 3)
				So(objects[0].Key, ShouldNotEqual, objects[1].Key)
				So(objects[1].Key, ShouldNotEqual, objects[2].Key)
			})
		})

		Convey("When the store loses the hash metadata", func() {
			store.StripMetadata = true
			uc, sleeps := newTestBackup(store, false)

			_, err := uc.PerformBackup(ctx, filePath, 30)

			Convey("It should fail immediately with a VerificationError", func() {
				So(err, ShouldNotBeNil)

				var verifyErr *domain.VerificationError
				So(errors.As(err, &verifyErr), ShouldBeTrue)
				So(store.PutCount(), ShouldEqual, 1)
				So(*sleeps, ShouldBeEmpty)
			})
		})

		Convey("When retention_days is outside the configured bounds", func() {
			uc, _ := newTestBackup(store, false)

			_, err := uc.PerformBackup(ctx, filePath, 400)

			Convey("It should fail with a MetadataError before uploading", func() {
				So(err, ShouldNotBeNil)

				var metaErr *domain.MetadataError
				So(errors.As(err, &metaErr), ShouldBeTrue)
				So(store.PutCount(), ShouldEqual, 0)
			})
		})

		Convey("When the source file does not exist", func() {
			uc, _ := newTestBackup(store, false)

			_, err := uc.PerformBackup(ctx, filepath.Join(tempDir, "missing.txt"), 30)

			Convey("It should exhaust retries and fail", func() {
				So(err, ShouldNotBeNil)

				var backupErr *domain.BackupError
				So(errors.As(err, &backupErr), ShouldBeTrue)
				So(backupErr.Attempts, ShouldEqual, 3)
				So(store.PutCount(), ShouldEqual, 0)
			})
		})

		Convey("When compression is enabled", func() {
			uc, _ := newTestBackup(store, true)

			record, err := uc.PerformBackup(ctx, filePath, 30)

			Convey("The key should carry a .gz suffix and verification should still pass", func() {
				So(err, ShouldBeNil)
				So(record.Key, ShouldEndWith, ".gz")
				So(record.ContentHash, ShouldEqual, expectedDigest)

				data, ok := store.ObjectData(record.Key)
				So(ok, ShouldBeTrue)
				So(data, ShouldNotResemble, content)
			})
		})
	})
}

func TestListAndRestore(t *testing.T) {
	Convey("Given stored backups", t, func() {
		tempDir, err := os.MkdirTemp("", "restore_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		content := []byte("restore me")
		filePath := filepath.Join(tempDir, "data.txt")
		So(os.WriteFile(filePath, content, 0644), ShouldBeNil)

		store := objectstore.NewMemory("backups")
		ctx := context.Background()

		uc, _ := newTestBackup(store, false)
		record, err := uc.PerformBackup(ctx, filePath, 30)
		So(err, ShouldBeNil)

		Convey("ListBackups should return the object with its metadata", func() {
			backups, err := uc.ListBackups(ctx, 100)

			So(err, ShouldBeNil)
			So(backups, ShouldHaveLength, 1)
			So(backups[0].Key, ShouldEqual, record.Key)
			So(backups[0].Metadata[domain.MetaContentHash], ShouldEqual, record.ContentHash)
		})

		Convey("ListBackups should degrade to empty metadata when head fails", func() {
			store.HeadErr = func(key string) error {
				return &domain.OperationError{Op: "head_object", Key: key, Transient: true, Err: errors.New("unavailable")}
			}

			backups, err := uc.ListBackups(ctx, 100)

			So(err, ShouldBeNil)
			So(backups, ShouldHaveLength, 1)
			So(backups[0].Metadata, ShouldBeEmpty)
		})

		Convey("RestoreBackup should recreate the file", func() {
			destPath := filepath.Join(tempDir, "restored.txt")

			err := uc.RestoreBackup(ctx, record.Key, destPath, false)

			So(err, ShouldBeNil)
			restored, err := os.ReadFile(destPath)
			So(err, ShouldBeNil)
			So(restored, ShouldResemble, content)
		})

		Convey("RestoreBackup should refuse to overwrite without the flag", func() {
			destPath := filepath.Join(tempDir, "existing.txt")
			So(os.WriteFile(destPath, []byte("precious"), 0644), ShouldBeNil)

			err := uc.RestoreBackup(ctx, record.Key, destPath, false)

			So(err, ShouldNotBeNil)
			So(errors.Is(err, os.ErrExist), ShouldBeTrue)

			Convey("And overwrite when asked", func() {
				err := uc.RestoreBackup(ctx, record.Key, destPath, true)
				So(err, ShouldBeNil)

				restored, err := os.ReadFile(destPath)
				So(err, ShouldBeNil)
				So(restored, ShouldResemble, content)
			})
		})

		Convey("RestoreBackup should decompress .gz backups", func() {
			gzUC, _ := newTestBackup(store, true)
			gzRecord, err := gzUC.PerformBackup(ctx, filePath, 30)
			So(err, ShouldBeNil)

			destPath := filepath.Join(tempDir, "restored_gz.txt")
			err = gzUC.RestoreBackup(ctx, gzRecord.Key, destPath, false)

			So(err, ShouldBeNil)
			restored, err := os.ReadFile(destPath)
			So(err, ShouldBeNil)
			So(restored, ShouldResemble, content)
		})
	})
}
