package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap"

	"github.com/paulcyi/cloudops-automation-toolkit/internal/adapter/objectstore"
	"github.com/paulcyi/cloudops-automation-toolkit/internal/domain"
)

func testLogger() Logger {
	return zap.NewNop().Sugar()
}

func TestVerifier(t *testing.T) {
	Convey("Given a Verifier over an in-memory store", t, func() {
		tempDir, err := os.MkdirTemp("", "verifier_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		localPath := filepath.Join(tempDir, "source.txt")
		So(os.WriteFile(localPath, []byte("verified content"), 0644), ShouldBeNil)

		digest, err := HashFile(localPath)
		So(err, ShouldBeNil)

		store := objectstore.NewMemory("backups")
		verifier := NewVerifier(store, testLogger())
		ctx := context.Background()

		upload := func(key string, metadata map[string]string) {
			file, err := os.Open(localPath)
			So(err, ShouldBeNil)
			defer file.Close()
			_, err = store.PutObject(ctx, key, file, metadata)
			So(err, ShouldBeNil)
		}

		Convey("When the stored digest matches", func() {
			upload("backups/source.txt", map[string]string{domain.MetaContentHash: digest})

			outcome, err := verifier.Verify(ctx, localPath, "backups/source.txt")

			Convey("It should report a match", func() {
				So(err, ShouldBeNil)
				So(outcome, ShouldEqual, VerifyMatch)
			})
		})

		Convey("When the stored digest differs", func() {
			upload("backups/source.txt", map[string]string{
				domain.MetaContentHash: "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
			})

			outcome, err := verifier.Verify(ctx, localPath, "backups/source.txt")

			Convey("It should report a mismatch, not an error", func() {
				So(err, ShouldBeNil)
				So(outcome, ShouldEqual, VerifyMismatch)
			})
		})

		Convey("When the stored digest differs only in case", func() {
			upload("backups/source.txt", map[string]string{
				domain.MetaContentHash: strings.ToUpper(digest),
			})

			outcome, err := verifier.Verify(ctx, localPath, "backups/source.txt")

			Convey("The comparison should be case-sensitive", func() {
				So(err, ShouldBeNil)
				So(outcome, ShouldEqual, VerifyMismatch)
			})
		})

		Convey("When the stored object has no hash metadata", func() {
			upload("backups/source.txt", map[string]string{"unrelated": "value"})

			_, err := verifier.Verify(ctx, localPath, "backups/source.txt")

			Convey("It should fail with a VerificationError", func() {
				So(err, ShouldNotBeNil)
				var verifyErr *domain.VerificationError
				So(errors.As(err, &verifyErr), ShouldBeTrue)
				So(verifyErr.Reason, ShouldContainSubstring, "missing hash metadata")
			})
		})

		Convey("When the metadata fetch fails", func() {
			store.HeadErr = func(key string) error {
				return &domain.OperationError{Op: "head_object", Key: key, Transient: true, Err: errors.New("throttled")}
			}

			_, err := verifier.Verify(ctx, localPath, "backups/source.txt")

			Convey("The gateway error should pass through unchanged", func() {
				So(err, ShouldNotBeNil)
				So(domain.IsTransient(err), ShouldBeTrue)
			})
		})

		Convey("When the local file cannot be read", func() {
			_, err := verifier.Verify(ctx, filepath.Join(tempDir, "missing.txt"), "backups/source.txt")

			Convey("The local I/O error should pass through", func() {
				So(err, ShouldNotBeNil)
				So(os.IsNotExist(err), ShouldBeTrue)
			})
		})
	})
}
