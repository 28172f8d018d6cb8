package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestHashFile(t *testing.T) {
	Convey("Given a file on disk", t, func() {
		tempDir, err := os.MkdirTemp("", "hasher_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		content := []byte("backup me, please")
		path := filepath.Join(tempDir, "data.txt")
		So(os.WriteFile(path, content, 0644), ShouldBeNil)

		Convey("When hashing it", func() {
			digest, err := HashFile(path)

			Convey("It should produce the SHA-256 hex digest", func() {
				So(err, ShouldBeNil)

				sum := sha256.Sum256(content)
				So(digest, ShouldEqual, hex.EncodeToString(sum[:]))
				So(digest, ShouldHaveLength, 64)
			})

			Convey("It should be stable across repeated calls", func() {
				So(err, ShouldBeNil)

				again, err := HashFile(path)
				So(err, ShouldBeNil)
				So(again, ShouldEqual, digest)
			})
		})

		Convey("When the file changes", func() {
			before, err := HashFile(path)
			So(err, ShouldBeNil)

			So(os.WriteFile(path, []byte("different content"), 0644), ShouldBeNil)

			after, err := HashFile(path)

			Convey("The digest should change", func() {
				So(err, ShouldBeNil)
				So(after, ShouldNotEqual, before)
			})
		})

		Convey("When the file does not exist", func() {
			_, err := HashFile(filepath.Join(tempDir, "missing.txt"))

			Convey("It should return the I/O error unwrapped", func() {
				So(err, ShouldNotBeNil)
				So(os.IsNotExist(err), ShouldBeTrue)
			})
		})
	})
}
