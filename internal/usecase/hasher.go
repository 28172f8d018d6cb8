package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// HashFile streams path through SHA-256 and returns the lowercase hex
// digest. I/O errors are returned unwrapped so callers can tell local file
// failure apart from remote failure.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
