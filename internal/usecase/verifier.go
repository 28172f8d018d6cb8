package usecase

import (
	"context"

	"github.com/paulcyi/cloudops-automation-toolkit/internal/domain"
)

type VerifyOutcome int

const (
	VerifyMatch VerifyOutcome = iota
	VerifyMismatch
)

// Verifier checks that a stored object's hash metadata matches a freshly
// computed digest of the local file.
type Verifier struct {
	store  domain.ObjectStore
	logger Logger
}

func NewVerifier(store domain.ObjectStore, logger Logger) *Verifier {
	return &Verifier{store: store, logger: logger}
}

// Verify recomputes the digest of localPath and compares it against the
// content_hash metadata stored on remoteKey. A mismatch is a normal outcome,
// not an error. Missing hash metadata is a *domain.VerificationError and is
// never a retry candidate; hash and gateway errors pass through unchanged so
// the caller can apply its own retry policy.
func (v *Verifier) Verify(ctx context.Context, localPath, remoteKey string) (VerifyOutcome, error) {
	localDigest, err := HashFile(localPath)
	if err != nil {
		return VerifyMismatch, err
	}

	metadata, err := v.store.HeadObject(ctx, remoteKey)
	if err != nil {
		return VerifyMismatch, err
	}

	remoteDigest, ok := metadata[domain.MetaContentHash]
	if !ok || remoteDigest == "" {
		return VerifyMismatch, &domain.VerificationError{Key: remoteKey, Reason: "missing hash metadata"}
	}

	if remoteDigest != localDigest {
		v.logger.Warnf("Hash mismatch for %s: local=%s remote=%s", remoteKey, localDigest, remoteDigest)
		return VerifyMismatch, nil
	}

	return VerifyMatch, nil
}
