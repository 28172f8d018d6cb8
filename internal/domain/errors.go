package domain

import (
	"errors"
	"fmt"
)

// ConnectionError reports that the object store or bucket is unreachable.
// Raised at construction time and fatal to startup.
type ConnectionError struct {
	Bucket string
	Reason string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bucket %s: %s: %v", e.Bucket, e.Reason, e.Err)
	}
	return fmt.Sprintf("bucket %s: %s", e.Bucket, e.Reason)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// OperationError reports a single failed gateway call. Transient marks
// failures expected to resolve on retry (network blip, throttling, timeout);
// everything else is permanent (missing object, bad credentials).
type OperationError struct {
	Op        string
	Key       string
	Transient bool
	Err       error
}

func (e *OperationError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Key, kind, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a gateway failure worth retrying.
func IsTransient(err error) bool {
	var opErr *OperationError
	return errors.As(err, &opErr) && opErr.Transient
}

// VerificationError reports that a digest comparison failed structurally,
// e.g. the stored object carries no hash metadata. A plain digest mismatch
// is not a VerificationError.
type VerificationError struct {
	Key    string
	Reason string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verify %s: %s", e.Key, e.Reason)
}

// MetadataError reports a malformed metadata record.
type MetadataError struct {
	Reason string
	Err    error
}

func (e *MetadataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid metadata: %s: %v", e.Reason, e.Err)
	}
	return "invalid metadata: " + e.Reason
}

func (e *MetadataError) Unwrap() error { return e.Err }

// SchedulerError reports invalid schedule arguments or a missing source file.
type SchedulerError struct {
	Reason string
	Err    error
}

func (e *SchedulerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schedule: %s: %v", e.Reason, e.Err)
	}
	return "schedule: " + e.Reason
}

func (e *SchedulerError) Unwrap() error { return e.Err }

// BackupError reports a backup that exhausted its retry budget.
type BackupError struct {
	FilePath string
	Attempts int
	Err      error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("backup %s failed after %d attempt(s): %v", e.FilePath, e.Attempts, e.Err)
}

func (e *BackupError) Unwrap() error { return e.Err }
