package usecase

import (
	"sync"

	"github.com/paulcyi/cloudops-automation-toolkit/internal/domain"
)

const defaultHistoryLimit = 1000

// History is a bounded, insertion-ordered log of completed backup attempts.
// When the cap is reached the oldest entry is evicted first. Safe for
// concurrent use.
type History struct {
	mu      sync.Mutex
	entries []domain.BackupRecord
	limit   int
}

func NewHistory() *History {
	return &History{limit: defaultHistoryLimit}
}

func (h *History) Record(record domain.BackupRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, record)
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
}

// Entries returns a copy of the history, oldest first.
func (h *History) Entries() []domain.BackupRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := make([]domain.BackupRecord, len(h.entries))
	copy(entries, h.entries)
	return entries
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Statistics derives aggregate counters from the history. An empty history
// yields all zeroes.
func (h *History) Statistics() domain.Statistics {
	h.mu.Lock()
	defer h.mu.Unlock()

	total := len(h.entries)
	if total == 0 {
		return domain.Statistics{}
	}

	var succeeded int
	var totalBytes int64
	for _, entry := range h.entries {
		if entry.Status == domain.StatusSuccess {
			succeeded++
		}
		totalBytes += entry.SizeBytes
	}

	return domain.Statistics{
		SuccessRatePercent: 100 * float64(succeeded) / float64(total),
		TotalBackups:       total,
		AverageSizeMB:      float64(totalBytes) / float64(total) / (1024 * 1024),
	}
}
