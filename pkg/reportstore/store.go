// Package reportstore persists user-submitted phishing reports. Reports
// feed model retraining, so writes must survive process restarts when a
// database is available; without one the service falls back to an
// in-memory store so the report endpoint keeps working.
package reportstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Report is one user submission flagging a URL as suspicious.
type Report struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	ReporterIP  string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store accepts and lists phishing reports.
type Store interface {
	Save(ctx context.Context, r *Report) error
	Recent(ctx context.Context, limit int) ([]Report, error)
	Close()
}

// NewReport fills in the generated fields of a submission.
func NewReport(url, description, reporterIP string) *Report {
	return &Report{
		ID:          uuid.New().String(),
		URL:         url,
		Description: description,
		ReporterIP:  reporterIP,
		CreatedAt:   time.Now().UTC(),
	}
}

// MemStore keeps reports in memory, bounded to the most recent maxReports.
type MemStore struct {
	mu      sync.Mutex
	reports []Report
}

const maxReports = 10000

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (m *MemStore) Save(ctx context.Context, r *Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, *r)
	if len(m.reports) > maxReports {
		m.reports = m.reports[len(m.reports)-maxReports:]
	}
	return nil
}

func (m *MemStore) Recent(ctx context.Context, limit int) ([]Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.reports) {
		limit = len(m.reports)
	}
	out := make([]Report, limit)
	// Newest first
	for i := 0; i < limit; i++ {
		out[i] = m.reports[len(m.reports)-1-i]
	}
	return out, nil
}

func (m *MemStore) Close() {}
