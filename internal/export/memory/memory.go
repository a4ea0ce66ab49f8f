package memory

import (
	"context"
	"fmt"
	"sync"

	"tempo/internal/export"
)

// Writer is an in-memory report destination for tests and local development.
type Writer struct {
	mu      sync.Mutex
	reports []export.AuditReport
}

func New() *Writer {
	return &Writer{}
}

func (w *Writer) AppendReport(_ context.Context, r export.AuditReport) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reports = append(w.reports, r)
	return fmt.Sprintf("mem:%d", len(w.reports)), nil
}

// Reports returns a copy of everything appended so far.
func (w *Writer) Reports() []export.AuditReport {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]export.AuditReport(nil), w.reports...)
}
