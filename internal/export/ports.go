package export

import (
	"context"
	"time"
)

// Ports for outbound report destinations.
type (
	// DayRow is one audit day in a report: logged hour count plus the
	// Eisenhower quadrant breakdown.
	DayRow struct {
		Date        time.Time
		LoggedHours int
		Quadrants   [4]int // index 0 = Q1 urgent+important ... index 3 = Q4
	}

	// AuditReport is the exportable summary of one audit.
	AuditReport struct {
		AuditID       int64
		StartDate     time.Time
		EndDate       time.Time
		Status        string
		LoggedHours   int
		ExpectedHours int
		Days          []DayRow
	}

	ReportWriter interface {
		// AppendReport writes the report and returns a destination
		// reference (sheet range, row ref).
		AppendReport(ctx context.Context, r AuditReport) (ref string, err error)
	}
)
