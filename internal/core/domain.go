package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PeriodDaily   TargetPeriod = "daily"
	PeriodWeekly  TargetPeriod = "weekly"
	PeriodMonthly TargetPeriod = "monthly"
)

const (
	AuditActive    AuditStatus = "active"
	AuditCompleted AuditStatus = "completed"
	AuditAbandoned AuditStatus = "abandoned"
)

// HoursPerAuditDay is the number of loggable hour slots per audit day.
// An audit accounts for every hour of every day in its period.
const HoursPerAuditDay = 24

// CompletionRatio is the minimum share of expected hour slots that must be
// logged before an audit may transition to completed.
var CompletionRatio = decimal.NewFromFloat(0.7)

type (
	TargetPeriod string

	AuditStatus string

	// Area is the top level of the goal hierarchy.
	Area struct {
		ID       int64
		Name     string
		Position int
	}

	// Category groups goals under an area.
	Category struct {
		ID     int64
		AreaID int64
		Name   string
	}

	// Goal is a target amount of tagged time per period.
	Goal struct {
		ID            int64
		CategoryID    int64
		Name          string
		TargetHours   decimal.Decimal
		TargetPeriod  TargetPeriod
		MinDailyHours *decimal.Decimal // optional floor, nil when unset
		Tags          []string
		Active        bool
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	// Track is a time-tracking session synced from the external tracker.
	// DurationSeconds <= 0 means the session is still running (tracker API
	// semantics) and the record is excluded from every aggregate.
	Track struct {
		ID              int64
		ExternalID      string
		Start           time.Time
		DurationSeconds int64
		Description     string
		ProjectName     string
		SyncedAt        time.Time
	}

	// Audit is a bounded calendar period during which hourly activity is logged.
	Audit struct {
		ID        int64
		StartDate time.Time // midnight UTC
		EndDate   time.Time // midnight UTC, inclusive
		Status    AuditStatus
		CreatedAt time.Time
	}

	// TimeEntry is one hour slot logged within an audit day.
	TimeEntry struct {
		ID        int64
		AuditID   int64
		Date      time.Time // midnight UTC
		Hour      int       // 0-23
		Activity  string
		Important bool
		Urgent    bool
	}
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrAuditFrozen  = errors.New("audit is no longer active")
	ErrEmptyName    = errors.New("empty name")
	ErrNoTags       = errors.New("at least one tag is required")
	ErrInvalidHours = errors.New("target hours must be positive")
	ErrInvalidSlot  = errors.New("hour slot must be between 0 and 23")
	ErrInvalidRange = errors.New("end date must not be before start date")
	ErrOutOfPeriod  = errors.New("date falls outside the audit period")
)

func (a Area) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.AreaID <= 0 {
		return errors.New("category requires an area")
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if g.CategoryID <= 0 {
		return errors.New("goal requires a category")
	}
	if !g.TargetHours.IsPositive() {
		return ErrInvalidHours
	}
	if g.MinDailyHours != nil && g.MinDailyHours.IsNegative() {
		return errors.New("minimum daily hours must not be negative")
	}
	if len(g.Tags) == 0 {
		return ErrNoTags
	}
	for _, tag := range g.Tags {
		if strings.TrimSpace(tag) == "" {
			return errors.New("empty tag")
		}
	}
	return nil
}

func (a Audit) Validate() error {
	if a.StartDate.IsZero() || a.EndDate.IsZero() {
		return errors.New("audit requires start and end dates")
	}
	if a.EndDate.Before(a.StartDate) {
		return ErrInvalidRange
	}
	return nil
}

// DurationDays returns the inclusive length of the audit period in days.
func (a Audit) DurationDays() int {
	return int(a.EndDate.Sub(a.StartDate).Hours()/24) + 1
}

// ExpectedHours returns the total number of loggable hour slots in the period.
func (a Audit) ExpectedHours() int {
	return a.DurationDays() * HoursPerAuditDay
}

// Contains reports whether day falls within the audit period.
func (a Audit) Contains(day time.Time) bool {
	d := Midnight(day)
	return !d.Before(a.StartDate) && !d.After(a.EndDate)
}

func (e TimeEntry) Validate() error {
	if e.Hour < 0 || e.Hour > 23 {
		return ErrInvalidSlot
	}
	if strings.TrimSpace(e.Activity) == "" {
		return errors.New("empty activity")
	}
	if len(e.Activity) > 200 {
		return errors.New("activity too long (max 200 characters)")
	}
	return nil
}

// Quadrant returns the Eisenhower quadrant for the entry:
// 1 important+urgent, 2 important, 3 urgent, 4 neither.
func (e TimeEntry) Quadrant() int {
	switch {
	case e.Important && e.Urgent:
		return 1
	case e.Important:
		return 2
	case e.Urgent:
		return 3
	default:
		return 4
	}
}

// Running reports whether the track is still open in the tracker and must be
// ignored by calculators.
func (t Track) Running() bool {
	return t.DurationSeconds <= 0
}

// Midnight truncates t to the start of its day in UTC.
func Midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// HoursFromSeconds converts a duration in seconds to hours rounded to two
// decimals, the precision every API surface uses.
func HoursFromSeconds(seconds int64) decimal.Decimal {
	return decimal.NewFromInt(seconds).Div(decimal.NewFromInt(3600)).Round(2)
}
