package attendance

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// errors
	ErrDuplicateDate = errors.New("student already has an attendance record for this date")
	ErrNoRecord      = errors.New("attendance record not found")
	ErrInvalidStatus = errors.New("unknown attendance status")
	ErrInvalidDate   = errors.New("date must be in YYYY-MM-DD format")
)

type Status string

const (
	StatusPresent    Status = "present"
	StatusLate       Status = "late"
	StatusSick       Status = "sick"
	StatusPermission Status = "permission"
	StatusAbsent     Status = "absent"
)

// ManualStatuses are the statuses an operator may assign without a scan.
var ManualStatuses = []Status{StatusPresent, StatusSick, StatusPermission, StatusAbsent}

// ParseStatus accepts every Status value plus the legacy "alpha" alias for absent.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPresent, StatusLate, StatusSick, StatusPermission, StatusAbsent:
		return st, nil
	case "alpha":
		return StatusAbsent, nil
	}
	return "", errors.Wrap(ErrInvalidStatus, s)
}

func (s Status) IsManual() bool {
	for _, st := range ManualStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Date is a calendar day in the school's local time.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// DateOf returns the calendar day of `t` in `loc`.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return DateOf(t, nil), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) IsZero() bool { return d == Date{} }

// Time returns midnight of the day in `loc`.
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) Weekday() time.Weekday {
	return d.Time(time.UTC).Weekday()
}

func (d Date) Before(other Date) bool {
	return d.Time(time.UTC).Before(other.Time(time.UTC))
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time(time.UTC).AddDate(0, 0, n), nil)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Record is a single attendance entry. At most one exists per student and Date.
type Record struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Timestamp time.Time `json:"timestamp"`
	Date      Date      `json:"date"`
	Status    Status    `json:"status"`
}

// NewRecord stamps a record for `studentID` at `at`, dated in `loc`.
func NewRecord(studentID string, at time.Time, status Status, loc *time.Location) Record {
	return Record{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Timestamp: at,
		Date:      DateOf(at, loc),
		Status:    status,
	}
}

// TimeIn formats the local arrival time as HH:MM.
func (r Record) TimeIn(loc *time.Location) string {
	t := r.Timestamp
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("15:04")
}

// RecordFilter narrows QueryRecords. Zero values match everything.
type RecordFilter struct {
	StudentID string
	From      Date // inclusive
	To        Date // inclusive
	Limit     int
}

func (f RecordFilter) Match(r Record) bool {
	if f.StudentID != "" && r.StudentID != f.StudentID {
		return false
	}
	if !f.From.IsZero() && r.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && f.To.Before(r.Date) {
		return false
	}
	return true
}

type Ledger interface {
	HasRecord(studentID string, date Date) (bool, error)
	// GetRecord returns ErrNoRecord when the student has no record on `date`.
	GetRecord(studentID string, date Date) (Record, error)
	// Append fails with ErrDuplicateDate if the student already has a record on rec.Date.
	Append(rec Record) error
	// Replace removes the student's record on rec.Date, if any, and inserts rec.
	Replace(rec Record) error
	RemoveAllForStudent(studentID string) error
	// Reset drops every record.
	Reset() error
	// QueryRecords returns matching records, most recent first.
	QueryRecords(filter RecordFilter) ([]Record, error)
}
