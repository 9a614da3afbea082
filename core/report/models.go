package report

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/siabdul/core/attendance"
	"github.com/trezcool/siabdul/core/roster"
)

var ErrInvalidMonth = errors.New("month must be in YYYY-MM format")

// Daily status labels.
const (
	LabelPresent = "Present"
	LabelSick    = "Sick"
	LabelExcused = "Excused"
	LabelAbsent  = "Absent"
	LabelNoInfo  = "No Information"

	noTime = "-"
)

// Monthly cell codes.
const (
	CodePresent    = "H"
	CodeSick       = "S"
	CodePermission = "I"
	CodeAbsent     = "A"
	NoRecord       = "."
)

// StatusLabel maps a status to its daily report label. Late counts as present.
func StatusLabel(s attendance.Status) string {
	switch s {
	case attendance.StatusPresent, attendance.StatusLate:
		return LabelPresent
	case attendance.StatusSick:
		return LabelSick
	case attendance.StatusPermission:
		return LabelExcused
	case attendance.StatusAbsent:
		return LabelAbsent
	}
	return LabelNoInfo
}

// StatusCode maps a status to its monthly matrix letter.
func StatusCode(s attendance.Status) string {
	switch s {
	case attendance.StatusPresent, attendance.StatusLate:
		return CodePresent
	case attendance.StatusSick:
		return CodeSick
	case attendance.StatusPermission:
		return CodePermission
	case attendance.StatusAbsent:
		return CodeAbsent
	}
	return NoRecord
}

// View is a consistent read of the roster and of the ledger between two dates.
type View struct {
	Students []roster.Student // roster order
	Records  []attendance.Record
}

type recordKey struct {
	studentID string
	date      attendance.Date
}

func (v View) index() map[recordKey]attendance.Record {
	idx := make(map[recordKey]attendance.Record, len(v.Records))
	for _, rec := range v.Records {
		idx[recordKey{rec.StudentID, rec.Date}] = rec
	}
	return idx
}

// ByClass returns the students of `class` in roster order, or all of them when class is empty.
func (v View) ByClass(class string) []roster.Student {
	if class == "" {
		return v.Students
	}
	students := make([]roster.Student, 0)
	for _, st := range v.Students {
		if st.Class == class {
			students = append(students, st)
		}
	}
	return students
}

type Source interface {
	// Snapshot reads the students of `class` (all when empty) and the records dated
	// within [from, to] under a single lock.
	Snapshot(class string, from, to attendance.Date) (View, error)
	Classes() ([]string, error)
}

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, ErrInvalidMonth
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func MonthOf(d attendance.Date) Month {
	return Month{Year: d.Year, Month: d.Month}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (m Month) Day(day int) attendance.Date {
	return attendance.Date{Year: m.Year, Month: m.Month, Day: day}
}

func (m Month) First() attendance.Date { return m.Day(1) }
func (m Month) Last() attendance.Date  { return m.Day(m.Days()) }
