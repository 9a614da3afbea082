package attendance

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/roster"
)

const (
	statusTag  = "status"
	statusText = "must be one of present, sick, permission or absent"
)

func init() {
	_ = core.Validate.RegisterValidation(statusTag, func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).IsManual()
	})
	core.RegisterCustomTranslation(statusTag, statusText)
}

// Mark is an operator-assigned status for a student's current day.
type Mark struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    Status `json:"status" validate:"required,status"`
}

func (m *Mark) Validate() error {
	m.StudentID = core.CleanString(m.StudentID)
	m.Status = Status(core.CleanString(string(m.Status), true /* lower */))
	return core.Validate.Struct(m)
}

// FeedItem is one entry of the activity feed.
type FeedItem struct {
	Record
	StudentName  string `json:"student_name"`
	StudentCode  string `json:"student_code"`
	StudentClass string `json:"student_class"`
	TimeIn       string `json:"time_in"`
}

type (
	StudentGetter interface {
		Get(id string) (roster.Student, error)
	}

	Service struct {
		ledger   Ledger
		students StudentGetter
		logger   core.Logger
		loc      *time.Location
	}
)

func NewService(ledger Ledger, students StudentGetter, logger core.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{ledger: ledger, students: students, logger: logger, loc: loc}
}

func (svc *Service) Today() Date {
	return DateOf(NowFunc(), svc.loc)
}

// Mark sets the student's status for today, replacing any record of the day.
// Manual marks never notify guardians.
func (svc *Service) Mark(m Mark) (Record, error) {
	if _, err := svc.students.Get(m.StudentID); err != nil {
		return Record{}, err
	}
	rec := NewRecord(m.StudentID, NowFunc(), m.Status, svc.loc)
	if err := svc.ledger.Replace(rec); err != nil {
		return Record{}, errors.Wrap(err, "marking attendance")
	}
	return rec, nil
}

// Unmarked filters `students` down to those without a record on `date`.
func (svc *Service) Unmarked(students []roster.Student, date Date) ([]roster.Student, error) {
	result := make([]roster.Student, 0, len(students))
	for _, st := range students {
		ok, err := svc.ledger.HasRecord(st.ID, date)
		if err != nil {
			return nil, err
		}
		if !ok {
			result = append(result, st)
		}
	}
	return result, nil
}

// StatusesOn maps student identifiers to their record on `date`.
func (svc *Service) StatusesOn(date Date) (map[string]Record, error) {
	records, err := svc.ledger.QueryRecords(RecordFilter{From: date, To: date})
	if err != nil {
		return nil, err
	}
	statuses := make(map[string]Record, len(records))
	for _, rec := range records {
		statuses[rec.StudentID] = rec
	}
	return statuses, nil
}

// Feed returns the latest records, most recent first.
func (svc *Service) Feed(limit int) ([]FeedItem, error) {
	records, err := svc.ledger.QueryRecords(RecordFilter{Limit: limit})
	if err != nil {
		return nil, err
	}
	items := make([]FeedItem, 0, len(records))
	for _, rec := range records {
		st, err := svc.students.Get(rec.StudentID)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("feed: record %s has no student", rec.ID), err)
			continue
		}
		items = append(items, FeedItem{
			Record:       rec,
			StudentName:  st.Name,
			StudentCode:  st.Code,
			StudentClass: st.Class,
			TimeIn:       rec.TimeIn(svc.loc),
		})
	}
	return items, nil
}

// Reset clears the whole ledger. Students are kept.
func (svc *Service) Reset() error {
	if err := svc.ledger.Reset(); err != nil {
		return err
	}
	svc.logger.Warn("attendance ledger reset")
	return nil
}
