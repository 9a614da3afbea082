package snapshot

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/attendance"
	"github.com/trezcool/siabdul/core/dispatch"
	"github.com/trezcool/siabdul/core/roster"
)

var (
	NowFunc = time.Now // mockable

	ErrNotConfirmed = errors.New("import replaces all current data and must be confirmed")
)

// State is the restorable content of a snapshot. Nil fields keep the current data.
type State struct {
	SchoolName *string
	Classes    []string
	Students   []roster.Student
	Records    []attendance.Record
	Dispatch   *dispatch.Config
}

type (
	Store interface {
		Dump() (State, error)
		// Restore replaces the non-nil parts of the state in one step.
		// Records of students that no longer exist are dropped.
		Restore(s State) error
	}

	Service struct {
		store  Store
		logger core.Logger
		loc    *time.Location
	}
)

func NewService(store Store, logger core.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, logger: logger, loc: loc}
}

func (svc *Service) Export() (Document, error) {
	st, err := svc.store.Dump()
	if err != nil {
		return Document{}, errors.Wrap(err, "dumping state")
	}
	now := NowFunc().UTC()
	doc := Document{
		Version:    Version,
		ExportedAt: &now,
		Classes:    st.Classes,
		Students:   make([]StudentDoc, 0, len(st.Students)),
		Attendance: make([]RecordDoc, 0, len(st.Records)),
	}
	if doc.Classes == nil {
		doc.Classes = make([]string, 0)
	}
	if st.SchoolName != nil {
		doc.SchoolName = *st.SchoolName
	}
	for _, s := range st.Students {
		doc.Students = append(doc.Students, FromStudent(s))
	}
	for _, r := range st.Records {
		doc.Attendance = append(doc.Attendance, FromRecord(r))
	}
	if st.Dispatch != nil {
		doc.WAConfig = FromDispatch(*st.Dispatch)
	}
	return doc, nil
}

// Import replaces the current data with `doc`. Invalid entries are skipped and reported.
func (svc *Service) Import(doc Document, confirmed bool) (core.ImportReport, error) {
	if !confirmed {
		return core.ImportReport{}, ErrNotConfirmed
	}

	current, err := svc.store.Dump()
	if err != nil {
		return core.ImportReport{}, errors.Wrap(err, "dumping state")
	}
	state, report := Sanitize(doc, current.Students, svc.loc)
	if err := svc.store.Restore(state); err != nil {
		return core.ImportReport{}, errors.Wrap(err, "restoring state")
	}

	svc.logger.Info(fmt.Sprintf("snapshot imported: %d entries applied, %d rejected", report.Applied, len(report.Rejected)))
	return report, nil
}

// Sanitize validates `doc` into a restorable State.
// `existing` is used to resolve attendance when the document carries no students.
func Sanitize(doc Document, existing []roster.Student, loc *time.Location) (State, core.ImportReport) {
	var (
		state  State
		report core.ImportReport
	)

	if name := core.CleanName(doc.SchoolName); name != "" {
		state.SchoolName = &name
	}

	if doc.Classes != nil {
		state.Classes = make([]string, 0, len(doc.Classes))
		seen := make(map[string]bool)
		for i, c := range doc.Classes {
			c = core.CleanName(c)
			switch {
			case c == "":
				report.Reject("classes", i+1, "blank class name")
			case seen[c]:
				report.Reject("classes", i+1, "duplicate class "+c)
			default:
				seen[c] = true
				state.Classes = append(state.Classes, c)
				report.Applied++
			}
		}
	}

	known := make(map[string]bool)
	if doc.Students != nil {
		state.Students = make([]roster.Student, 0, len(doc.Students))
		codes := make(map[string]bool)
		for i, sd := range doc.Students {
			st, reason := sanitizeStudent(sd)
			switch {
			case reason != "":
			case codes[st.Code]:
				reason = "duplicate code " + st.Code
			case known[st.ID]:
				reason = "duplicate id " + st.ID
			}
			if reason != "" {
				report.Reject("students", i+1, reason)
				continue
			}
			codes[st.Code], known[st.ID] = true, true
			state.Students = append(state.Students, st)
			report.Applied++
		}
	} else {
		for _, st := range existing {
			known[st.ID] = true
		}
	}

	if doc.Attendance != nil {
		state.Records = make([]attendance.Record, 0, len(doc.Attendance))
		type day struct {
			studentID string
			date      attendance.Date
		}
		days := make(map[day]bool)
		for i, rd := range doc.Attendance {
			rec, reason := sanitizeRecord(rd, loc)
			if reason == "" && !known[rec.StudentID] {
				reason = "unknown student " + rec.StudentID
			}
			k := day{rec.StudentID, rec.Date}
			if reason == "" && days[k] {
				reason = fmt.Sprintf("student %s already has a record on %s", rec.StudentID, rec.Date)
			}
			if reason != "" {
				report.Reject("attendance", i+1, reason)
				continue
			}
			days[k] = true
			state.Records = append(state.Records, rec)
			report.Applied++
		}
	}

	if doc.WAConfig != nil {
		cfg := dispatch.Config{
			Mode:       dispatch.Mode(doc.WAConfig.Mode),
			GatewayURL: doc.WAConfig.APIURL,
			GatewayKey: doc.WAConfig.APIKey,
			AutoSend:   doc.WAConfig.AutoSend,
		}
		if err := cfg.Validate(); err != nil {
			report.Reject("waConfig", 0, err.Error())
		} else {
			state.Dispatch = &cfg
			report.Applied++
		}
	}
	return state, report
}

func sanitizeStudent(sd StudentDoc) (roster.Student, string) {
	st := roster.Student{
		ID:            core.CleanString(sd.ID),
		Code:          core.CleanString(sd.NISN),
		Name:          core.CleanName(sd.Name),
		Class:         core.CleanName(sd.Grade),
		Avatar:        core.CleanString(sd.Avatar),
		GuardianPhone: dispatch.NormalizePhone(sd.ParentPhone),
	}
	switch {
	case st.Name == "":
		return st, "name is required"
	case st.Class == "":
		return st, "grade is required"
	case !core.IsDigits(st.Code):
		return st, "nisn must contain only digits"
	}
	if st.GuardianPhone != "" {
		if err := core.Validate.Var(st.GuardianPhone, "intlphone"); err != nil {
			return st, "invalid parent phone " + sd.ParentPhone
		}
	}
	if st.ID == "" {
		st.ID = roster.NewID()
	}
	return st, ""
}

func sanitizeRecord(rd RecordDoc, loc *time.Location) (attendance.Record, string) {
	status, err := attendance.ParseStatus(core.CleanString(rd.Status, true /* lower */))
	if err != nil {
		return attendance.Record{}, "unknown status " + rd.Status
	}
	if rd.Timestamp.IsZero() {
		return attendance.Record{}, "timestamp is required"
	}
	rec := attendance.Record{
		ID:        core.CleanString(rd.ID),
		StudentID: core.CleanString(rd.StudentID),
		Timestamp: rd.Timestamp,
		Date:      attendance.DateOf(rd.Timestamp, loc),
		Status:    status,
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	return rec, ""
}
