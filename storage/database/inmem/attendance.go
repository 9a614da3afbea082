package inmemdb

import (
	"github.com/trezcool/siabdul/core/attendance"
	"github.com/trezcool/siabdul/core/report"
	"github.com/trezcool/siabdul/core/roster"
)

type ledger struct {
	db *DB
}

func NewLedger(db *DB) attendance.Ledger {
	return &ledger{db: db}
}

func (l *ledger) HasRecord(studentID string, date attendance.Date) (bool, error) {
	l.db.mutex.RLock()
	defer l.db.mutex.RUnlock()

	_, ok := l.db.byDay[dayKey{studentID, date}]
	return ok, nil
}

func (l *ledger) GetRecord(studentID string, date attendance.Date) (attendance.Record, error) {
	l.db.mutex.RLock()
	defer l.db.mutex.RUnlock()

	if i, ok := l.db.byDay[dayKey{studentID, date}]; ok {
		return l.db.records[i], nil
	}
	return attendance.Record{}, attendance.ErrNoRecord
}

func (l *ledger) Append(rec attendance.Record) error {
	l.db.mutex.Lock()
	defer l.db.mutex.Unlock()

	key := dayKey{rec.StudentID, rec.Date}
	if _, ok := l.db.byDay[key]; ok {
		return attendance.ErrDuplicateDate
	}
	l.db.records = append(l.db.records, rec)
	l.db.byDay[key] = len(l.db.records) - 1
	return nil
}

func (l *ledger) Replace(rec attendance.Record) error {
	l.db.mutex.Lock()
	defer l.db.mutex.Unlock()

	key := dayKey{rec.StudentID, rec.Date}
	if _, ok := l.db.byDay[key]; ok {
		l.db.removeRecords(func(r attendance.Record) bool { return r.StudentID == rec.StudentID && r.Date == rec.Date })
	}
	l.db.records = append(l.db.records, rec)
	l.db.byDay[key] = len(l.db.records) - 1
	return nil
}

func (l *ledger) RemoveAllForStudent(studentID string) error {
	l.db.mutex.Lock()
	defer l.db.mutex.Unlock()

	l.db.removeRecords(func(r attendance.Record) bool { return r.StudentID == studentID })
	return nil
}

func (l *ledger) Reset() error {
	l.db.mutex.Lock()
	defer l.db.mutex.Unlock()

	l.db.records = nil
	l.db.byDay = make(map[dayKey]int)
	return nil
}

func (l *ledger) QueryRecords(filter attendance.RecordFilter) ([]attendance.Record, error) {
	l.db.mutex.RLock()
	defer l.db.mutex.RUnlock()
	return l.db.queryRecords(filter), nil
}

// queryRecords walks the ledger newest first. Caller holds the lock.
func (db *DB) queryRecords(filter attendance.RecordFilter) []attendance.Record {
	res := make([]attendance.Record, 0)
	for i := len(db.records) - 1; i >= 0; i-- {
		if filter.Limit > 0 && len(res) >= filter.Limit {
			break
		}
		if rec := db.records[i]; filter.Match(rec) {
			res = append(res, rec)
		}
	}
	return res
}

type reportSource struct {
	db *DB
}

func NewReportSource(db *DB) report.Source {
	return &reportSource{db: db}
}

func (src *reportSource) Snapshot(class string, from, to attendance.Date) (report.View, error) {
	src.db.mutex.RLock()
	defer src.db.mutex.RUnlock()

	students := (&studentRepository{db: src.db}).query(roster.QueryFilter{Class: class})
	inView := make(map[string]bool, len(students))
	for _, st := range students {
		inView[st.ID] = true
	}

	records := make([]attendance.Record, 0)
	for _, rec := range src.db.queryRecords(attendance.RecordFilter{From: from, To: to}) {
		if inView[rec.StudentID] {
			records = append(records, rec)
		}
	}
	return report.View{Students: students, Records: records}, nil
}

func (src *reportSource) Classes() ([]string, error) {
	src.db.mutex.RLock()
	defer src.db.mutex.RUnlock()

	classes := make([]string, len(src.db.classes))
	copy(classes, src.db.classes)
	return classes, nil
}
