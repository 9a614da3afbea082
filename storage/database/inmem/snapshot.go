package inmemdb

import (
	"sort"

	"github.com/trezcool/siabdul/core/attendance"
	"github.com/trezcool/siabdul/core/roster"
	"github.com/trezcool/siabdul/core/snapshot"
)

type snapshotStore struct {
	db *DB
}

func NewSnapshotStore(db *DB) snapshot.Store {
	return &snapshotStore{db: db}
}

func (store *snapshotStore) Dump() (snapshot.State, error) {
	db := store.db
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	st := snapshot.State{
		Classes:  make([]string, len(db.classes)),
		Students: (&studentRepository{db: db}).query(roster.QueryFilter{}),
		Records:  make([]attendance.Record, len(db.records)),
	}
	copy(st.Classes, db.classes)
	copy(st.Records, db.records)
	name, cfg := db.settings.SchoolName, db.settings.Dispatch
	st.SchoolName, st.Dispatch = &name, &cfg
	return st, nil
}

func (store *snapshotStore) Restore(st snapshot.State) error {
	db := store.db
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if st.Students != nil {
		db.students = make(map[string]*roster.Student, len(st.Students))
		db.byCode = make(map[string]string, len(st.Students))
		db.order = make([]string, 0, len(st.Students))
		for i := range st.Students {
			s := st.Students[i]
			db.students[s.ID] = &s
			db.byCode[s.Code] = s.ID
			db.order = append(db.order, s.ID)
		}
	}
	if st.Classes != nil {
		db.classes = make([]string, 0, len(st.Classes))
		for _, c := range st.Classes {
			db.addClass(c)
		}
	}
	for _, s := range db.students {
		db.addClass(s.Class)
	}

	if st.Records != nil {
		db.records = make([]attendance.Record, len(st.Records))
		copy(db.records, st.Records)
		sort.SliceStable(db.records, func(i, j int) bool {
			return db.records[i].Timestamp.Before(db.records[j].Timestamp)
		})
		db.reindex()
	}
	db.removeRecords(func(rec attendance.Record) bool {
		_, ok := db.students[rec.StudentID]
		return !ok
	})

	if st.SchoolName != nil {
		db.settings.SchoolName = *st.SchoolName
	}
	if st.Dispatch != nil {
		db.settings.Dispatch = *st.Dispatch
	}
	return nil
}
