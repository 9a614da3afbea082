package inmemdb

import (
	"sort"
	"sync"

	"github.com/trezcool/siabdul/core/attendance"
	"github.com/trezcool/siabdul/core/dispatch"
	"github.com/trezcool/siabdul/core/roster"
	"github.com/trezcool/siabdul/core/settings"
)

type dayKey struct {
	studentID string
	date      attendance.Date
}

// DB keeps the whole state behind a single lock, so every repository call is atomic
// and cascades (student -> attendance) never expose a partial write.
type DB struct {
	mutex sync.RWMutex

	students map[string]*roster.Student // by ID
	order    []string                   // student IDs, roster order
	byCode   map[string]string          // code -> ID
	classes  []string                   // sorted

	records []attendance.Record // insertion order
	byDay   map[dayKey]int      // index into records

	logs []dispatch.LogEntry // most recent first

	settings    settings.Settings
	hasSettings bool
}

func Open() (*DB, error) {
	db := &DB{
		students: make(map[string]*roster.Student),
		byCode:   make(map[string]string),
		byDay:    make(map[dayKey]int),
	}
	return db, nil
}

// addClass inserts `name` into the sorted class list if it is missing. Caller holds the lock.
func (db *DB) addClass(name string) {
	i := sort.SearchStrings(db.classes, name)
	if i < len(db.classes) && db.classes[i] == name {
		return
	}
	db.classes = append(db.classes, "")
	copy(db.classes[i+1:], db.classes[i:])
	db.classes[i] = name
}

func (db *DB) removeClass(name string) {
	i := sort.SearchStrings(db.classes, name)
	if i < len(db.classes) && db.classes[i] == name {
		db.classes = append(db.classes[:i], db.classes[i+1:]...)
	}
}

func (db *DB) hasClass(name string) bool {
	i := sort.SearchStrings(db.classes, name)
	return i < len(db.classes) && db.classes[i] == name
}

// reindex rebuilds byDay after records were removed. Caller holds the lock.
func (db *DB) reindex() {
	db.byDay = make(map[dayKey]int, len(db.records))
	for i, rec := range db.records {
		db.byDay[dayKey{rec.StudentID, rec.Date}] = i
	}
}

// removeRecords drops every record matching `drop`. Caller holds the lock.
func (db *DB) removeRecords(drop func(rec attendance.Record) bool) int {
	kept := db.records[:0]
	removed := 0
	for _, rec := range db.records {
		if drop(rec) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	db.records = kept
	if removed > 0 {
		db.reindex()
	}
	return removed
}
