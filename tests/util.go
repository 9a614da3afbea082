package testutil

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/attendance"
	"github.com/trezcool/siabdul/core/dispatch"
	"github.com/trezcool/siabdul/core/report"
	"github.com/trezcool/siabdul/core/roster"
	"github.com/trezcool/siabdul/core/settings"
	"github.com/trezcool/siabdul/core/snapshot"
	"github.com/trezcool/siabdul/storage/database/inmem"
)

// Jakarta is the fixed school timezone used by tests (UTC+7, no DST).
var Jakarta = time.FixedZone("WIB", 7*60*60)

// Config returns a test configuration that does not read the environment.
func Config() *core.Config {
	return &core.Config{
		Env:        "TEST",
		TestMode:   true,
		AppName:    "SIABDUL",
		SchoolName: "MTs Riyadlul Ulum",
		CodeLength: 10,
		Location:   Jakarta,
		Dispatch: core.DispatchConfig{
			Mode:           "link",
			GatewayURL:     dispatch.DefaultGatewayURL,
			SimulatedDelay: time.Millisecond,
			Timeout:        time.Second,
			QueueSize:      8,
		},
		Summarizer: core.SummarizerConfig{MaxRetries: 3, BaseDelay: time.Millisecond},
	}
}

// Store bundles every repository over one in-memory DB.
type Store struct {
	DB       *inmemdb.DB
	Students roster.Repository
	Ledger   attendance.Ledger
	Reports  report.Source
	Logs     dispatch.LogRepository
	Settings settings.Repository
	Snapshot snapshot.Store
}

func NewStore(t *testing.T) *Store {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	return &Store{
		DB:       db,
		Students: inmemdb.NewStudentRepository(db),
		Ledger:   inmemdb.NewLedger(db),
		Reports:  inmemdb.NewReportSource(db),
		Logs:     inmemdb.NewLogRepository(db),
		Settings: inmemdb.NewSettingsRepository(db, settings.Defaults(Config())),
		Snapshot: inmemdb.NewSnapshotStore(db),
	}
}

func CreateStudent(t *testing.T, repo roster.Repository, id, code, name, class, phone string) roster.Student {
	st, err := repo.CreateStudent(roster.Student{
		ID:            id,
		Code:          code,
		Name:          name,
		Class:         class,
		GuardianPhone: phone,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return st
}

// CreateDemoStudents creates the five demo students across four classes.
func CreateDemoStudents(t *testing.T, repo roster.Repository) []roster.Student {
	return []roster.Student{
		CreateStudent(t, repo, "STU-001", "0012345678", "Ahmad Santoso", "12 IPA 1", "6281234567890"),
		CreateStudent(t, repo, "STU-002", "0012345679", "Budi Pratama", "12 IPA 1", "6281234567891"),
		CreateStudent(t, repo, "STU-003", "0012345680", "Citra Dewi", "12 IPA 2", "6281234567892"),
		CreateStudent(t, repo, "STU-004", "0012345681", "Dewi Lestari", "12 IPS 1", ""),
		CreateStudent(t, repo, "STU-005", "0012345682", "Eko Kurniawan", "12 IPS 2", "6281234567894"),
	}
}

func AddRecord(t *testing.T, ledger attendance.Ledger, studentID string, at time.Time, status attendance.Status) attendance.Record {
	rec := attendance.NewRecord(studentID, at, status, Jakarta)
	if err := ledger.Append(rec); err != nil {
		t.Fatalf("AddRecord() failed: %v", err)
	}
	return rec
}

// At returns the given Jakarta wall-clock time.
func At(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, Jakarta)
}

// FixNow pins `*now` to `t` until the test ends.
func FixNow(t *testing.T, now *func() time.Time, at time.Time) {
	orig := *now
	*now = func() time.Time { return at }
	t.Cleanup(func() { *now = orig })
}

// Logger records every entry instead of printing it.
type Logger struct {
	mutex   sync.Mutex
	Entries []string
}

func (l *Logger) log(level, msg string, args ...interface{}) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	entry := level + ": " + msg
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			entry += fmt.Sprintf(" (%v)", a)
		case roster.Student:
			entry += " [student " + a.ID + "]"
		}
	}
	l.Entries = append(l.Entries, entry)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args...) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args...) }

func (l *Logger) Lines() []string {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	lines := make([]string, len(l.Entries))
	copy(lines, l.Entries)
	return lines
}

// Mailer collects sent messages.
type Mailer struct {
	mutex sync.Mutex
	Sent  []*core.EmailMessage
}

func (m *Mailer) SendMessages(messages ...*core.EmailMessage) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.Sent = append(m.Sent, messages...)
}
