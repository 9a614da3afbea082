package attendance

import (
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/roster"
)

var NowFunc = time.Now // mockable

type Outcome string

const (
	// OutcomeRecorded means a new present record was appended.
	OutcomeRecorded Outcome = "recorded"
	// OutcomeDuplicate means the student already had a record today. It is not an error.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeIgnored means the input was empty.
	OutcomeIgnored Outcome = "ignored"
)

// UnknownCodeError is returned when a scanned code matches no student.
type UnknownCodeError struct {
	Code string
}

func (err *UnknownCodeError) Error() string {
	return "unknown student code: " + err.Code
}

func IsUnknownCode(err error) bool {
	_, ok := errors.Cause(err).(*UnknownCodeError)
	return ok
}

type Result struct {
	Outcome  Outcome        `json:"outcome"`
	Student  roster.Student `json:"student"`
	Record   Record         `json:"record"`
	Notified bool           `json:"notified"`
	Message  string         `json:"message"`
}

type (
	StudentFinder interface {
		// Find looks a student up by code, then by legacy identifier.
		Find(key string) (roster.Student, error)
	}

	// ArrivalNotifier is told about every newly recorded arrival.
	// It must not block; it reports whether a notification was queued.
	ArrivalNotifier interface {
		Arrived(st roster.Student, at time.Time) bool
	}

	ScannerConfig struct {
		CodeLength int
		Location   *time.Location
	}

	// Scanner resolves decoded scan inputs into ledger writes, one at a time.
	Scanner struct {
		finder   StudentFinder
		ledger   Ledger
		notifier ArrivalNotifier
		logger   core.Logger
		conf     ScannerConfig

		mutex     sync.Mutex
		last      *Result
		lastInput string
	}
)

func NewScanner(finder StudentFinder, ledger Ledger, notifier ArrivalNotifier, logger core.Logger, conf ScannerConfig) *Scanner {
	if conf.Location == nil {
		conf.Location = time.Local
	}
	return &Scanner{
		finder:   finder,
		ledger:   ledger,
		notifier: notifier,
		logger:   logger,
		conf:     conf,
	}
}

// Scan runs one resolution pass for `input`.
// Unknown codes yield an *UnknownCodeError and leave the ledger untouched.
func (s *Scanner) Scan(input string) (Result, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.resolve(core.CleanString(input))
}

// Type handles the manual entry field: `text` is resolved as soon as it reaches the
// configured code length. The boolean reports whether a resolution pass ran.
func (s *Scanner) Type(text string) (Result, bool, error) {
	text = core.CleanString(text)
	if s.conf.CodeLength <= 0 || utf8.RuneCountInString(text) < s.conf.CodeLength {
		return Result{}, false, nil
	}
	res, err := s.Scan(text)
	return res, true, err
}

// Next forgets the last resolved scan so the same code can be resolved again.
func (s *Scanner) Next() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.last = nil
	s.lastInput = ""
}

// Last returns the last resolved scan, if any.
func (s *Scanner) Last() (Result, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.last == nil {
		return Result{}, false
	}
	return *s.last, true
}

func (s *Scanner) resolve(input string) (Result, error) {
	if input == "" {
		return Result{Outcome: OutcomeIgnored}, nil
	}
	now := NowFunc()
	today := DateOf(now, s.conf.Location)

	// a repeat of the last resolved input on the same day is answered from memory
	if s.last != nil && s.last.Record.Date == today && (input == s.lastInput || s.last.Student.Matches(input)) {
		return s.duplicate(s.last.Student, s.last.Record), nil
	}

	student, err := s.finder.Find(input)
	if err != nil {
		if errors.Cause(err) == roster.ErrNotFound {
			return Result{}, &UnknownCodeError{Code: input}
		}
		return Result{}, errors.Wrap(err, "looking up student")
	}

	existing, err := s.ledger.GetRecord(student.ID, today)
	switch errors.Cause(err) {
	case nil:
		return s.remember(input, s.duplicate(student, existing)), nil
	case ErrNoRecord:
	default:
		return Result{}, errors.Wrap(err, "checking today's record")
	}

	rec := NewRecord(student.ID, now, StatusPresent, s.conf.Location)
	if err := s.ledger.Append(rec); err != nil {
		if errors.Cause(err) != ErrDuplicateDate {
			return Result{}, errors.Wrap(err, "recording attendance")
		}
		// recorded by another entry point since the check above
		if existing, err = s.ledger.GetRecord(student.ID, today); err != nil {
			return Result{}, errors.Wrap(err, "reading today's record")
		}
		return s.remember(input, s.duplicate(student, existing)), nil
	}

	res := Result{
		Outcome: OutcomeRecorded,
		Student: student,
		Record:  rec,
		Message: "Verifikasi Berhasil",
	}
	if s.notifier != nil {
		res.Notified = s.notifier.Arrived(student, now)
	}
	s.logger.Debug(fmt.Sprintf("recorded arrival of %s (%s) at %s", student.Name, student.Code, rec.TimeIn(s.conf.Location)))
	return s.remember(input, res), nil
}

func (s *Scanner) duplicate(st roster.Student, rec Record) Result {
	return Result{
		Outcome: OutcomeDuplicate,
		Student: st,
		Record:  rec,
		Message: fmt.Sprintf("%s sudah tercatat hadir pukul %s.", st.Name, rec.TimeIn(s.conf.Location)),
	}
}

func (s *Scanner) remember(input string, res Result) Result {
	s.last = &res
	s.lastInput = input
	return res
}
