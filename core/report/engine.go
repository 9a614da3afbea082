package report

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/attendance"
)

// Engine computes every report from a fresh snapshot of the ledger. Nothing is cached.
type Engine struct {
	source     Source
	summarizer Summarizer
	mailer     core.EmailService
	logger     core.Logger
	loc        *time.Location
	schoolName string
}

func NewEngine(source Source, summarizer Summarizer, mailer core.EmailService, logger core.Logger, conf *core.Config) *Engine {
	loc := conf.Location
	if loc == nil {
		loc = time.Local
	}
	return &Engine{
		source:     source,
		summarizer: summarizer,
		mailer:     mailer,
		logger:     logger,
		loc:        loc,
		schoolName: conf.SchoolName,
	}
}

func (eng *Engine) classes(class string) ([]string, error) {
	if class != "" {
		return []string{class}, nil
	}
	return eng.source.Classes()
}

// Daily returns one sheet for `class`, or one per class when class is empty.
func (eng *Engine) Daily(class string, date attendance.Date) ([]DailySheet, error) {
	classes, err := eng.classes(class)
	if err != nil {
		return nil, err
	}
	view, err := eng.source.Snapshot(class, date, date)
	if err != nil {
		return nil, errors.Wrap(err, "reading ledger")
	}
	sheets := make([]DailySheet, 0, len(classes))
	for _, c := range classes {
		sheets = append(sheets, BuildDaily(view, c, date, eng.loc))
	}
	return sheets, nil
}

// Monthly returns one matrix for `class`, or one per class when class is empty.
func (eng *Engine) Monthly(class string, m Month) ([]MonthlyMatrix, error) {
	classes, err := eng.classes(class)
	if err != nil {
		return nil, err
	}
	view, err := eng.source.Snapshot(class, m.First(), m.Last())
	if err != nil {
		return nil, errors.Wrap(err, "reading ledger")
	}
	matrices := make([]MonthlyMatrix, 0, len(classes))
	for _, c := range classes {
		matrices = append(matrices, BuildMonthly(view, c, m))
	}
	return matrices, nil
}

func (eng *Engine) Stats(date attendance.Date) (Stats, error) {
	classes, err := eng.source.Classes()
	if err != nil {
		return Stats{}, err
	}
	view, err := eng.source.Snapshot("", date, date)
	if err != nil {
		return Stats{}, errors.Wrap(err, "reading ledger")
	}
	return BuildStats(view, classes, date), nil
}

func (eng *Engine) SummaryData(date attendance.Date) (SummaryData, error) {
	view, err := eng.source.Snapshot("", date, date)
	if err != nil {
		return SummaryData{}, errors.Wrap(err, "reading ledger")
	}
	return BuildSummaryData(view, date), nil
}

// Summary asks the summarizer for the day's report. Summarizer failures are not
// returned: they are logged and replaced by a fallback text.
func (eng *Engine) Summary(ctx context.Context, date attendance.Date) (Summary, error) {
	data, err := eng.SummaryData(date)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Data: data}
	if eng.summarizer == nil {
		sum.Text = FailureText(ErrSummarizerDisabled)
		return sum, nil
	}
	text, err := eng.summarizer.Summarize(ctx, data)
	switch {
	case err != nil:
		if !errors.Is(err, ErrSummarizerDisabled) {
			eng.logger.Error("generating summary report", err)
		}
		sum.Text = FailureText(err)
	case strings.TrimSpace(text) == "":
		sum.Text = textNoReply
	default:
		sum.Text = text
		sum.Generated = true
	}
	return sum, nil
}

// EmailSummary generates the day's summary and mails it to `to`.
func (eng *Engine) EmailSummary(ctx context.Context, date attendance.Date, to ...mail.Address) (Summary, error) {
	sum, err := eng.Summary(ctx, date)
	if err != nil {
		return Summary{}, err
	}
	if len(to) == 0 {
		return sum, core.NewValidationError(nil, core.FieldError{Field: "recipients", Error: "at least one recipient is required"})
	}

	subject := fmt.Sprintf("Attendance report %s", date)
	if eng.schoolName != "" {
		subject = eng.schoolName + ": " + subject
	}
	msg := &core.EmailMessage{To: to, Subject: subject, Markdown: sum.Text}
	if err := msg.Render(); err != nil {
		return sum, errors.Wrap(err, "rendering summary e-mail")
	}
	eng.mailer.SendMessages(msg)
	return sum, nil
}
