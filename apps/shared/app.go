// Package shared wires the application graph used by the API server and the admin CLI.
package shared

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/pkg/errors"

	echoapi "github.com/trezcool/siabdul/apps/api/echo"
	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/attendance"
	"github.com/trezcool/siabdul/core/dispatch"
	"github.com/trezcool/siabdul/core/report"
	"github.com/trezcool/siabdul/core/roster"
	"github.com/trezcool/siabdul/core/settings"
	"github.com/trezcool/siabdul/core/snapshot"
	emailsvc "github.com/trezcool/siabdul/services/email"
	sumsvc "github.com/trezcool/siabdul/services/summarizer"
	wasvc "github.com/trezcool/siabdul/services/whatsapp"
	"github.com/trezcool/siabdul/storage/database/inmem"
)

type (
	// Adapters are the outbound integrations. Nil Gateway, Opener or Simulator
	// are replaced by the default implementation.
	Adapters struct {
		Mailer     core.EmailService
		Summarizer report.Summarizer
		Opener     dispatch.LinkOpener
		Gateway    dispatch.Gateway
		Simulator  dispatch.Simulator
	}

	App struct {
		DB *inmemdb.DB

		Roster     *roster.Service
		Attendance *attendance.Service
		Scanner    *attendance.Scanner
		Reports    *report.Engine
		Dispatch   *dispatch.Service
		Outbox     *dispatch.Outbox
		Settings   *settings.Service
		Snapshot   *snapshot.Service
	}
)

// NewMailer prints e-mails in debug mode and sends them through sendgrid otherwise.
func NewMailer(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(log.New(os.Stdout, "MAIL : ", log.LstdFlags), logger, conf)
	}
	return emailsvc.NewSendgridService(logger, conf)
}

func DefaultAdapters(conf *core.Config, logger core.Logger) Adapters {
	return Adapters{
		Mailer:     NewMailer(conf, logger),
		Summarizer: sumsvc.NewGemini(conf.Summarizer, nil, logger),
	}
}

// New builds every service over `db`. Dispatch components log to `dispatchLogger`.
func New(conf *core.Config, db *inmemdb.DB, ad Adapters, logger, dispatchLogger core.Logger) *App {
	if dispatchLogger == nil {
		dispatchLogger = logger
	}
	logs := inmemdb.NewLogRepository(db)
	if ad.Opener == nil {
		ad.Opener = wasvc.NewLinkOpener(conf.Dispatch.LinkOpener)
	}
	if ad.Gateway == nil {
		ad.Gateway = wasvc.NewGatewayClient(&http.Client{Timeout: conf.Dispatch.Timeout})
	}
	if ad.Simulator == nil {
		ad.Simulator = wasvc.NewSimulator(logs, conf.Dispatch.SimulatedDelay, dispatchLogger)
	}

	app := &App{DB: db}
	app.Roster = roster.NewService(inmemdb.NewStudentRepository(db), logger)
	ledger := inmemdb.NewLedger(db)
	app.Attendance = attendance.NewService(ledger, app.Roster, logger, conf.Location)
	app.Settings = settings.NewService(inmemdb.NewSettingsRepository(db, settings.Defaults(conf)), logger)

	router := dispatch.NewRouter(
		ad.Opener,
		ad.Gateway,
		ad.Simulator,
		dispatch.MessageRenderer{AppName: conf.AppName, Location: conf.Location},
		dispatchLogger,
	)
	app.Dispatch = dispatch.NewService(router, app.Settings, logs, dispatchLogger)
	app.Outbox = dispatch.NewOutbox(app.Dispatch, conf.Dispatch.QueueSize, conf.Dispatch.Timeout, dispatchLogger)

	app.Scanner = attendance.NewScanner(app.Roster, ledger, app.Outbox, logger, attendance.ScannerConfig{
		CodeLength: conf.CodeLength,
		Location:   conf.Location,
	})
	app.Reports = report.NewEngine(inmemdb.NewReportSource(db), ad.Summarizer, ad.Mailer, logger, conf)
	app.Snapshot = snapshot.NewService(inmemdb.NewSnapshotStore(db), logger, conf.Location)
	return app
}

// Seed loads the roster seed at `path` (the built-in demo roster when empty).
func (app *App) Seed(path string) (core.ImportReport, error) {
	seed, err := roster.LoadSeed(path)
	if err != nil {
		return core.ImportReport{}, err
	}
	report, err := app.Roster.ApplySeed(seed)
	if err != nil {
		return report, errors.Wrap(err, "applying seed")
	}
	return report, nil
}

// LoadSnapshot replaces the state with the snapshot file at `path`.
func (app *App) LoadSnapshot(path string) (core.ImportReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.ImportReport{}, errors.Wrap(err, "opening snapshot")
	}
	defer f.Close()

	doc, err := snapshot.Decode(f)
	if err != nil {
		return core.ImportReport{}, err
	}
	return app.Snapshot.Import(doc, true /* confirmed */)
}

// SaveSnapshot exports the state to `path`.
func (app *App) SaveSnapshot(path string, compress bool) error {
	doc, err := app.Snapshot.Export()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating snapshot")
	}
	if err := snapshot.Encode(f, doc, compress); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (app *App) ServerDeps(conf *core.Config, logger core.Logger) echoapi.ServerDeps {
	return echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		RosterSvc:     app.Roster,
		Scanner:       app.Scanner,
		AttendanceSvc: app.Attendance,
		Reports:       app.Reports,
		DispatchSvc:   app.Dispatch,
		SettingsSvc:   app.Settings,
		SnapshotSvc:   app.Snapshot,
	}
}

// Describe formats an import report for the operator.
func Describe(r core.ImportReport) string {
	s := fmt.Sprintf("%d applied, %d rejected", r.Applied, len(r.Rejected))
	for _, rej := range r.Rejected {
		s += "\n  " + rej.Error()
	}
	return s
}
