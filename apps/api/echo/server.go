package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/attendance"
	"github.com/trezcool/siabdul/core/dispatch"
	"github.com/trezcool/siabdul/core/report"
	"github.com/trezcool/siabdul/core/roster"
	"github.com/trezcool/siabdul/core/settings"
	"github.com/trezcool/siabdul/core/snapshot"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		DisableReqLogs bool

		RosterSvc     *roster.Service
		Scanner       *attendance.Scanner
		AttendanceSvc *attendance.Service
		Reports       *report.Engine
		DispatchSvc   *dispatch.Service
		SettingsSvc   *settings.Service
		SnapshotSvc   *snapshot.Service
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORS())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.SignalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.GET("/", s.home)

	v1 := s.app.Group("/api")
	registerScanAPI(v1, s.deps.Scanner)
	registerAttendanceAPI(v1, s.deps.AttendanceSvc, s.deps.RosterSvc)
	registerStudentAPI(v1, s.deps.RosterSvc)
	registerReportAPI(v1, s.deps.Reports, s.deps.AttendanceSvc, conf)
	registerSettingsAPI(v1, s.deps.SettingsSvc)
	registerNotificationAPI(v1, s.deps.DispatchSvc, s.deps.RosterSvc, s.deps.AttendanceSvc)
	registerSnapshotAPI(v1, s.deps.SnapshotSvc)
}

// Start serves until the listener fails. The failure is reported on Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the application to stop gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
