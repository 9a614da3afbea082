package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	echoapi "github.com/trezcool/siabdul/apps/api/echo"
	"github.com/trezcool/siabdul/apps/shared"
	"github.com/trezcool/siabdul/core"
	logsvc "github.com/trezcool/siabdul/services/logger"
	"github.com/trezcool/siabdul/storage/database/inmem"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")

	dispatchLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DISPATCH : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dispatchLogger.Enable(!conf.Debug && conf.RollbarToken != "")

	// set up DB
	db, err := inmemdb.Open()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}

	// set up services
	app := shared.New(conf, db, shared.DefaultAdapters(conf, logger), logger, dispatchLogger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	report, err := app.Seed(conf.SeedFile)
	if err != nil {
		logger.Fatal(fmt.Sprintf("seeding roster: %v", err), err)
	}
	logger.Info("Roster seeded: " + shared.Describe(report))

	// =========================================================================
	// Start Dispatch Outbox

	ctx, stopOutbox := context.WithCancel(context.Background())
	defer stopOutbox()

	go func() {
		_ = app.Outbox.Run(ctx)
	}()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.Publish("outbox_pending", expvar.Func(func() interface{} { return app.Outbox.Pending() }))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(app.ServerDeps(conf, logger))

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
