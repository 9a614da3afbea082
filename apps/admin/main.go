package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/siabdul/apps/shared"
	"github.com/trezcool/siabdul/core"
	logsvc "github.com/trezcool/siabdul/services/logger"
	"github.com/trezcool/siabdul/storage/database/inmem"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")

	db, err := inmemdb.Open()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}

	// start CLI
	cli := &commandLine{
		conf:   conf,
		app:    shared.New(conf, db, shared.DefaultAdapters(conf, logger), logger, nil),
		logger: logger,
		out:    os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
