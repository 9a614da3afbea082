package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/siabdul/apps/shared"
	"github.com/trezcool/siabdul/core"
)

const defaultDataFile = "siabdul_data.json"

var (
	readConfirmationFunc = readConfirmation // mockable

	errAborted     = errors.New("aborted")
	errNotTerminal = errors.New("confirmation requires a terminal; pass --yes to skip it")
)

// commandLine runs admin commands against the state persisted in the data file.
// The file is loaded before each command and written back after a mutating one.
type commandLine struct {
	conf   *core.Config
	app    *shared.App
	logger core.Logger
	out    io.Writer

	dataFile string
	dirty    bool
}

func (cli *commandLine) run(args []string) error {
	cmd := cli.rootCommand()
	cmd.SetOut(cli.out)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func (cli *commandLine) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "admin",
		Short:         cli.conf.AppName + " administration",
		Long:          "Maintenance commands for the attendance data file: seeding, imports, reports and backups.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.load()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return cli.save()
		},
	}
	cmd.PersistentFlags().StringVar(&cli.dataFile, "data", defaultDataFile, "snapshot file holding the school data (.zst is compressed)")

	cmd.AddCommand(cli.seedCommand())
	cmd.AddCommand(cli.importStudentsCommand())
	cmd.AddCommand(cli.exportReportCommand())
	cmd.AddCommand(cli.resetAttendanceCommand())
	cmd.AddCommand(cli.snapshotCommand())
	return cmd
}

// load restores the data file if it exists.
func (cli *commandLine) load() error {
	if _, err := os.Stat(cli.dataFile); os.IsNotExist(err) {
		return nil
	}
	report, err := cli.app.LoadSnapshot(cli.dataFile)
	if err != nil {
		return errors.Wrapf(err, "loading %s", cli.dataFile)
	}
	if len(report.Rejected) > 0 {
		cli.logger.Warn("data file loaded with rejections: " + shared.Describe(report))
	}
	return nil
}

func (cli *commandLine) save() error {
	if !cli.dirty {
		return nil
	}
	if err := cli.app.SaveSnapshot(cli.dataFile, strings.HasSuffix(cli.dataFile, ".zst")); err != nil {
		return errors.Wrapf(err, "saving %s", cli.dataFile)
	}
	cli.dirty = false
	return nil
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	fmt.Fprintf(cli.out, format, args...)
}

// confirm asks the operator to type "yes" unless `skip` is set.
func (cli *commandLine) confirm(question string, skip bool) error {
	if skip {
		return nil
	}
	answer, err := readConfirmationFunc(question + ` Type "yes" to continue: `)
	if err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(answer), "yes") {
		return errAborted
	}
	return nil
}

func readConfirmation(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errNotTerminal
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return "", errors.Wrap(err, "preparing terminal")
	}
	defer func() { _ = term.Restore(fd, state) }()

	screen := struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}
	line, err := term.NewTerminal(screen, prompt).ReadLine()
	fmt.Print("\r\n")
	return line, err
}
