package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/siabdul/apps/shared"
)

func (cli *commandLine) seedCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Add the classes and students of a YAML roster seed",
		Long: `Add the classes and students of a YAML roster seed.

Without --file, the configured seed file is used, and the built-in demo roster
when none is configured. Students whose code or ID already exists are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = cli.conf.SeedFile
			}
			report, err := cli.app.Seed(file)
			if err != nil {
				return err
			}
			cli.dirty = report.Applied > 0 || cli.dirty
			cli.printf("seed: %s\n", shared.Describe(report))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "roster seed file")
	return cmd
}

func (cli *commandLine) importStudentsCommand() *cobra.Command {
	var class string
	cmd := &cobra.Command{
		Use:   "import-students <file.csv>",
		Short: "Import students from a CSV file into a class",
		Long: `Import students from a CSV file into a class.

The header must contain Name and NISN (or Code) columns, ParentPhone is optional.
Invalid or duplicate rows are skipped and reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, "opening import file")
			}
			defer f.Close()

			report, err := cli.app.Roster.ImportCSV(class, f)
			if err != nil {
				return err
			}
			cli.dirty = report.Applied > 0 || cli.dirty
			cli.printf("import: %s\n", shared.Describe(report))
			return nil
		},
	}
	cmd.Flags().StringVarP(&class, "class", "c", "", "destination class (created when missing)")
	return cmd
}
