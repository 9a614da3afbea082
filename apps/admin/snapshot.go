package main

import (
	"bytes"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/siabdul/apps/shared"
	"github.com/trezcool/siabdul/core/snapshot"
)

const zstdExt = ".zst"

func (cli *commandLine) snapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export, import and compress backup files",
	}
	cmd.AddCommand(cli.snapshotExportCommand())
	cmd.AddCommand(cli.snapshotImportCommand())
	cmd.AddCommand(cli.snapshotCompressCommand())
	return cmd
}

func (cli *commandLine) snapshotExportCommand() *cobra.Command {
	var compress bool
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write a backup of the data file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if compress && !strings.HasSuffix(path, zstdExt) {
				path += zstdExt
			}
			if err := cli.app.SaveSnapshot(path, compress); err != nil {
				return err
			}
			cli.printf("exported %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&compress, "compress", "z", false, "zstd-compress the backup")
	return cmd
}

func (cli *commandLine) snapshotImportCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the data with a backup (plain or zstd)",
		Long: `Replace the data with a backup (plain or zstd).

Sections missing from the backup keep their current data. Invalid entries are
skipped and reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.confirm("The current data will be replaced.", yes); err != nil {
				return err
			}
			report, err := cli.app.LoadSnapshot(args[0])
			if err != nil {
				return err
			}
			cli.dirty = true
			cli.printf("import: %s\n", shared.Describe(report))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// snapshotCompressCommand converts a plain backup into `<file>.zst` without loading it.
func (cli *commandLine) snapshotCompressCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compress <file>",
		Short: "Write a zstd-compressed copy of a plain backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			data, err := os.ReadFile(src)
			if err != nil {
				return errors.Wrap(err, "reading backup")
			}
			if snapshot.IsCompressed(data) {
				return errors.Errorf("%s is already compressed", src)
			}
			doc, err := snapshot.Decode(bytes.NewReader(data))
			if err != nil {
				return err
			}

			dst := src + zstdExt
			f, err := os.Create(dst)
			if err != nil {
				return errors.Wrap(err, "creating compressed backup")
			}
			if err := snapshot.Encode(f, doc, true); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return errors.Wrap(err, "closing compressed backup")
			}
			cli.printf("compressed %s (%d bytes) into %s\n", src, len(data), dst)
			return nil
		},
	}
}
