package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (cli *commandLine) resetAttendanceCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset-attendance",
		Short: "Delete every attendance record, keeping the roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.confirm("All attendance records will be deleted.", yes); err != nil {
				return err
			}
			if err := cli.app.Attendance.Reset(); err != nil {
				return errors.Wrap(err, "resetting attendance")
			}
			cli.dirty = true
			cli.printf("attendance reset\n")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
