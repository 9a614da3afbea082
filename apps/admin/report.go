package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/attendance"
	"github.com/trezcool/siabdul/core/report"
)

const (
	dailyReport   = "daily"
	monthlyReport = "monthly"
)

func (cli *commandLine) exportReportCommand() *cobra.Command {
	var class, date, month string
	cmd := &cobra.Command{
		Use:   "export-report daily|monthly",
		Short: "Write a daily or monthly attendance report as CSV to stdout",
		Long: `Write a daily or monthly attendance report as CSV to stdout.

One sheet is written per class, or only the --class one. The daily report is for
--date (YYYY-MM-DD) and the monthly one for --month (YYYY-MM), both defaulting to today.`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{dailyReport, monthlyReport},
		RunE: func(cmd *cobra.Command, args []string) error {
			day := cli.app.Attendance.Today()
			if date != "" {
				d, err := attendance.ParseDate(date)
				if err != nil {
					return errors.Wrapf(err, "--date %q", date)
				}
				day = d
			}
			class = core.CleanName(class)

			switch args[0] {
			case dailyReport:
				sheets, err := cli.app.Reports.Daily(class, day)
				if err != nil {
					return errors.Wrap(err, "building daily report")
				}
				return report.WriteDailyCSV(cmd.OutOrStdout(), sheets...)
			default:
				m := report.MonthOf(day)
				if month != "" {
					var err error
					if m, err = report.ParseMonth(month); err != nil {
						return errors.Wrapf(err, "--month %q", month)
					}
				}
				matrices, err := cli.app.Reports.Monthly(class, m)
				if err != nil {
					return errors.Wrap(err, "building monthly report")
				}
				return report.WriteMonthlyCSV(cmd.OutOrStdout(), matrices...)
			}
		},
	}
	cmd.Flags().StringVarP(&class, "class", "c", "", "only report this class")
	cmd.Flags().StringVarP(&date, "date", "d", "", "report day (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&month, "month", "m", "", "report month (YYYY-MM)")
	return cmd
}
