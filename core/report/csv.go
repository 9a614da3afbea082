package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// WriteDailyCSV writes the sheets one after the other, each preceded by the header.
func WriteDailyCSV(w io.Writer, sheets ...DailySheet) error {
	cw := csv.NewWriter(w)
	for _, sheet := range sheets {
		if err := cw.Write(DailyHeader); err != nil {
			return errors.Wrap(err, "writing daily header")
		}
		for _, r := range sheet.Rows {
			record := []string{strconv.Itoa(r.No), r.Code, r.Name, r.Class, r.Date, r.TimeIn, r.Status}
			if err := cw.Write(record); err != nil {
				return errors.Wrap(err, "writing daily row")
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMonthlyCSV writes each matrix with its headers.
func WriteMonthlyCSV(w io.Writer, matrices ...MonthlyMatrix) error {
	cw := csv.NewWriter(w)
	for _, m := range matrices {
		if err := cw.Write(m.Headers); err != nil {
			return errors.Wrap(err, "writing monthly header")
		}
		for _, r := range m.Rows {
			record := make([]string, 0, len(m.Headers))
			record = append(record, strconv.Itoa(r.No), r.Code, r.Name)
			record = append(record, r.Cells...)
			record = append(record, strconv.Itoa(r.H), strconv.Itoa(r.S), strconv.Itoa(r.I), strconv.Itoa(r.A))
			if err := cw.Write(record); err != nil {
				return errors.Wrap(err, "writing monthly row")
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
