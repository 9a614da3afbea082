package report

import (
	"time"

	"github.com/trezcool/siabdul/core/attendance"
)

type DailyRow struct {
	No     int    `json:"no"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Class  string `json:"class"`
	Date   string `json:"date"`
	TimeIn string `json:"time_in"`
	Status string `json:"status"`
}

type DailySheet struct {
	Class string     `json:"class"`
	Date  string     `json:"date"`
	Rows  []DailyRow `json:"rows"`
}

// DailyHeader is the column layout of a daily sheet.
var DailyHeader = []string{"No", "Code", "Name", "Class", "Date", "Time In", "Status"}

// BuildDaily projects `view` into one row per student of `class`, in roster order.
// Students without a record on `date` get LabelNoInfo.
func BuildDaily(view View, class string, date attendance.Date, loc *time.Location) DailySheet {
	idx := view.index()
	students := view.ByClass(class)

	sheet := DailySheet{Class: class, Date: date.String(), Rows: make([]DailyRow, 0, len(students))}
	for i, st := range students {
		row := DailyRow{
			No:     i + 1,
			Code:   st.Code,
			Name:   st.Name,
			Class:  st.Class,
			Date:   sheet.Date,
			TimeIn: noTime,
			Status: LabelNoInfo,
		}
		if rec, ok := idx[recordKey{st.ID, date}]; ok {
			row.TimeIn = rec.TimeIn(loc)
			row.Status = StatusLabel(rec.Status)
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}
