package report

import (
	"strconv"
	"time"
)

type Column struct {
	Day     int  `json:"day"`
	Weekend bool `json:"weekend"`
}

type MonthlyRow struct {
	No    int      `json:"no"`
	Code  string   `json:"code"`
	Name  string   `json:"name"`
	Cells []string `json:"cells"`
	H     int      `json:"h"`
	S     int      `json:"s"`
	I     int      `json:"i"`
	A     int      `json:"a"`
}

type MonthlyMatrix struct {
	Class   string       `json:"class"`
	Month   string       `json:"month"`
	Headers []string     `json:"headers"`
	Columns []Column     `json:"columns"`
	Rows    []MonthlyRow `json:"rows"`
}

// MonthlyHeaders returns No, Code, Name, one column per day of `m`, then H, S, I, A.
func MonthlyHeaders(m Month) []string {
	days := m.Days()
	headers := make([]string, 0, days+7)
	headers = append(headers, "No", "Code", "Name")
	for d := 1; d <= days; d++ {
		headers = append(headers, strconv.Itoa(d))
	}
	return append(headers, CodePresent, CodeSick, CodePermission, CodeAbsent)
}

// BuildMonthly projects `view` into the per-day matrix of `class` for `m`.
// Summary columns are counted from the cells themselves.
func BuildMonthly(view View, class string, m Month) MonthlyMatrix {
	idx := view.index()
	students := view.ByClass(class)
	days := m.Days()

	matrix := MonthlyMatrix{
		Class:   class,
		Month:   m.String(),
		Headers: MonthlyHeaders(m),
		Columns: make([]Column, 0, days),
		Rows:    make([]MonthlyRow, 0, len(students)),
	}
	for d := 1; d <= days; d++ {
		wd := m.Day(d).Weekday()
		matrix.Columns = append(matrix.Columns, Column{Day: d, Weekend: wd == time.Saturday || wd == time.Sunday})
	}

	for i, st := range students {
		row := MonthlyRow{No: i + 1, Code: st.Code, Name: st.Name, Cells: make([]string, days)}
		for d := 1; d <= days; d++ {
			cell := NoRecord
			if rec, ok := idx[recordKey{st.ID, m.Day(d)}]; ok {
				cell = StatusCode(rec.Status)
			}
			row.Cells[d-1] = cell
		}
		row.tally()
		matrix.Rows = append(matrix.Rows, row)
	}
	return matrix
}

func (r *MonthlyRow) tally() {
	r.H, r.S, r.I, r.A = 0, 0, 0, 0
	for _, c := range r.Cells {
		switch c {
		case CodePresent:
			r.H++
		case CodeSick:
			r.S++
		case CodePermission:
			r.I++
		case CodeAbsent:
			r.A++
		}
	}
}
