package report

import (
	"fmt"
	"math"

	"github.com/trezcool/siabdul/core/attendance"
)

type ClassStat struct {
	Class   string `json:"class"`
	Total   int    `json:"total"`
	Present int    `json:"present"`
	Rate    int    `json:"rate"` // percent
}

// Stats is the dashboard overview of one day. Present includes late arrivals,
// NoInfo counts students without any record.
type Stats struct {
	Date       string      `json:"date"`
	Total      int         `json:"total"`
	Present    int         `json:"present"`
	Sick       int         `json:"sick"`
	Permission int         `json:"permission"`
	Absent     int         `json:"absent"`
	NoInfo     int         `json:"no_info"`
	Rate       int         `json:"rate"` // percent
	Classes    []ClassStat `json:"classes"`
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n) * 100 / float64(total)))
}

func BuildStats(view View, classes []string, date attendance.Date) Stats {
	idx := view.index()
	stats := Stats{Date: date.String(), Total: len(view.Students)}

	perClass := make(map[string]*ClassStat, len(classes))
	stats.Classes = make([]ClassStat, len(classes))
	for i, class := range classes {
		stats.Classes[i].Class = class
		perClass[class] = &stats.Classes[i]
	}

	for _, st := range view.Students {
		cs := perClass[st.Class]
		if cs != nil {
			cs.Total++
		}
		rec, ok := idx[recordKey{st.ID, date}]
		if !ok {
			stats.NoInfo++
			continue
		}
		switch rec.Status {
		case attendance.StatusPresent, attendance.StatusLate:
			stats.Present++
			if cs != nil {
				cs.Present++
			}
		case attendance.StatusSick:
			stats.Sick++
		case attendance.StatusPermission:
			stats.Permission++
		case attendance.StatusAbsent:
			stats.Absent++
		}
	}

	stats.Rate = percent(stats.Present, stats.Total)
	for i := range stats.Classes {
		stats.Classes[i].Rate = percent(stats.Classes[i].Present, stats.Classes[i].Total)
	}
	return stats
}

// SummaryData is the payload handed to the report summarizer.
type SummaryData struct {
	Date           string   `json:"date"`
	TotalStudents  int      `json:"totalStudents"`
	PresentCount   int      `json:"presentCount"`
	AbsentCount    int      `json:"absentCount"`
	PresentNames   []string `json:"presentNames"`
	AbsentNames    []string `json:"absentNames"`
	AttendanceRate string   `json:"attendanceRate"`
}

// BuildSummaryData splits the students of `view` into present (present or late on
// `date`) and absent (everyone else).
func BuildSummaryData(view View, date attendance.Date) SummaryData {
	idx := view.index()
	data := SummaryData{
		Date:          date.String(),
		TotalStudents: len(view.Students),
		PresentNames:  make([]string, 0),
		AbsentNames:   make([]string, 0),
	}
	for _, st := range view.Students {
		rec, ok := idx[recordKey{st.ID, date}]
		if ok && (rec.Status == attendance.StatusPresent || rec.Status == attendance.StatusLate) {
			data.PresentNames = append(data.PresentNames, st.Name)
		} else {
			data.AbsentNames = append(data.AbsentNames, st.Name)
		}
	}
	data.PresentCount = len(data.PresentNames)
	data.AbsentCount = len(data.AbsentNames)

	rate := 0.0
	if data.TotalStudents > 0 {
		rate = float64(data.PresentCount) * 100 / float64(data.TotalStudents)
	}
	data.AttendanceRate = fmt.Sprintf("%.1f%%", rate)
	return data
}
