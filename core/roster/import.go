package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/siabdul/core"
)

const importSection = "students"

var (
	// ImportHeader is the column layout of the student import template.
	ImportHeader = []string{"Name", "NISN", "ParentPhone"}

	errMissingColumns = errors.New("header must contain Name and NISN (or Code) columns")
)

// DefaultAvatar returns a generated avatar URL for `name`.
func DefaultAvatar(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random&color=fff&size=200"
}

// ImportCSV adds the students listed in `r` to `class`.
// Rows without a name or code, with an invalid phone, or with a code that already
// exists (in the roster or earlier in the file) are skipped and reported.
func (svc *Service) ImportCSV(class string, r io.Reader) (core.ImportReport, error) {
	var report core.ImportReport

	class = core.CleanName(class)
	if class == "" {
		return report, core.NewValidationError(ErrClassNameBlank, core.FieldError{Field: "class", Error: ErrClassNameBlank.Error()})
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return report, nil
	}
	if err != nil {
		return report, errors.Wrap(err, "reading import header")
	}
	cols := indexColumns(header)
	nameCol, okName := cols["name"]
	codeCol, okCode := cols["nisn"]
	if !okCode {
		codeCol, okCode = cols["code"]
	}
	if !okName || !okCode {
		report.Reject(importSection, 0, errMissingColumns.Error())
		return report, nil
	}
	phoneCol, hasPhone := cols["parentphone"]

	seen := make(map[string]bool)
	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			report.Reject(importSection, row, err.Error())
			continue
		}

		ns := NewStudent{
			Name:  cell(record, nameCol),
			Code:  core.DigitsOnly(cell(record, codeCol)),
			Class: class,
		}
		if hasPhone {
			ns.GuardianPhone = cell(record, phoneCol)
		}
		if core.CleanName(ns.Name) == "" || ns.Code == "" {
			report.Reject(importSection, row, "name and NISN are required")
			continue
		}
		if seen[ns.Code] {
			report.Reject(importSection, row, fmt.Sprintf("duplicate code %s in file", ns.Code))
			continue
		}
		seen[ns.Code] = true

		if err := ns.Validate(svc); err != nil {
			report.Reject(importSection, row, describe(err))
			continue
		}
		ns.Avatar = DefaultAvatar(ns.Name)
		if _, err := svc.Create(ns); err != nil {
			report.Reject(importSection, row, describe(err))
			continue
		}
		report.Applied++
	}

	svc.logger.Info(fmt.Sprintf("imported %d student(s) into %s, %d row(s) skipped", report.Applied, class, len(report.Rejected)))
	return report, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.ReplaceAll(core.CleanString(h), " ", ""))
		key = strings.TrimPrefix(key, "\ufeff") // BOM
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	return cols
}

func cell(record []string, i int) string {
	if i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}

// describe flattens validation errors into a single line.
func describe(err error) string {
	switch e := errors.Cause(err).(type) {
	case *core.ValidationError:
		if len(e.Fields) > 0 {
			parts := make([]string, 0, len(e.Fields))
			for _, f := range e.Fields {
				parts = append(parts, f.Field+": "+f.Error)
			}
			return strings.Join(parts, "; ")
		}
	case validator.ValidationErrors:
		parts := make([]string, 0, len(e))
		for fld, msg := range core.TranslateValidationErrors(e) {
			parts = append(parts, fld+": "+msg)
		}
		sort.Strings(parts)
		return strings.Join(parts, "; ")
	}
	return err.Error()
}
