package roster

import (
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/siabdul/core"
)

type Student struct {
	ID            string `json:"id"`   // legacy identifier, also accepted by the scanner
	Code          string `json:"code"` // NISN, digits only
	Name          string `json:"name"`
	Class         string `json:"class"`
	Avatar        string `json:"avatar,omitempty"`
	GuardianPhone string `json:"guardian_phone,omitempty"`
}

func (s Student) HasGuardian() bool {
	return s.GuardianPhone != ""
}

// Matches reports whether `key` is the student's code or legacy identifier.
func (s Student) Matches(key string) bool {
	return key != "" && (s.Code == key || s.ID == key)
}

// NewID generates a legacy-style student identifier.
func NewID() string {
	return "STU-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	ID            string `json:"id" yaml:"id"`
	Code          string `json:"code" yaml:"code" validate:"required,digitsonly"`
	Name          string `json:"name" yaml:"name" validate:"required"`
	Class         string `json:"class" yaml:"class" validate:"required"`
	Avatar        string `json:"avatar" yaml:"avatar" validate:"omitempty,url"`
	GuardianPhone string `json:"guardian_phone" yaml:"guardian_phone" validate:"omitempty,intlphone"`
}

func (ns *NewStudent) Clean() {
	ns.ID = core.CleanString(ns.ID)
	ns.Code = core.CleanString(ns.Code)
	ns.Name = core.CleanName(ns.Name)
	ns.Class = core.CleanName(ns.Class)
	ns.Avatar = core.CleanString(ns.Avatar)
	ns.GuardianPhone = core.DigitsOnly(ns.GuardianPhone)
}

func (ns *NewStudent) Validate(svc *Service) error {
	ns.Clean()
	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkUniqueness(ns.Code, ns.ID)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Empty fields keep their current value.
type UpdateStudent struct {
	Code          string  `json:"code" validate:"omitempty,digitsonly"`
	Name          string  `json:"name"`
	Class         string  `json:"class"`
	Avatar        *string `json:"avatar"`
	GuardianPhone *string `json:"guardian_phone"`
}

func (us *UpdateStudent) Validate(orig Student, svc *Service) error {
	if code := core.CleanString(us.Code); code != "" {
		us.Code = code
	} else {
		us.Code = orig.Code
	}
	if name := core.CleanName(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if class := core.CleanName(us.Class); class != "" {
		us.Class = class
	} else {
		us.Class = orig.Class
	}
	if us.Avatar == nil {
		us.Avatar = &orig.Avatar
	}
	if us.GuardianPhone == nil {
		us.GuardianPhone = &orig.GuardianPhone
	} else {
		phone := core.DigitsOnly(*us.GuardianPhone)
		us.GuardianPhone = &phone
	}

	if err := core.Validate.Struct(us); err != nil {
		return err
	}
	if *us.Avatar != "" {
		if err := core.Validate.Var(*us.Avatar, "url"); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "avatar", Error: errInvalidAvatar.Error()})
		}
	}
	if *us.GuardianPhone != "" {
		if err := core.Validate.Var(*us.GuardianPhone, "intlphone"); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "guardian_phone", Error: errInvalidPhone.Error()})
		}
	}
	return svc.checkUniqueness(us.Code, "", orig)
}

type QueryFilter struct {
	Class  string `query:"class"`
	Search string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Class = core.CleanName(qf.Class)
	qf.Search = core.CleanString(qf.Search)
}

func (qf QueryFilter) Match(s Student) bool {
	return qf.Class == "" || s.Class == qf.Class
}
