package roster

import (
	"errors"
	"fmt"

	"github.com/trezcool/siabdul/core"
)

var (
	// errors
	ErrNotFound       = errors.New("student not found")
	ErrCodeExists     = errors.New("a student with this code already exists")
	ErrIDExists       = errors.New("a student with this id already exists")
	ErrClassNotFound  = errors.New("class not found")
	ErrClassExists    = errors.New("class already exists")
	ErrClassNameBlank = errors.New("class name cannot be blank")

	errInvalidPhone  = errors.New("must be a phone number in international format (e.g. 6281234567890)")
	errInvalidAvatar = errors.New("must be a valid URL")
)

// ClassNotEmptyError is returned when deleting a class that still has students.
type ClassNotEmptyError struct {
	Class    string
	Students int
}

func (err *ClassNotEmptyError) Error() string {
	return fmt.Sprintf("class %q still has %d student(s); remove or move them first", err.Class, err.Students)
}

type (
	Repository interface {
		// CheckUniqueness returns ErrCodeExists or ErrIDExists, ignoring excludedStudents.
		CheckUniqueness(code, id string, excludedStudents ...Student) error
		// CreateStudent inserts the student and adds its class to the class roster if needed.
		CreateStudent(st Student) (Student, error)
		GetStudent(id string) (Student, error)
		// FindStudent looks `key` up by code first, then by legacy identifier.
		FindStudent(key string) (Student, error)
		// QueryStudents returns matching students in roster order.
		QueryStudents(filter QueryFilter) ([]Student, error)
		UpdateStudent(st Student) (Student, error)
		// DeleteStudents removes the students along with all of their attendance records.
		DeleteStudents(ids ...string) error

		QueryClasses() ([]string, error)
		CreateClass(name string) error
		// RenameClass renames the class and every student referencing it.
		RenameClass(oldName, newName string) error
		// DeleteClass fails with *ClassNotEmptyError when students still belong to it.
		DeleteClass(name string) error
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) checkUniqueness(code, id string, exclStudents ...Student) error {
	if err := svc.repo.CheckUniqueness(code, id, exclStudents...); err != nil {
		var field string
		switch err {
		case ErrCodeExists:
			field = "code"
		case ErrIDExists:
			field = "id"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ns NewStudent) (Student, error) {
	st := Student{
		ID:            ns.ID,
		Code:          ns.Code,
		Name:          ns.Name,
		Class:         ns.Class,
		Avatar:        ns.Avatar,
		GuardianPhone: ns.GuardianPhone,
	}
	if st.ID == "" {
		st.ID = NewID()
	}
	return svc.repo.CreateStudent(st)
}

func (svc *Service) Get(id string) (Student, error) {
	return svc.repo.GetStudent(core.CleanString(id))
}

// Find resolves a scanned or typed key to a Student.
func (svc *Service) Find(key string) (Student, error) {
	return svc.repo.FindStudent(core.CleanString(key))
}

func (svc *Service) Query(filter QueryFilter) ([]Student, error) {
	filter.Clean()
	students, err := svc.repo.QueryStudents(QueryFilter{Class: filter.Class})
	if err != nil {
		return nil, err
	}
	if filter.Search == "" {
		return students, nil
	}
	return rankByName(students, filter.Search), nil
}

func (svc *Service) Update(id string, us UpdateStudent) (Student, error) {
	st := Student{
		ID:    id,
		Code:  us.Code,
		Name:  us.Name,
		Class: us.Class,
	}
	if us.Avatar != nil {
		st.Avatar = *us.Avatar
	}
	if us.GuardianPhone != nil {
		st.GuardianPhone = *us.GuardianPhone
	}
	return svc.repo.UpdateStudent(st)
}

// Delete removes the students; their attendance records go with them.
func (svc *Service) Delete(ids ...string) error {
	if err := svc.repo.DeleteStudents(ids...); err != nil {
		return err
	}
	svc.logger.Info(fmt.Sprintf("deleted %d student(s) and their attendance", len(ids)))
	return nil
}

func (svc *Service) Classes() ([]string, error) {
	return svc.repo.QueryClasses()
}

func (svc *Service) AddClass(name string) error {
	name = core.CleanName(name)
	if name == "" {
		return core.NewValidationError(ErrClassNameBlank, core.FieldError{Field: "name", Error: ErrClassNameBlank.Error()})
	}
	if err := svc.repo.CreateClass(name); err != nil {
		if err == ErrClassExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) RenameClass(oldName, newName string) error {
	oldName, newName = core.CleanName(oldName), core.CleanName(newName)
	if newName == "" {
		return core.NewValidationError(ErrClassNameBlank, core.FieldError{Field: "name", Error: ErrClassNameBlank.Error()})
	}
	if newName == oldName {
		return nil
	}
	if err := svc.repo.RenameClass(oldName, newName); err != nil {
		if err == ErrClassExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) DeleteClass(name string) error {
	return svc.repo.DeleteClass(core.CleanName(name))
}
