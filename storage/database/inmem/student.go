package inmemdb

import (
	"sort"

	"github.com/trezcool/siabdul/core/attendance"
	"github.com/trezcool/siabdul/core/roster"
)

type studentRepository struct {
	db *DB
}

func NewStudentRepository(db *DB) roster.Repository {
	return &studentRepository{db: db}
}

// query returns the students in roster order. Caller holds the lock.
func (repo *studentRepository) query(filter roster.QueryFilter) []roster.Student {
	res := make([]roster.Student, 0, len(repo.db.order))
	for _, id := range repo.db.order {
		if st := repo.db.students[id]; filter.Match(*st) {
			res = append(res, *st)
		}
	}
	return res
}

func (repo *studentRepository) checkUniqueness(code, id string, excludedStudents []roster.Student) error {
	exclLen := len(excludedStudents)
	if exclLen > 1 {
		sort.Slice(excludedStudents, func(i, j int) bool { return excludedStudents[i].ID < excludedStudents[j].ID })
	}

	if owner, ok := repo.db.byCode[code]; ok && !isExcluded(owner, excludedStudents, exclLen) {
		return roster.ErrCodeExists
	}
	if _, ok := repo.db.students[id]; ok && id != "" && !isExcluded(id, excludedStudents, exclLen) {
		return roster.ErrIDExists
	}
	return nil
}

func (repo *studentRepository) CheckUniqueness(code, id string, excludedStudents ...roster.Student) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.checkUniqueness(code, id, excludedStudents)
}

func (repo *studentRepository) CreateStudent(st roster.Student) (roster.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if err := repo.checkUniqueness(st.Code, st.ID, nil); err != nil {
		return roster.Student{}, err
	}
	repo.db.students[st.ID] = &st
	repo.db.order = append(repo.db.order, st.ID)
	repo.db.byCode[st.Code] = st.ID
	repo.db.addClass(st.Class)
	return st, nil
}

func (repo *studentRepository) GetStudent(id string) (roster.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if st, ok := repo.db.students[id]; ok {
		return *st, nil
	}
	return roster.Student{}, roster.ErrNotFound
}

func (repo *studentRepository) FindStudent(key string) (roster.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	id, ok := repo.db.byCode[key]
	if !ok {
		id = key
	}
	if st, ok := repo.db.students[id]; ok {
		return *st, nil
	}
	return roster.Student{}, roster.ErrNotFound
}

func (repo *studentRepository) QueryStudents(filter roster.QueryFilter) ([]roster.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(filter), nil
}

func (repo *studentRepository) UpdateStudent(st roster.Student) (roster.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.students[st.ID]
	if !ok {
		return roster.Student{}, roster.ErrNotFound
	}
	if st.Code != orig.Code {
		if err := repo.checkUniqueness(st.Code, "", []roster.Student{*orig}); err != nil {
			return roster.Student{}, err
		}
		delete(repo.db.byCode, orig.Code)
		repo.db.byCode[st.Code] = st.ID
	}
	*orig = st
	repo.db.addClass(st.Class)
	return st, nil
}

func (repo *studentRepository) DeleteStudents(ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		st, ok := repo.db.students[id]
		if !ok {
			continue
		}
		drop[id] = true
		delete(repo.db.byCode, st.Code)
		delete(repo.db.students, id)
	}
	if len(drop) == 0 {
		return nil
	}

	order := repo.db.order[:0]
	for _, id := range repo.db.order {
		if !drop[id] {
			order = append(order, id)
		}
	}
	repo.db.order = order
	repo.db.removeRecords(func(rec attendance.Record) bool { return drop[rec.StudentID] })
	return nil
}

func (repo *studentRepository) QueryClasses() ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := make([]string, len(repo.db.classes))
	copy(classes, repo.db.classes)
	return classes, nil
}

func (repo *studentRepository) CreateClass(name string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.db.hasClass(name) {
		return roster.ErrClassExists
	}
	repo.db.addClass(name)
	return nil
}

func (repo *studentRepository) RenameClass(oldName, newName string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if !repo.db.hasClass(oldName) {
		return roster.ErrClassNotFound
	}
	if repo.db.hasClass(newName) {
		return roster.ErrClassExists
	}
	repo.db.removeClass(oldName)
	repo.db.addClass(newName)
	for _, st := range repo.db.students {
		if st.Class == oldName {
			st.Class = newName
		}
	}
	return nil
}

func (repo *studentRepository) DeleteClass(name string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if !repo.db.hasClass(name) {
		return roster.ErrClassNotFound
	}
	count := 0
	for _, st := range repo.db.students {
		if st.Class == name {
			count++
		}
	}
	if count > 0 {
		return &roster.ClassNotEmptyError{Class: name, Students: count}
	}
	repo.db.removeClass(name)
	return nil
}

// isExcluded reports whether `id` is among the n students of `excluded`, sorted by ID.
func isExcluded(id string, excluded []roster.Student, n int) bool {
	if n <= 0 {
		return false
	}
	idx := sort.Search(n, func(i int) bool { return excluded[i].ID >= id })
	return idx < n && excluded[idx].ID == id
}
