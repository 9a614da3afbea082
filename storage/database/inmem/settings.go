package inmemdb

import (
	"github.com/trezcool/siabdul/core/dispatch"
	"github.com/trezcool/siabdul/core/settings"
)

type settingsRepository struct {
	db *DB
}

// NewSettingsRepository seeds the settings with `defaults` unless they were already set.
func NewSettingsRepository(db *DB, defaults settings.Settings) settings.Repository {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if !db.hasSettings {
		db.settings = defaults
		db.hasSettings = true
	}
	return &settingsRepository{db: db}
}

func (repo *settingsRepository) GetSettings() (settings.Settings, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.settings, nil
}

func (repo *settingsRepository) UpdateSettings(fn func(s *settings.Settings) error) (settings.Settings, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s := repo.db.settings
	if err := fn(&s); err != nil {
		return settings.Settings{}, err
	}
	repo.db.settings = s
	return s, nil
}

type logRepository struct {
	db *DB
}

func NewLogRepository(db *DB) dispatch.LogRepository {
	return &logRepository{db: db}
}

func (repo *logRepository) AppendLog(entry dispatch.LogEntry) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.logs = append([]dispatch.LogEntry{entry}, repo.db.logs...)
	return nil
}

func (repo *logRepository) QueryLogs(limit int) ([]dispatch.LogEntry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	n := len(repo.db.logs)
	if limit > 0 && limit < n {
		n = limit
	}
	logs := make([]dispatch.LogEntry, n)
	copy(logs, repo.db.logs[:n])
	return logs, nil
}

func (repo *logRepository) ClearLogs() error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.logs = nil
	return nil
}
