// Package settings holds the operator-editable, process-wide configuration.
package settings

import (
	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/dispatch"
)

type Settings struct {
	SchoolName string           `json:"school_name"`
	Dispatch   dispatch.Config  `json:"dispatch"`
	Pairing    dispatch.Pairing `json:"pairing"`
}

func Defaults(conf *core.Config) Settings {
	s := Settings{SchoolName: conf.SchoolName, Dispatch: dispatch.DefaultConfig()}
	if conf.Dispatch.Mode != "" {
		s.Dispatch.Mode = dispatch.Mode(conf.Dispatch.Mode)
	}
	s.Dispatch.GatewayURL = conf.Dispatch.GatewayURL
	s.Dispatch.GatewayKey = conf.Dispatch.GatewayKey
	s.Dispatch.AutoSend = conf.Dispatch.AutoSend
	return s
}

// Update is a partial settings change. Nil fields are left untouched.
type Update struct {
	SchoolName *string          `json:"school_name"`
	Dispatch   *dispatch.Config `json:"dispatch"`
}

func (u *Update) Validate() error {
	if u.SchoolName != nil {
		name := core.CleanName(*u.SchoolName)
		if name == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "school_name", Error: "this field cannot be blank"})
		}
		u.SchoolName = &name
	}
	if u.Dispatch != nil {
		return u.Dispatch.Validate()
	}
	return nil
}

type (
	Repository interface {
		GetSettings() (Settings, error)
		// UpdateSettings applies fn atomically and returns the stored result.
		UpdateSettings(fn func(s *Settings) error) (Settings, error)
	}

	// Service is read on every dispatch, so changes apply to the next scan.
	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) Get() (Settings, error) {
	return svc.repo.GetSettings()
}

func (svc *Service) Save(u Update) (Settings, error) {
	s, err := svc.repo.UpdateSettings(func(s *Settings) error {
		if u.SchoolName != nil {
			s.SchoolName = *u.SchoolName
		}
		if u.Dispatch != nil {
			s.Dispatch = *u.Dispatch
		}
		return nil
	})
	if err != nil {
		return Settings{}, err
	}
	svc.logger.Info("settings saved", map[string]interface{}{
		"mode":      s.Dispatch.Mode,
		"auto_send": s.Dispatch.AutoSend,
	})
	return s, nil
}

func (svc *Service) DispatchConfig() (dispatch.Config, error) {
	s, err := svc.repo.GetSettings()
	return s.Dispatch, err
}

func (svc *Service) Pairing() (dispatch.Pairing, error) {
	s, err := svc.repo.GetSettings()
	return s.Pairing, err
}

func (svc *Service) SavePairing(p dispatch.Pairing) error {
	_, err := svc.repo.UpdateSettings(func(s *Settings) error {
		s.Pairing = p
		return nil
	})
	return err
}
