package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/roster"
)

const sessionPrefix = "SIABDUL-WA-SESSION-"

var NowFunc = time.Now // mockable

type (
	// Settings exposes the live dispatch configuration and pairing state.
	Settings interface {
		DispatchConfig() (Config, error)
		Pairing() (Pairing, error)
		SavePairing(p Pairing) error
	}

	Service struct {
		router   *Router
		settings Settings
		logs     LogRepository
		logger   core.Logger
	}
)

func NewService(router *Router, settings Settings, logs LogRepository, logger core.Logger) *Service {
	return &Service{router: router, settings: settings, logs: logs, logger: logger}
}

// Send dispatches with the configuration as it is right now.
func (svc *Service) Send(ctx context.Context, req Request) (Outcome, error) {
	cfg, err := svc.settings.DispatchConfig()
	if err != nil {
		return Outcome{}, errors.Wrap(err, "reading dispatch config")
	}
	pairing, err := svc.settings.Pairing()
	if err != nil {
		return Outcome{}, errors.Wrap(err, "reading pairing state")
	}
	return svc.router.Dispatch(ctx, cfg, pairing.Paired, req)
}

// SendArrival is the user-initiated notification for `st` arrived at `at`.
func (svc *Service) SendArrival(ctx context.Context, st roster.Student, at time.Time) (Outcome, error) {
	out, err := svc.Send(ctx, Request{Student: st, At: at})
	if err == nil && out.Status != StatusSkipped {
		svc.logger.Info(fmt.Sprintf("notification for %s %s via %s", st.Code, out.Status, out.Channel))
	}
	return out, err
}

// AutoSend reports whether an arrival of `st` should be dispatched automatically.
func (svc *Service) AutoSend(st roster.Student) (bool, error) {
	if !st.HasGuardian() {
		return false, nil
	}
	cfg, err := svc.settings.DispatchConfig()
	if err != nil {
		return false, err
	}
	return cfg.AutoSendEnabled(), nil
}

func (svc *Service) Pairing() (Pairing, error) {
	return svc.settings.Pairing()
}

// StartPairing issues a new session token for the device to pair with.
func (svc *Service) StartPairing() (Pairing, error) {
	p := Pairing{Session: fmt.Sprintf("%s%d", sessionPrefix, NowFunc().UnixNano()/int64(time.Millisecond))}
	if err := svc.settings.SavePairing(p); err != nil {
		return Pairing{}, err
	}
	return p, nil
}

// Connect completes the pairing started by StartPairing.
func (svc *Service) Connect() (Pairing, error) {
	p, err := svc.settings.Pairing()
	if err != nil {
		return Pairing{}, err
	}
	if p.Paired {
		return p, nil
	}
	if p.Session == "" {
		return Pairing{}, ErrNoPairingSession
	}
	p.Paired = true
	p.PairedAt = NowFunc().UTC()
	if err := svc.settings.SavePairing(p); err != nil {
		return Pairing{}, err
	}
	svc.logger.Info("local gateway paired")
	return p, nil
}

// Disconnect unpairs the device and issues a fresh session token.
func (svc *Service) Disconnect() (Pairing, error) {
	p, err := svc.StartPairing()
	if err != nil {
		return Pairing{}, err
	}
	svc.logger.Info("local gateway disconnected")
	return p, nil
}

func (svc *Service) Logs(limit int) ([]LogEntry, error) {
	return svc.logs.QueryLogs(limit)
}

func (svc *Service) ClearLogs() error {
	return svc.logs.ClearLogs()
}
