package wasvc

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/dispatch"
)

var NowFunc = time.Now // mockable

type simulator struct {
	logs   dispatch.LogRepository
	delay  time.Duration
	logger core.Logger
}

var _ dispatch.Simulator = (*simulator)(nil)

// NewSimulator is the local gateway: every message is logged as sent after `delay`.
func NewSimulator(logs dispatch.LogRepository, delay time.Duration, logger core.Logger) dispatch.Simulator {
	return &simulator{logs: logs, delay: delay, logger: logger}
}

func (sim *simulator) Deliver(ctx context.Context, target, message string) (dispatch.LogEntry, error) {
	if sim.delay > 0 {
		timer := time.NewTimer(sim.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return dispatch.LogEntry{}, ctx.Err()
		case <-timer.C:
		}
	}

	entry := dispatch.LogEntry{
		ID:        uuid.NewString(),
		Target:    target,
		Message:   message,
		Timestamp: NowFunc().UTC(),
		Status:    dispatch.LogSent,
	}
	if err := sim.logs.AppendLog(entry); err != nil {
		sim.logger.Error("appending gateway log", err)
	}
	sim.logger.Debug("local gateway delivered to " + target)
	return entry, nil
}
