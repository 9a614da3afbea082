package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/roster"
)

// GatewayConfigError is returned when the external gateway is selected without an endpoint.
type GatewayConfigError struct{}

func (err *GatewayConfigError) Error() string {
	return "gateway endpoint URL is not configured"
}

// GatewayTransportError is a network failure or a non-success gateway response.
type GatewayTransportError struct {
	StatusCode int // 0 on network failure
	Err        error
}

func (err *GatewayTransportError) Error() string {
	if err.StatusCode != 0 {
		return fmt.Sprintf("gateway responded %d %s", err.StatusCode, http.StatusText(err.StatusCode))
	}
	return "gateway unreachable: " + err.Err.Error()
}

func (err *GatewayTransportError) Unwrap() error { return err.Err }

type OutcomeStatus string

const (
	// StatusSubmitted means the message was handed off with no delivery confirmation.
	StatusSubmitted OutcomeStatus = "submitted"
	StatusSent      OutcomeStatus = "sent"
	StatusFailed    OutcomeStatus = "failed"
	// StatusSkipped means nothing was sent: no guardian contact, or an automatic send without an endpoint.
	StatusSkipped OutcomeStatus = "skipped"
)

type (
	// LinkOpener hands a messaging URI to the operating environment.
	LinkOpener interface {
		Open(ctx context.Context, uri string) error
	}

	// Gateway performs the single HTTP POST of the external channel.
	Gateway interface {
		Send(ctx context.Context, endpoint, credential, target, message string) error
	}

	// Simulator is the local gateway. Deliver waits a short fixed delay, logs the message as sent and never fails.
	Simulator interface {
		Deliver(ctx context.Context, target, message string) (LogEntry, error)
	}

	Request struct {
		Student   roster.Student
		At        time.Time
		Automatic bool
	}

	Outcome struct {
		Channel ChannelMode   `json:"channel"`
		Status  OutcomeStatus `json:"status"`
		Target  string        `json:"target,omitempty"`
		Message string        `json:"message,omitempty"`
		URI     string        `json:"uri,omitempty"`
		Error   string        `json:"error,omitempty"`
	}

	Router struct {
		opener    LinkOpener
		gateway   Gateway
		simulator Simulator
		renderer  MessageRenderer
		logger    core.Logger
	}
)

func NewRouter(opener LinkOpener, gateway Gateway, simulator Simulator, renderer MessageRenderer, logger core.Logger) *Router {
	return &Router{
		opener:    opener,
		gateway:   gateway,
		simulator: simulator,
		renderer:  renderer,
		logger:    logger,
	}
}

// Dispatch sends the arrival notice of req.Student through the channel resolved from cfg and paired.
// Failures of automatic sends are logged and reported in the Outcome only;
// user-initiated sends additionally return the typed error.
func (r *Router) Dispatch(ctx context.Context, cfg Config, paired bool, req Request) (Outcome, error) {
	channel := ResolveChannel(cfg, paired)
	out := Outcome{Channel: channel, Status: StatusSkipped}
	if !req.Student.HasGuardian() {
		return out, nil
	}

	out.Target = NormalizePhone(req.Student.GuardianPhone)
	msg, err := r.renderer.Arrival(req.Student, req.At)
	if err != nil {
		return out, err
	}
	out.Message = msg

	switch channel {
	case DirectLink:
		out.URI = LinkURI(out.Target, msg)
		out.Status = StatusSubmitted
		if r.opener != nil {
			if err := r.opener.Open(ctx, out.URI); err != nil {
				r.logger.Warn("opening messaging link failed", err)
			}
		}
		return out, nil

	case SimulatedGateway:
		if _, err := r.simulator.Deliver(ctx, out.Target, msg); err != nil {
			// only a cancelled context gets here
			out.Status = StatusFailed
			out.Error = err.Error()
			return out, errors.Wrap(err, "local gateway")
		}
		out.Status = StatusSent
		return out, nil
	}

	if cfg.GatewayURL == "" {
		err := &GatewayConfigError{}
		out.Error = err.Error()
		if req.Automatic {
			r.logger.Warn(fmt.Sprintf("auto-send to %s dropped: %v", out.Target, err), req.Student)
			return out, nil
		}
		return out, err
	}

	if err := r.gateway.Send(ctx, cfg.GatewayURL, cfg.GatewayKey, out.Target, msg); err != nil {
		var gte *GatewayTransportError
		if !errors.As(err, &gte) {
			err = &GatewayTransportError{Err: err}
		}
		out.Status = StatusFailed
		out.Error = err.Error()
		if req.Automatic {
			r.logger.Error(fmt.Sprintf("auto-send to %s failed", out.Target), err, req.Student)
			return out, nil
		}
		return out, err
	}
	out.Status = StatusSent
	return out, nil
}
