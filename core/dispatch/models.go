package dispatch

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/siabdul/core"
)

// DefaultGatewayURL is the stock gateway endpoint. Together with an active pairing
// it selects the local simulated gateway.
const DefaultGatewayURL = "https://api.fonnte.com/send"

var (
	// errors
	ErrNoPairingSession = errors.New("no pairing session in progress; start pairing first")

	channelModeTag  = "channelmode"
	channelModeText = "must be either link or gateway"
)

func init() {
	_ = core.Validate.RegisterValidation(channelModeTag, func(fl validator.FieldLevel) bool {
		m := Mode(fl.Field().String())
		return m == ModeLink || m == ModeGateway
	})
	core.RegisterCustomTranslation(channelModeTag, channelModeText)
}

// Mode is the operator-facing channel selector.
type Mode string

const (
	ModeLink    Mode = "link"
	ModeGateway Mode = "gateway"
)

// Config is the process-wide dispatch configuration.
// It is read fresh on every dispatch.
type Config struct {
	Mode       Mode   `json:"mode" validate:"required,channelmode"`
	GatewayURL string `json:"gateway_url" validate:"omitempty,url"`
	GatewayKey string `json:"gateway_key"`
	AutoSend   bool   `json:"auto_send"`
}

func DefaultConfig() Config {
	return Config{Mode: ModeLink, GatewayURL: DefaultGatewayURL}
}

func (c *Config) Clean() {
	c.Mode = Mode(core.CleanString(string(c.Mode), true /* lower */))
	c.GatewayURL = core.CleanString(c.GatewayURL)
	c.GatewayKey = core.CleanString(c.GatewayKey)
}

func (c *Config) Validate() error {
	c.Clean()
	return core.Validate.Struct(c)
}

// AutoSendEnabled reports whether arrivals should be dispatched without operator action.
func (c Config) AutoSendEnabled() bool {
	return c.Mode == ModeGateway && c.AutoSend
}

// ChannelMode is the delivery mechanism actually used for a dispatch.
type ChannelMode string

const (
	DirectLink       ChannelMode = "direct_link"
	SimulatedGateway ChannelMode = "simulated_gateway"
	ExternalGateway  ChannelMode = "external_gateway"
)

// ResolveChannel decides the channel once, from the configuration and pairing state.
// A paired gateway still pointing at the default endpoint is simulated locally;
// an empty endpoint is left to the external channel, which rejects it.
func ResolveChannel(cfg Config, paired bool) ChannelMode {
	if cfg.Mode != ModeGateway {
		return DirectLink
	}
	if paired && cfg.GatewayURL == DefaultGatewayURL {
		return SimulatedGateway
	}
	return ExternalGateway
}

// Pairing is the state of the local gateway device pairing.
type Pairing struct {
	Paired   bool      `json:"paired"`
	Session  string    `json:"session,omitempty"`
	PairedAt time.Time `json:"paired_at,omitempty"`
}

type LogStatus string

const (
	LogPending LogStatus = "pending"
	LogSent    LogStatus = "sent"
	LogFailed  LogStatus = "failed"
)

// LogEntry is one message handled by the local gateway. Entries are append-only.
type LogEntry struct {
	ID        string    `json:"id"`
	Target    string    `json:"target"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Status    LogStatus `json:"status"`
}

type LogRepository interface {
	AppendLog(entry LogEntry) error
	// QueryLogs returns entries most recent first.
	QueryLogs(limit int) ([]LogEntry, error)
	ClearLogs() error
}
