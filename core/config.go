package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}

	DispatchConfig struct {
		Mode           string
		GatewayURL     string
		GatewayKey     string
		AutoSend       bool
		LinkOpener     string // client | system
		SimulatedDelay time.Duration
		Timeout        time.Duration
		QueueSize      int
	}

	SummarizerConfig struct {
		APIKey     string
		Model      string
		BaseURL    string
		MaxRetries int
		BaseDelay  time.Duration
	}

	Config struct {
		Env        string
		Build      string
		Debug      bool
		TestMode   bool
		AppName    string
		SchoolName string
		WorkDir    string
		SeedFile   string
		CodeLength int
		Location   *time.Location

		Server     ServerConfig
		Dispatch   DispatchConfig
		Summarizer SummarizerConfig

		RollbarToken     string
		SendgridAPIKey   string
		ReportRecipients []mail.Address

		defaultFromEmail string
	}
)

// NewConfig reads the configuration for the current ENV (DEV by default).
// Values come from defaults, an optional config/.env.<env> file, then the environment,
// e.g. DEV_DISPATCH_GATEWAYURL overrides dispatch.gatewayUrl.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "SIABDUL")
	v.SetDefault("schoolName", "MTs Riyadlul Ulum")
	v.SetDefault("timezone", "Asia/Jakarta")
	v.SetDefault("codeLength", 10)
	v.SetDefault("seedFile", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("reportRecipients", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("dispatch.mode", "link")
	v.SetDefault("dispatch.gatewayUrl", "https://api.fonnte.com/send")
	v.SetDefault("dispatch.gatewayKey", "")
	v.SetDefault("dispatch.autoSend", false)
	v.SetDefault("dispatch.linkOpener", "client")
	v.SetDefault("dispatch.simulatedDelay", 500*time.Millisecond)
	v.SetDefault("dispatch.timeout", 15*time.Second)
	v.SetDefault("dispatch.queueSize", 64)

	v.SetDefault("summarizer.apiKey", "")
	v.SetDefault("summarizer.model", "gemini-3-flash-preview")
	v.SetDefault("summarizer.baseUrl", "https://generativelanguage.googleapis.com")
	v.SetDefault("summarizer.maxRetries", 3)
	v.SetDefault("summarizer.baseDelay", time.Second)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd: %v", err)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		log.Fatalf("config.time.LoadLocation(%s): %v", v.GetString("timezone"), err)
	}

	return &Config{
		Env:        env,
		Build:      v.GetString("build"),
		Debug:      v.GetBool("debug"),
		TestMode:   v.GetBool("testMode"),
		AppName:    v.GetString("appName"),
		SchoolName: v.GetString("schoolName"),
		WorkDir:    wd,
		SeedFile:   v.GetString("seedFile"),
		CodeLength: v.GetInt("codeLength"),
		Location:   loc,
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			DebugHost:       v.GetString("server.debugHost"),
			ReadTimeout:     v.GetDuration("server.readTimeout"),
			WriteTimeout:    v.GetDuration("server.writeTimeout"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Dispatch: DispatchConfig{
			Mode:           v.GetString("dispatch.mode"),
			GatewayURL:     v.GetString("dispatch.gatewayUrl"),
			GatewayKey:     v.GetString("dispatch.gatewayKey"),
			AutoSend:       v.GetBool("dispatch.autoSend"),
			LinkOpener:     v.GetString("dispatch.linkOpener"),
			SimulatedDelay: v.GetDuration("dispatch.simulatedDelay"),
			Timeout:        v.GetDuration("dispatch.timeout"),
			QueueSize:      v.GetInt("dispatch.queueSize"),
		},
		Summarizer: SummarizerConfig{
			APIKey:     v.GetString("summarizer.apiKey"),
			Model:      v.GetString("summarizer.model"),
			BaseURL:    v.GetString("summarizer.baseUrl"),
			MaxRetries: v.GetInt("summarizer.maxRetries"),
			BaseDelay:  v.GetDuration("summarizer.baseDelay"),
		},
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		ReportRecipients: parseAddresses(v.GetString("reportRecipients")),
		defaultFromEmail: v.GetString("defaultFromEmail"),
	}
}

func (conf *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
}

// parseAddresses parses a comma separated list of addresses, skipping the invalid ones.
func parseAddresses(list string) []mail.Address {
	list = CleanString(list)
	if list == "" {
		return nil
	}
	addrs, err := mail.ParseAddressList(list)
	if err != nil {
		log.Printf("config.parseAddresses(%s): %v", list, err)
		return nil
	}
	res := make([]mail.Address, 0, len(addrs))
	for _, a := range addrs {
		res = append(res, *a)
	}
	return res
}
